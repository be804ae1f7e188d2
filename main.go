package main

import "github.com/ValentinKolb/dCDT/cmd"

func main() {
	cmd.Execute()
}
