package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dCDT/cmd/rec"
	"github.com/ValentinKolb/dCDT/cmd/serve"
	"github.com/ValentinKolb/dCDT/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dcdt",
		Short: "record store with list and map operations",
		Long: fmt.Sprintf(`dCDT (v%s)

A record store written in Go whose bins hold lists and maps. Elements are
selected by index, rank, value or key and read, projected or removed
atomically, locally or replicated with RAFT.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dCDT",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dCDT v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(rec.RecordCommands)
	RootCmd.AddCommand(versionCmd)

	RootCmd.PersistentFlags().String("serializer", "binary", util.WrapString("serializer to use (binary, json, gob)"))
	RootCmd.PersistentFlags().String("transport", "tcp", util.WrapString("transport to use (tcp, unix, http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
