// Package unix provides the framed transport of package base over unix
// domain sockets, for clients on the same machine as the server.
package unix
