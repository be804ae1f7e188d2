// Package tcp provides the framed transport of package base over tcp
// sockets. Socket options (TCPNoDelay, keep alive, linger and buffer sizes)
// are taken from the transport configs.
package tcp
