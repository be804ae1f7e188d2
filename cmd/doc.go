// Package cmd implements the command-line interface of dCDT. It provides
// commands for running the server and for working with records as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starting and configuring the dCDT server
//   - rec: Record operations (put, get, exists, remove, operate, batch) and the perf tool
//   - util: Shared utilities for flag handling, configuration and output (internal use)
//
// See dcdt -help for a list of all commands.
package cmd
