// Package cmd implements the command-line interface for the dSM replicated
// shared map. It provides a hierarchical command structure for running a
// receiver node and for load testing the replication link.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring a receiver node
//   - perf: Performance testing tool driving a replication link
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dsm -help for a list of all commands.
package cmd
