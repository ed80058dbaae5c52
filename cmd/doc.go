// Package cmd implements the command-line interface of rsedis.
//
// The package is organized into several subpackages:
//
//   - repl: an interactive shell that runs string commands (SET, GET, INCR, ...) against a local store
//   - perf: throughput and latency measurements of the engine
//   - util: shared utilities for flags and configuration (internal use)
//
// Configuration is read from flags, from RSEDIS_<FLAG> environment variables and from
// .env / .env.local files. See rsedis -help for a list of all commands.
package cmd
