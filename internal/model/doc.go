// Package model defines the domain types and value objects for the
// pybundle CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (BundleMode, BuildResult, etc.) are transient in-memory
// values — the packaging workflow keeps no state beyond the file system.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
