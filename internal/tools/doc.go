// Package tools provides reusable runtime helpers shared by the
// fetcher's operational binaries.
//
// Ownership boundary:
// - external command execution, local and over SSH
//
// - shell quoting for remote invocation
package tools
