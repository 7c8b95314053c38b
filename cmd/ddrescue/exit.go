package main

import "github.com/mruffalo/ddrescue-sub000/internal/rerrors"

// exitCodeFor maps a command error to the conventional process exit code
// (spec.md §6/§7): 1 environment/I/O, 2 corrupt mapfile, 3 internal
// invariant violation.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	return rerrors.ExitCode(err)
}
