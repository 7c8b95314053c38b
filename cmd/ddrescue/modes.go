package main

import (
	"github.com/spf13/cobra"

	"github.com/mruffalo/ddrescue-sub000/internal/rerrors"
)

// newFillCmd registers the fill subcommand for -F (ddrescue's fill mode
// copies a literal fill pattern into every Sblock of the selected status
// types instead of reading from a source). In this build it only returns
// a "not implemented" error and touches no file.
func newFillCmd(f *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fill OUTFILE MAPFILE",
		Short: "Fill the blocks of the given types with a pattern (ddrescue -F)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rerrors.Fatalf("fill mode (-F) is not implemented in this build")
		},
		SilenceUsage: true,
	}
}

// newGenerateCmd registers the generate subcommand for -g (generate mode
// reconstructs an approximate mapfile by diffing an existing output file
// against a reference, without touching the original source). In this
// build it only returns a "not implemented" error and touches no file.
func newGenerateCmd(f *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate INFILE OUTFILE MAPFILE",
		Short: "Generate an approximate mapfile for an existing rescued image (ddrescue -g)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rerrors.Fatalf("generate mode (-g) is not implemented in this build")
		},
		SilenceUsage: true,
	}
}
