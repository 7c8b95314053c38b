package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the ddrescue command tree: the default rescue action,
// plus -F/-g's fill and generate modes as explicit subcommands (spec.md
// §9 drops the inheritance the original derives these from; here they are
// distinct drivers sharing the rescue package's Status Map and domain
// types rather than a common base engine).
func newRootCmd() *cobra.Command {
	f := &cliFlags{}
	root := &cobra.Command{
		Use:   "ddrescue INFILE OUTFILE [MAPFILE]",
		Short: "Copy data from one file or block device to another, trying hard to rescue data in case of read errors",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRescue(f, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindFlags(root, f)

	root.AddCommand(newFillCmd(f))
	root.AddCommand(newGenerateCmd(f))
	return root
}

func bindFlags(cmd *cobra.Command, f *cliFlags) {
	fl := cmd.Flags()
	fl.StringVarP(&f.minReadRate, "min-read-rate", "a", "", "minimum read rate (B/s) below which a read is slow")
	fl.StringVarP(&f.maxErrorRate, "max-error-rate", "E", "", "maximum allowed rate of errors (B/s)")
	fl.BoolVarP(&f.resetTrimmed, "reset", "A", false, "reset non-trimmed and non-scraped blocks to non-tried")
	fl.Int64VarP(&f.hardBS, "block-size", "b", 0, "hardware block size (sector size), default 512")
	fl.BoolVarP(&f.binaryUnits, "binary-prefixes", "B", false, "display sizes using binary (1024-based) prefixes")
	fl.Int64VarP(&f.cluster, "cluster-size", "c", 0, "number of hardware blocks to copy at a time, default 128")
	fl.BoolVarP(&f.noDomainGrow, "no-split", "C", false, "do not split the rescue domain past the mapfile extent")
	fl.BoolVarP(&f.directIO, "direct", "d", false, "use direct disc access for the input file")
	fl.BoolVarP(&f.syncWrites, "synchronous", "D", false, "use synchronous writes for the output file")
	fl.StringVarP(&f.maxErrors, "max-errors", "e", "", "maximum number of error areas allowed ('+N' counts only new ones)")
	fl.BoolVarP(&f.forceOutput, "force", "f", false, "overwrite an existing output file that is not a regular file")
	fl.StringVarP(&f.fillTypes, "fill", "F", "", "fill mode: block types to fill, e.g. '?*/-'")
	fl.BoolVarP(&f.generate, "generate-mode", "g", false, "generate mode: create an approximate mapfile from the output file")
	fl.StringVarP(&f.startIn, "input-position", "i", "", "starting position in the input file")
	fl.StringVarP(&f.startOut, "output-position", "o", "", "starting position in the output file (accepted but not applied: output offsets equal input offsets)")
	fl.BoolVarP(&f.verifySize, "verify-input-size", "I", false, "verify the input file size against the mapfile extent")
	fl.StringVarP(&f.initialSkip, "initial-skip-size", "K", "", "initial size to skip on read error")
	fl.IntVarP(&f.maxEntries, "max-mapfile-entries", "l", 0, "maximum number of mapfile entries, 0 = unlimited")
	fl.StringVarP(&f.domainFile, "domain-mapfile", "m", "", "restrict the rescue domain to the finished blocks of this mapfile")
	fl.BoolVarP(&f.retrim, "retrim", "M", false, "mark non-scraped and bad-sector blocks as non-trimmed")
	fl.BoolVarP(&f.noSplit, "no-trim", "n", false, "skip the trim, scrape and retry passes")
	fl.BoolVarP(&f.preallocate, "preallocate", "p", false, "preallocate space on disc for the output file")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "suppress all messages except errors")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "verbose operation (enables info and debug messages)")
	fl.IntVarP(&f.maxRetries, "retries", "r", 0, "exit after given number of retry passes, -1 = unlimited")
	fl.BoolVarP(&f.reverse, "reverse", "R", false, "reverse the direction of all passes")
	fl.StringVarP(&f.maxSize, "size", "s", "", "maximum size of the rescue domain")
	fl.BoolVarP(&f.sparse, "sparse", "S", false, "use sparse writes for the output file")
	fl.BoolVarP(&f.truncate, "truncate", "t", false, "truncate the output file to zero length before rescuing")
	fl.StringVarP(&f.timeout, "timeout", "T", "", "maximum time since last successful read before giving up")
	fl.StringVarP(&f.extendTo, "extend-outfile", "x", "", "extend the output file to at least this size")
	fl.StringVar(&f.rateLog, "log-rates", "", "write rate statistics to this file")
	fl.StringVar(&f.readLog, "log-reads", "", "write every read outcome to this file")
}
