package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mruffalo/ddrescue-sub000/rescue"
)

// cliFlags mirrors spec.md §6's flag table 1:1, bound onto the root
// command with pflag in flagsFor.
type cliFlags struct {
	minReadRate  string
	maxErrorRate string
	resetTrimmed bool
	hardBS       int64
	binaryUnits  bool
	cluster      int64
	noDomainGrow bool
	directIO     bool
	syncWrites   bool
	maxErrors    string
	forceOutput  bool
	fillTypes    string
	generate     bool
	startIn      string
	startOut     string
	verifySize   bool
	initialSkip  string
	maxEntries   int
	domainFile   string
	retrim       bool
	noSplit      bool
	preallocate  bool
	quiet        bool
	verbose      bool
	maxRetries   int
	reverse      bool
	maxSize      string
	sparse       bool
	truncate     bool
	timeout      string
	extendTo     string

	rateLog string
	readLog string
}

// toOptions validates and translates cliFlags into rescue.Options. Size
// and duration flags accept ddrescue's own suffixed formats (parseSize,
// parseTimeout below), not Go's.
func (f *cliFlags) toOptions() (rescue.Options, error) {
	opt := rescue.DefaultOptions()

	if f.hardBS > 0 {
		opt.HardBS = f.hardBS
	}
	if f.cluster > 0 {
		opt.Cluster = f.cluster
	}
	if f.minReadRate != "" {
		v, err := parseSize(f.minReadRate)
		if err != nil {
			return opt, fmt.Errorf("-a: %w", err)
		}
		opt.MinReadRate = v
	}
	if f.maxErrorRate != "" {
		v, err := parseSize(f.maxErrorRate)
		if err != nil {
			return opt, fmt.Errorf("-E: %w", err)
		}
		opt.MaxErrorRate = v
	} else {
		opt.MaxErrorRate = -1
	}
	if f.maxErrors != "" {
		s := f.maxErrors
		if strings.HasPrefix(s, "+") {
			opt.NewErrorsOnly = true
			s = s[1:]
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return opt, fmt.Errorf("-e: %w", err)
		}
		opt.MaxErrors = n
	} else {
		opt.MaxErrors = -1
	}
	opt.MaxRetries = f.maxRetries
	if f.timeout != "" {
		d, err := parseTimeout(f.timeout)
		if err != nil {
			return opt, fmt.Errorf("-T: %w", err)
		}
		opt.Timeout = d
	}
	opt.Reverse = f.reverse
	opt.NoTrim = f.noSplit
	opt.Sparse = f.sparse
	if f.extendTo != "" {
		v, err := parseSize(f.extendTo)
		if err != nil {
			return opt, fmt.Errorf("-x: %w", err)
		}
		opt.MinOutfileSize = v
	}
	if f.initialSkip != "" {
		v, err := parseSize(f.initialSkip)
		if err != nil {
			return opt, fmt.Errorf("-K: %w", err)
		}
		opt.InitialSkip = v
	}
	opt.DirectIO = f.directIO
	opt.SynchronousWrites = f.syncWrites
	opt.Preallocate = f.preallocate
	opt.Truncate = f.truncate
	opt.MaxMapfileEntries = f.maxEntries
	opt.RestrictToFinishedIn = f.domainFile
	opt.NoDomainGrowth = f.noDomainGrow
	opt.VerifySize = f.verifySize
	opt.ResetNonTrimmedAndScraped = f.resetTrimmed
	opt.Retrim = f.retrim
	opt.RateLogPath = f.rateLog
	opt.ReadLogPath = f.readLog
	return opt, nil
}

// parseSize accepts a plain byte count or one with a binary/SI multiplier
// suffix (k, Ki, M, Mi, G, Gi, ...), matching ddrescue's own -K/-x/-a/-E
// argument grammar.
func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	mult := int64(1)
	unit := s
	switch {
	case strings.HasSuffix(s, "Ki"):
		mult, unit = 1<<10, s[:len(s)-2]
	case strings.HasSuffix(s, "Mi"):
		mult, unit = 1<<20, s[:len(s)-2]
	case strings.HasSuffix(s, "Gi"):
		mult, unit = 1<<30, s[:len(s)-2]
	case strings.HasSuffix(s, "Ti"):
		mult, unit = 1<<40, s[:len(s)-2]
	case strings.HasSuffix(s, "k"):
		mult, unit = 1000, s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		mult, unit = 1_000_000, s[:len(s)-1]
	case strings.HasSuffix(s, "G"):
		mult, unit = 1_000_000_000, s[:len(s)-1]
	case strings.HasSuffix(s, "T"):
		mult, unit = 1_000_000_000_000, s[:len(s)-1]
	}
	n, err := strconv.ParseInt(unit, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}

// parseTimeout accepts ddrescue's duration grammar: "N", "N.M", "N[smhd]",
// or "N/M[smhd]" (N every M units, here collapsed to N since the engine
// has no periodic-timeout-reset concept).
func parseTimeout(s string) (time.Duration, error) {
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		s = s[:idx]
	}
	unit := time.Second
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 's':
			s = s[:n-1]
		case 'm':
			unit = time.Minute
			s = s[:n-1]
		case 'h':
			unit = time.Hour
			s = s[:n-1]
		case 'd':
			unit = 24 * time.Hour
			s = s[:n-1]
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(v * float64(unit)), nil
}
