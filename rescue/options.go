// Package rescue implements the multi-pass rescue engine (spec.md §4.2):
// pass orchestration, adaptive skipping, rate/timeout/error policy, and
// progress accounting on top of a Status Map and a Domain.
package rescue

import "time"

// Options bundles every policy knob from spec.md §6's CLI surface (mapped
// 1:1 onto rescue.Options fields by cmd/ddrescue's flag parsing).
type Options struct {
	HardBS int64 // -b: hardware block size (sector)
	Cluster int64 // -c: softbs = cluster * hardbs

	MinReadRate int64 // -a: bytes/sec, 0 = auto
	MaxErrorRate int64 // -E: bytes/sec, -1 = unlimited

	MaxErrors      int  // -e: max maximal-bad-area count, -1 = unlimited
	NewErrorsOnly  bool // -e +N form

	MaxRetries int // -r: -1 = unlimited

	Timeout time.Duration // -T, 0 = unlimited

	Reverse      bool // -R
	Unidirectional bool // no CLI flag sets it; settable directly

	NoTrim   bool // -n (also disables scrape/retry)
	NoScrape bool

	Sparse bool // -S
	MinOutfileSize int64 // -x

	InitialSkip int64 // -K
	MaxSkipSize int64 // ceiling for skip-size doubling; 0 keeps the skip size at InitialSkip

	VerifyOnError bool // spec.md §4.2
	ReopenOnError bool

	DirectIO       bool // -d
	SynchronousWrites bool // -D

	Preallocate bool // -p
	Truncate    bool // -t

	MaxMapfileEntries int // -l, 0 = unlimited

	RestrictToFinishedIn string // -m
	NoDomainGrowth       bool   // -C
	VerifySize           bool   // -I

	ResetNonTrimmedAndScraped bool // -A
	Retrim                    bool // -M

	ExitOnError bool

	RateLogPath string
	ReadLogPath string

	MapfilePath string
}

// DefaultOptions returns the spec's documented defaults.
func DefaultOptions() Options {
	return Options{
		HardBS:      512,
		Cluster:     128,
		MaxRetries:  0,
		InitialSkip: 65536,
		MaxSkipSize: 1 << 26, // 64 MiB, matching ddrescue's practical ceiling
	}
}

// SoftBS returns cluster*hardbs, the preferred bulk transfer size.
func (o Options) SoftBS() int64 {
	if o.HardBS <= 0 {
		return o.Cluster
	}
	if o.Cluster <= 0 {
		return o.HardBS
	}
	return o.Cluster * o.HardBS
}
