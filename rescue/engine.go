package rescue

import (
	"bytes"
	"time"

	"github.com/mruffalo/ddrescue-sub000/internal/block"
	"github.com/mruffalo/ddrescue-sub000/internal/domain"
	"github.com/mruffalo/ddrescue-sub000/internal/posio"
	"github.com/mruffalo/ddrescue-sub000/internal/rerrors"
	"github.com/mruffalo/ddrescue-sub000/internal/rlog"
	"github.com/mruffalo/ddrescue-sub000/internal/sigflag"
	"github.com/mruffalo/ddrescue-sub000/internal/statusmap"
)

// Exit codes, per spec.md §4.2/§6.
const (
	ExitOK          = 0
	ExitIOError     = 1
	ExitCorrupt     = 2
	ExitInconsistent = 3
)

// Engine drives reads from Src, writes to Dst, updates Map, and decides
// which region to attempt next, following the pass sequence of spec.md
// §4.2. It holds no worker pool: everything runs on the calling
// goroutine, matching the single sequential agent of spec.md §5.
type Engine struct {
	Src SourceReader
	Dst DestWriter
	Map *statusmap.StatusMap
	Dom *domain.Domain
	Opt Options

	Counters Counters
	avg      *slidingAverage

	skipSize int64

	verifyBuf  []byte
	verifyPos  int64
	haveVerify bool

	rateLog *rlog.RateLogger
	readLog *rlog.ReadLogger

	finalMsg string

	passStart    time.Time
	lastTick     time.Time
	lastGoodRead time.Time
	lastFlush    time.Time

	mapHeader statusmap.Header

	// now is overridable for tests; defaults to time.Now.
	now func() time.Time
}

// NewEngine builds an Engine ready to Run.
func NewEngine(src SourceReader, dst DestWriter, dom *domain.Domain, sm *statusmap.StatusMap, opt Options) *Engine {
	sm.SetMaxEntries(opt.MaxMapfileEntries)
	return &Engine{
		Src:      src,
		Dst:      dst,
		Map:      sm,
		Dom:      dom,
		Opt:      opt,
		avg:      newSlidingAverage(30),
		skipSize: opt.InitialSkip,
		rateLog:  rlog.NewRateLogger(opt.RateLogPath),
		readLog:  rlog.NewReadLogger(opt.ReadLogPath),
		mapHeader: statusmap.Header{Version: "ddrescue-go", Command: "rescue"},
		now:      time.Now,
	}
}

// Run executes the full pass sequence (spec.md §4.2) and returns the
// conventional exit code: 0 clean, 1 I/O error, 2 verify-on-error
// concluded the source unreliable, or a 128+signum value on interrupt.
func (e *Engine) Run() int {
	defer e.readLog.Close()
	defer e.rateLog.Close()

	if e.Opt.NewErrorsOnly && e.Opt.MaxErrors >= 0 {
		e.Opt.MaxErrors += e.Map.ErrorAreaCount(e.Dom)
	}
	e.recomputeCounters()
	e.lastGoodRead = e.now()
	code, interruptSig := e.runPasses()
	e.Map.SetCurrentStatus(statusmap.PassDone)
	_ = e.flush(true)
	e.finalizeSparse()

	if interruptSig != 0 {
		return interruptSig
	}
	return code
}

// runPasses executes copy_non_tried, trim_errors, scrape_errors and
// copy_errors in order, short-circuiting on interrupt or a non-zero
// e_code. Returns (exitCode, signalExitCode); signalExitCode is non-zero
// only when termination was via interrupt, per spec.md §5.
func (e *Engine) runPasses() (int, int) {
	steps := []struct {
		name    string
		run     func() (int, error)
		skip    bool
	}{
		{"copy_non_tried", e.passCopyNonTried, false},
		{"trim_errors", e.passTrimErrors, e.Opt.NoTrim},
		{"scrape_errors", e.passScrapeErrors, e.Opt.NoScrape || e.Opt.NoTrim},
		{"copy_errors", e.passCopyErrors, e.Opt.MaxRetries == 0 || e.Opt.NoTrim},
	}

	for _, step := range steps {
		if step.skip {
			continue
		}
		if sigflag.Interrupted() {
			return ExitOK, sigflag.LastExitCode()
		}
		if e.checkTermination() != 0 {
			return ExitIOError, 0
		}
		e.passStart = e.now()
		e.lastGoodRead = e.passStart
		e.lastTick = e.passStart
		code, err := step.run()
		_ = e.flush(true)
		if sigflag.Interrupted() {
			return ExitOK, sigflag.LastExitCode()
		}
		if err != nil {
			e.finalMsg = err.Error()
			return rerrors.ExitCode(err), 0
		}
		if code != ExitOK {
			return code, 0
		}
	}
	return ExitOK, 0
}

// checkTermination evaluates the three e_code bits from spec.md §4.2 and
// returns the bitmask (0 if none tripped).
func (e *Engine) checkTermination() int {
	code := 0
	if e.Opt.MaxErrorRate >= 0 && e.Counters.ErrorRate > e.Opt.MaxErrorRate {
		code |= 1
	}
	errs := e.Counters.Errors
	if e.Opt.MaxErrors >= 0 && errs > e.Opt.MaxErrors {
		code |= 2
	}
	if e.Opt.Timeout > 0 && e.now().Sub(e.lastGoodRead) > e.Opt.Timeout {
		code |= 4
	}
	return code
}

// slowRead implements spec.md §4.2's slow-read detection.
func (e *Engine) slowRead(curRate int64) bool {
	if e.now().Sub(e.passStart) < 30*time.Second {
		return false
	}
	avg := e.avg.Average()
	if e.Opt.MinReadRate > 0 {
		return curRate < e.Opt.MinReadRate && curRate < avg/2
	}
	return curRate < avg/10
}

// bumpSkip doubles skipSize on a slow/failed read, up to MaxSkipSize.
func (e *Engine) bumpSkip() {
	if e.Opt.MaxSkipSize <= 0 {
		return
	}
	e.skipSize *= 2
	if e.skipSize > e.Opt.MaxSkipSize {
		e.skipSize = e.Opt.MaxSkipSize
	}
}

// resetSkip resets skipSize to the configured initial value, on any
// successful read or any change of target block.
func (e *Engine) resetSkip() {
	e.skipSize = e.Opt.InitialSkip
}

// recomputeCounters rebuilds the byte-category counters from the Status
// Map, Domain-filtered (spec.md §4.2).
func (e *Engine) recomputeCounters() {
	counts := e.Map.ByteCounts(e.Dom)
	e.Counters.FinishedSize = counts[block.Finished]
	e.Counters.NonTriedSize = counts[block.NonTried]
	e.Counters.NonTrimmedSize = counts[block.NonTrimmed]
	e.Counters.NonScrapedSize = counts[block.NonScraped]
	e.Counters.BadSectorSize = counts[block.BadSector]
}

// flush persists the Status Map, honoring the throttling formula unless
// force is set (startup, pass boundary, shutdown — spec.md §4.1).
func (e *Engine) flush(force bool) error {
	if e.Map.Filename() == "" {
		return nil
	}
	if !force {
		elapsed := e.now().Sub(e.lastFlush)
		if elapsed < time.Duration(statusmap.FlushThrottleSeconds(e.Map.Len()))*time.Second {
			return nil
		}
	}
	var syncFirst func() error
	if e.Dst != nil {
		syncFirst = e.Dst.Sync
	}
	if err := e.Map.Save(e.mapHeader, syncFirst); err != nil {
		return err
	}
	e.lastFlush = e.now()
	return nil
}

// finalizeSparse extends the destination to cover SparseSize/MinOutfileSize
// if sparse writes left it short (spec.md §4.2).
func (e *Engine) finalizeSparse() {
	if e.Dst == nil {
		return
	}
	target := e.Counters.SparseSize
	if e.Opt.MinOutfileSize > target {
		target = e.Opt.MinOutfileSize
	}
	if target <= 0 {
		return
	}
	cur, err := e.Dst.Size()
	if err != nil || cur >= target {
		return
	}
	_, _ = e.Dst.WriteAt([]byte{0}, target-1)
}

// recordVerify remembers buf (the last successfully read hardbs sector) as
// the verify-on-error comparison copy, reallocating it if hardbs has
// changed since the previous call (spec.md §9 open question).
func (e *Engine) recordVerify(buf []byte, pos int64) {
	if !e.Opt.VerifyOnError {
		return
	}
	if len(e.verifyBuf) != len(buf) {
		e.verifyBuf = append([]byte(nil), buf...)
	} else {
		copy(e.verifyBuf, buf)
	}
	e.verifyPos = pos
	e.haveVerify = true
}

// verifyOnError re-reads the last known-good sector after a read failure
// and aborts the run (exit code 2) if it no longer reads back identically
// (spec.md §5 "Verify-on-error").
func (e *Engine) verifyOnError() error {
	if !e.Opt.VerifyOnError || !e.haveVerify {
		return nil
	}
	buf := make([]byte, len(e.verifyBuf))
	n, rerr := e.Src.ReadAt(buf, e.verifyPos)
	if rerr != nil || n != len(buf) || !bytes.Equal(buf, e.verifyBuf) {
		return rerrors.Corruptf("verify-on-error: source no longer returns consistent data at 0x%x", e.verifyPos)
	}
	return nil
}

// maybeReopen closes and reopens the source after a read error when
// Options.ReopenOnError is set and the source supports it (spec.md §4.2).
func (e *Engine) maybeReopen() {
	if !e.Opt.ReopenOnError {
		return
	}
	if ro, ok := e.Src.(Reopener); ok {
		_ = ro.Reopen()
	}
}

// writeOut writes buf to the destination at pos, eliding an all-zero
// buffer under sparse mode (spec.md §4.2).
func (e *Engine) writeOut(buf []byte, pos int64) error {
	if e.Opt.Sparse && posio.BlockIsZero(buf) {
		end := pos + int64(len(buf))
		if end > e.Counters.SparseSize {
			e.Counters.SparseSize = end
		}
		return nil
	}
	if _, err := e.Dst.WriteAt(buf, pos); err != nil {
		return err
	}
	if fd, ok := e.Dst.(fder); ok {
		_ = posio.FadviseDontNeed(fd.FD(), pos, int64(len(buf)))
	}
	return nil
}

// adviseSequential hints the kernel to widen readahead over the Domain's
// extent at the start of a forward copy_non_tried sub-pass (spec.md §4.2),
// a no-op when Src isn't backed by a real file descriptor.
func (e *Engine) adviseSequential() {
	fd, ok := e.Src.(fder)
	if !ok || e.Dom.IsEmpty() {
		return
	}
	_ = posio.FadviseSequential(fd.FD(), e.Dom.Pos(), e.Dom.Size())
}
