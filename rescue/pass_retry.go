package rescue

import (
	"github.com/mruffalo/ddrescue-sub000/internal/block"
	"github.com/mruffalo/ddrescue-sub000/internal/sigflag"
)

// passCopyErrors runs pass 4 (spec.md §4.2): up to MaxRetries complete
// passes over every bad_sector Sblock, alternating direction each attempt
// unless Unidirectional is set. MaxRetries<0 means unlimited, bounded in
// practice by the error-count/error-rate/timeout termination conditions.
func (e *Engine) passCopyErrors() (int, error) {
	reverse := e.Opt.Reverse
	retries := e.Opt.MaxRetries
	for attempt := 0; retries < 0 || attempt < retries; attempt++ {
		if sigflag.Interrupted() {
			return ExitOK, nil
		}
		if e.checkTermination() != 0 {
			return ExitIOError, nil
		}
		e.recomputeCounters()
		if e.Counters.BadSectorSize == 0 {
			break
		}
		if err := e.retryOnePass(reverse); err != nil {
			return ExitIOError, err
		}
		if !e.Opt.Unidirectional {
			reverse = !reverse
		}
	}
	return ExitOK, nil
}

// retryOnePass walks every bad_sector Sblock once, in the given direction,
// re-reading it sector by sector; a sector that now reads clean is
// reclassified to finished, one that still fails stays bad_sector.
func (e *Engine) retryOnePass(reverse bool) error {
	hardbs := e.Opt.HardBS
	if hardbs <= 0 {
		hardbs = 1
	}
	pos := e.Dom.Pos()
	if reverse {
		pos = e.Dom.End()
	}
	for {
		if sigflag.Interrupted() {
			return nil
		}
		if e.checkTermination() != 0 {
			return nil
		}
		var b block.Block
		if !reverse {
			b = e.Map.FindChunk(block.New(pos, 0), block.BadSector, e.Dom, hardbs)
		} else {
			b = e.Map.RFindChunk(block.New(e.Dom.Pos(), pos-e.Dom.Pos()), block.BadSector, e.Dom, hardbs)
		}
		if b.Empty() {
			break
		}
		if !reverse {
			p := b.Pos
			for p < b.End() {
				step := hardbs
				if b.End()-p < step {
					step = b.End() - p
				}
				if err := e.retrySector(p, step); err != nil {
					return err
				}
				p += step
			}
			pos = b.End()
		} else {
			p := b.End()
			for p > b.Pos {
				step := hardbs
				if p-b.Pos < step {
					step = p - b.Pos
				}
				start := p - step
				if err := e.retrySector(start, step); err != nil {
					return err
				}
				p = start
			}
			pos = b.Pos
		}
		if err := e.flush(false); err != nil {
			return err
		}
	}
	return nil
}

// retrySector re-reads a single hardbs sector previously marked bad_sector,
// reclassifying it to finished on a clean read.
func (e *Engine) retrySector(pos, step int64) error {
	buf := make([]byte, step)
	n, rerr := e.Src.ReadAt(buf, pos)
	e.readLog.PrintLine(pos, step, int64(n), step-int64(n))
	if rerr != nil || int64(n) < step {
		if verr := e.verifyOnError(); verr != nil {
			return verr
		}
		e.maybeReopen()
		return nil
	}
	if err := e.writeOut(buf, pos); err != nil {
		return err
	}
	if _, err := e.Map.ChangeChunkStatus(block.New(pos, step), block.Finished, e.Dom); err != nil {
		return err
	}
	e.recordVerify(buf, pos)
	e.Counters.FinishedSize += step
	return nil
}
