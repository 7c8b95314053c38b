package rescue

import (
	"github.com/mruffalo/ddrescue-sub000/internal/block"
	"github.com/mruffalo/ddrescue-sub000/internal/sigflag"
)

// passTrimErrors runs pass 2 (spec.md §4.2): for every non_trimmed Sblock,
// shrink it from both edges inward until the first bad sector is hit on
// each side, then reclassifies whatever remains in the middle to
// non_scraped.
func (e *Engine) passTrimErrors() (int, error) {
	reverse := e.Opt.Reverse
	pos := e.Dom.Pos()
	if reverse {
		pos = e.Dom.End()
	}
	for {
		if sigflag.Interrupted() {
			return ExitOK, nil
		}
		if e.checkTermination() != 0 {
			return ExitIOError, nil
		}
		var b block.Block
		if !reverse {
			b = e.Map.FindChunk(block.New(pos, 0), block.NonTrimmed, e.Dom, e.Opt.HardBS)
		} else {
			b = e.Map.RFindChunk(block.New(e.Dom.Pos(), pos-e.Dom.Pos()), block.NonTrimmed, e.Dom, e.Opt.HardBS)
		}
		if b.Empty() {
			break
		}
		if err := e.trimOneSblock(b); err != nil {
			return ExitIOError, err
		}
		if err := e.flush(false); err != nil {
			return ExitIOError, err
		}
		if !reverse {
			pos = b.End()
		} else {
			pos = b.Pos
		}
	}
	return ExitOK, nil
}

// trimOneSblock trims b from its front edge forward and its back edge
// backward, hardbs sector at a time, stopping each side at its first error.
// Whatever remains between the two stop points is marked non_scraped.
func (e *Engine) trimOneSblock(b block.Block) error {
	hardbs := e.Opt.HardBS
	if hardbs <= 0 {
		hardbs = 1
	}
	front := b.Pos
	back := b.End()
	buf := make([]byte, hardbs)

	for front < back {
		if sigflag.Interrupted() {
			break
		}
		step := hardbs
		if back-front < step {
			step = back - front
		}
		n, rerr := e.Src.ReadAt(buf[:step], front)
		e.readLog.PrintLine(front, step, int64(n), step-int64(n))
		if rerr != nil || int64(n) < step {
			e.Counters.Errors++
			if verr := e.verifyOnError(); verr != nil {
				return verr
			}
			e.maybeReopen()
			break
		}
		if err := e.writeOut(buf[:step], front); err != nil {
			return err
		}
		if _, err := e.Map.ChangeChunkStatus(block.New(front, step), block.Finished, e.Dom); err != nil {
			return err
		}
		e.Counters.FinishedSize += step
		e.recordVerify(buf[:step], front)
		front += step
	}

	for back > front {
		if sigflag.Interrupted() {
			break
		}
		step := hardbs
		if back-front < step {
			step = back - front
		}
		start := back - step
		n, rerr := e.Src.ReadAt(buf[:step], start)
		e.readLog.PrintLine(start, step, int64(n), step-int64(n))
		if rerr != nil || int64(n) < step {
			e.Counters.Errors++
			if verr := e.verifyOnError(); verr != nil {
				return verr
			}
			e.maybeReopen()
			break
		}
		if err := e.writeOut(buf[:step], start); err != nil {
			return err
		}
		if _, err := e.Map.ChangeChunkStatus(block.New(start, step), block.Finished, e.Dom); err != nil {
			return err
		}
		e.Counters.FinishedSize += step
		e.recordVerify(buf[:step], start)
		back = start
	}

	if back > front {
		if _, err := e.Map.ChangeChunkStatus(block.New(front, back-front), block.NonScraped, e.Dom); err != nil {
			return err
		}
	}
	return nil
}
