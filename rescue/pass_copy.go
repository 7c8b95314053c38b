package rescue

import (
	"time"

	"github.com/mruffalo/ddrescue-sub000/internal/block"
	"github.com/mruffalo/ddrescue-sub000/internal/sigflag"
	"github.com/mruffalo/ddrescue-sub000/internal/statusmap"
)

// passCopyNonTried runs up to three copy_non_tried sub-passes (spec.md
// §4.2 pass 1), alternating forward/reverse unless Unidirectional is set.
func (e *Engine) passCopyNonTried() (int, error) {
	reverse := e.Opt.Reverse
	for sub := 0; sub < 3; sub++ {
		if sigflag.Interrupted() {
			return ExitOK, nil
		}
		if e.checkTermination() != 0 {
			return ExitIOError, nil
		}
		e.resetSkip()
		e.Map.SetCurrentStatus(statusmap.Copying)
		if err := e.copyNonTriedOnePass(reverse, sub); err != nil {
			return ExitIOError, err
		}
		e.recomputeCounters()
		if e.Counters.NonTriedSize == 0 {
			break
		}
		if !e.Opt.Unidirectional {
			reverse = !reverse
		}
	}
	return ExitOK, nil
}

// copyNonTriedOnePass walks the Domain once, forward or reverse, copying
// every non_tried chunk of up to SoftBS bytes it finds. sub is the
// sub-pass index (0, 1 or 2); only sub 0 and 1 skip ahead on a slow read
// (original_source/rescuebook.cc:301,353 gate skip-ahead with pass <= 2),
// sub 2 is a plain non-skipping mop-up sweep.
func (e *Engine) copyNonTriedOnePass(reverse bool, sub int) error {
	softbs := e.Opt.SoftBS()
	if !reverse {
		e.adviseSequential()
		pos := e.Dom.Pos()
		if e.Map.CurrentStatus() == statusmap.Copying && e.Dom.IncludesPos(e.Map.CurrentPos()) {
			pos = e.Map.CurrentPos()
		}
		end := e.Dom.End()
		for pos < end {
			if sigflag.Interrupted() {
				return nil
			}
			if e.checkTermination() != 0 {
				return nil
			}
			b := e.Map.FindChunk(block.New(pos, softbs), block.NonTried, e.Dom, e.Opt.HardBS)
			if b.Empty() {
				break
			}
			next, err := e.copyChunkForward(b, sub)
			if err != nil {
				return err
			}
			e.Map.SetCurrentPos(next)
			if err := e.flush(false); err != nil {
				return err
			}
			pos = next
		}
		return nil
	}

	pos := e.Dom.End()
	end := e.Dom.Pos()
	for pos > end {
		if sigflag.Interrupted() {
			return nil
		}
		if e.checkTermination() != 0 {
			return nil
		}
		start := pos - softbs
		if start < end {
			start = end
		}
		b := e.Map.RFindChunk(block.New(start, pos-start), block.NonTried, e.Dom, e.Opt.HardBS)
		if b.Empty() {
			break
		}
		prev, err := e.copyChunkReverse(b, sub)
		if err != nil {
			return err
		}
		e.Map.SetCurrentPos(prev)
		if err := e.flush(false); err != nil {
			return err
		}
		pos = prev
	}
	return nil
}

// copyChunkForward reads b in increasing hardbs-sized steps, handling
// errors, EOF and slow-read skip-ahead (spec.md §4.2). sub selects the
// copy_non_tried sub-pass; skip-ahead is disabled on sub 2, the
// non-skipping mop-up sweep. Returns the position just past the last
// byte it touched.
func (e *Engine) copyChunkForward(b block.Block, sub int) (int64, error) {
	hardbs := e.Opt.HardBS
	if hardbs <= 0 {
		hardbs = 1
	}
	pos := b.Pos
	end := b.End()
	buf := make([]byte, hardbs)
	for pos < end {
		if sigflag.Interrupted() {
			return pos, nil
		}
		step := hardbs
		if end-pos < step {
			step = end - pos
		}
		chunk := buf[:step]
		t0 := e.now()
		n, rerr := e.Src.ReadAt(chunk, pos)
		dur := e.now().Sub(t0)
		rate := instRate(int64(n), dur)
		e.avg.Add(rate)
		e.readLog.PrintLine(pos, step, int64(n), step-int64(n))
		e.maybeEmitRateTick(pos, rate)

		if rerr != nil {
			if _, err := e.Map.ChangeChunkStatus(block.New(pos, end-pos), block.NonTrimmed, e.Dom); err != nil {
				return pos, err
			}
			e.Counters.Errors++
			if verr := e.verifyOnError(); verr != nil {
				return pos, verr
			}
			e.maybeReopen()
			return end, nil
		}
		if int64(n) < step {
			if n > 0 {
				if err := e.writeOut(chunk[:n], pos); err != nil {
					return pos, err
				}
				if _, err := e.Map.ChangeChunkStatus(block.New(pos, int64(n)), block.Finished, e.Dom); err != nil {
					return pos, err
				}
				e.Counters.FinishedSize += int64(n)
			}
			eos := pos + int64(n)
			e.Map.TruncateVector(eos)
			e.Dom.CropByFileSize(eos)
			return eos, nil
		}
		if sub < 2 && e.slowRead(rate) {
			e.bumpSkip()
			skipTo := pos + e.skipSize
			if skipTo > end {
				skipTo = end
			}
			pos = skipTo
			continue
		}
		if err := e.writeOut(chunk, pos); err != nil {
			return pos, err
		}
		if _, err := e.Map.ChangeChunkStatus(block.New(pos, step), block.Finished, e.Dom); err != nil {
			return pos, err
		}
		e.Counters.FinishedSize += step
		e.resetSkip()
		e.lastGoodRead = e.now()
		e.recordVerify(chunk, pos)
		pos += step
	}
	return pos, nil
}

// copyChunkReverse is the reverse-direction symmetric counterpart:
// stepping from b.End() down to b.Pos(). sub selects the copy_non_tried
// sub-pass; skip-ahead is disabled on sub 2. Returns the position of the
// earliest byte it touched.
func (e *Engine) copyChunkReverse(b block.Block, sub int) (int64, error) {
	hardbs := e.Opt.HardBS
	if hardbs <= 0 {
		hardbs = 1
	}
	pos := b.End()
	limit := b.Pos
	buf := make([]byte, hardbs)
	for pos > limit {
		if sigflag.Interrupted() {
			return pos, nil
		}
		step := hardbs
		if pos-limit < step {
			step = pos - limit
		}
		start := pos - step
		chunk := buf[:step]
		t0 := e.now()
		n, rerr := e.Src.ReadAt(chunk, start)
		dur := e.now().Sub(t0)
		rate := instRate(int64(n), dur)
		e.avg.Add(rate)
		e.readLog.PrintLine(start, step, int64(n), step-int64(n))
		e.maybeEmitRateTick(start, rate)

		if rerr != nil {
			if _, err := e.Map.ChangeChunkStatus(block.New(limit, pos-limit), block.NonTrimmed, e.Dom); err != nil {
				return pos, err
			}
			e.Counters.Errors++
			if verr := e.verifyOnError(); verr != nil {
				return pos, verr
			}
			e.maybeReopen()
			return limit, nil
		}
		if int64(n) < step {
			// short read going backward has no EOF meaning; treat as error.
			if _, err := e.Map.ChangeChunkStatus(block.New(start, step), block.NonTrimmed, e.Dom); err != nil {
				return pos, err
			}
			return start, nil
		}
		if sub < 2 && e.slowRead(rate) {
			e.bumpSkip()
			skipTo := start - e.skipSize
			if skipTo < limit {
				skipTo = limit
			}
			pos = skipTo
			continue
		}
		if err := e.writeOut(chunk, start); err != nil {
			return pos, err
		}
		if _, err := e.Map.ChangeChunkStatus(block.New(start, step), block.Finished, e.Dom); err != nil {
			return pos, err
		}
		e.Counters.FinishedSize += step
		e.resetSkip()
		e.lastGoodRead = e.now()
		e.recordVerify(chunk, start)
		pos = start
	}
	return pos, nil
}

// instRate converts n bytes transferred in dur into a bytes/sec rate,
// treating an unmeasurably fast read as an effectively infinite rate.
func instRate(n int64, dur time.Duration) int64 {
	if dur <= 0 {
		return 1 << 40
	}
	return int64(n) * int64(time.Second) / int64(dur)
}

// maybeEmitRateTick appends a rate-logger line once per second of
// wall-clock progress (spec.md §4.4).
func (e *Engine) maybeEmitRateTick(ipos, curRate int64) {
	now := e.now()
	if now.Sub(e.lastTick) < time.Second {
		return
	}
	e.lastTick = now
	e.Counters.ErrorRate = e.errorRatePerSecond()
	e.rateLog.PrintLine(now.Sub(e.passStart), ipos, curRate, e.avg.Average(), e.Counters.Errors, e.Counters.NonTrimmedSize+e.Counters.NonScrapedSize+e.Counters.BadSectorSize)
}

// errorRatePerSecond is a coarse proxy used only to evaluate the
// max_error_rate termination condition: bytes newly marked bad since the
// last tick. Exact accounting is left to the caller via Counters.Errors.
func (e *Engine) errorRatePerSecond() int64 {
	prev := e.Counters.NonTrimmedSize + e.Counters.NonScrapedSize + e.Counters.BadSectorSize
	e.recomputeCounters()
	cur := e.Counters.NonTrimmedSize + e.Counters.NonScrapedSize + e.Counters.BadSectorSize
	if cur < prev {
		return 0
	}
	return cur - prev
}
