package rescue

import (
	"github.com/mruffalo/ddrescue-sub000/internal/block"
	"github.com/mruffalo/ddrescue-sub000/internal/sigflag"
)

// passScrapeErrors runs pass 3 (spec.md §4.2): a sector-by-sector scan of
// every non_scraped Sblock, classifying each hardbs sector individually as
// finished or bad_sector.
func (e *Engine) passScrapeErrors() (int, error) {
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
			b = e.Map.FindChunk(block.New(pos, 0), block.NonScraped, e.Dom, e.Opt.HardBS)
		} else {
			b = e.Map.RFindChunk(block.New(e.Dom.Pos(), pos-e.Dom.Pos()), block.NonScraped, e.Dom, e.Opt.HardBS)
		}
		if b.Empty() {
			break
		}
		if err := e.scrapeOneSblock(b, reverse); err != nil {
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

// scrapeOneSblock reads b sector by sector, in the given direction,
// reclassifying each sector to finished or bad_sector.
func (e *Engine) scrapeOneSblock(b block.Block, reverse bool) error {
	hardbs := e.Opt.HardBS
	if hardbs <= 0 {
		hardbs = 1
	}
	buf := make([]byte, hardbs)

	classify := func(start, step int64) error {
		n, rerr := e.Src.ReadAt(buf[:step], start)
		e.readLog.PrintLine(start, step, int64(n), step-int64(n))
		st := block.Finished
		if rerr != nil || int64(n) < step {
			st = block.BadSector
			e.Counters.Errors++
			if verr := e.verifyOnError(); verr != nil {
				return verr
			}
			e.maybeReopen()
		} else if err := e.writeOut(buf[:step], start); err != nil {
			return err
		}
		if _, err := e.Map.ChangeChunkStatus(block.New(start, step), st, e.Dom); err != nil {
			return err
		}
		if st == block.Finished {
			e.Counters.FinishedSize += step
			e.recordVerify(buf[:step], start)
		}
		return nil
	}

	if !reverse {
		pos := b.Pos
		end := b.End()
		for pos < end {
			if sigflag.Interrupted() {
				return nil
			}
			step := hardbs
			if end-pos < step {
				step = end - pos
			}
			if err := classify(pos, step); err != nil {
				return err
			}
			pos += step
		}
		return nil
	}

	pos := b.End()
	limit := b.Pos
	for pos > limit {
		if sigflag.Interrupted() {
			return nil
		}
		step := hardbs
		if pos-limit < step {
			step = pos - limit
		}
		start := pos - step
		if err := classify(start, step); err != nil {
			return err
		}
		pos = start
	}
	return nil
}
