// Package statusmap implements the Status Map: an ordered, gap-free vector
// of Sblocks covering a contiguous extent, with search, mutation,
// compaction and the textual on-disk (mapfile) representation that doubles
// as resumable state.
package statusmap

import (
	"fmt"

	"github.com/mruffalo/ddrescue-sub000/internal/block"
	"github.com/mruffalo/ddrescue-sub000/internal/domain"
	"github.com/mruffalo/ddrescue-sub000/internal/rerrors"
)

// PassState is the outer pass-state symbol persisted on the mapfile's
// status line (distinct from an individual Sblock's Status).
type PassState byte

const (
	Copying    PassState = '?'
	Trimming   PassState = '*'
	Scraping   PassState = '/'
	Retrying   PassState = '-'
	Filling    PassState = 'F'
	Generating PassState = 'G'
	PassDone   PassState = '+'
)

// IsPassState reports whether c names one of the seven pass-state symbols.
func IsPassState(c byte) bool {
	switch PassState(c) {
	case Copying, Trimming, Scraping, Retrying, Filling, Generating, PassDone:
		return true
	default:
		return false
	}
}

// StatusMap owns the ordered, gap-free Sblock vector plus the resume hint
// state persisted alongside it.
type StatusMap struct {
	sblocks       []block.Sblock
	currentPos    int64
	currentStatus PassState
	indexHint     int
	filename      string
	maxEntries    int
}

// SetMaxEntries caps the number of Sblocks the map may hold (-l). A change
// that would split past this cap is coarsened to the whole containing
// Sblock instead of the narrower requested block. 0 (the default) means
// unlimited.
func (m *StatusMap) SetMaxEntries(n int) { m.maxEntries = n }

// MaxEntries returns the configured cap, or 0 if unlimited.
func (m *StatusMap) MaxEntries() int { return m.maxEntries }

// NewBlank returns a StatusMap holding a single non-tried Sblock spanning
// [0, size). If size<=0 the Sblock spans [0, block.Max).
func NewBlank(size int64) *StatusMap {
	if size <= 0 {
		size = block.Max
	}
	return &StatusMap{
		sblocks:       []block.Sblock{block.NewSblock(0, size, block.NonTried)},
		currentStatus: Copying,
	}
}

// Filename returns the path this map persists to.
func (m *StatusMap) Filename() string { return m.filename }

// SetFilename sets the path used by Save/Load round trips.
func (m *StatusMap) SetFilename(name string) { m.filename = name }

// CurrentPos is the resume hint position.
func (m *StatusMap) CurrentPos() int64 { return m.currentPos }

// SetCurrentPos updates the resume hint position.
func (m *StatusMap) SetCurrentPos(pos int64) { m.currentPos = pos }

// CurrentStatus is the outer pass-state symbol.
func (m *StatusMap) CurrentStatus() PassState { return m.currentStatus }

// SetCurrentStatus updates the outer pass-state symbol.
func (m *StatusMap) SetCurrentStatus(st PassState) { m.currentStatus = st }

// Sblocks returns the underlying vector (read-only view; never retain or
// mutate elements directly — use the mutator methods below).
func (m *StatusMap) Sblocks() []block.Sblock { return m.sblocks }

// Len returns the number of Sblocks.
func (m *StatusMap) Len() int { return len(m.sblocks) }

// Extent returns the Block spanned by the whole map, or an empty Block at
// 0 if the map holds no Sblocks.
func (m *StatusMap) Extent() block.Block {
	if len(m.sblocks) == 0 {
		return block.New(0, 0)
	}
	first, last := m.sblocks[0], m.sblocks[len(m.sblocks)-1]
	return block.New(first.Pos, last.End()-first.Pos)
}

// FindIndex returns the index of the Sblock containing pos, or -1 if none.
// The cached index hint amortizes sequential scans; it is pure
// optimization and callers must not depend on its value.
func (m *StatusMap) FindIndex(pos int64) int {
	n := len(m.sblocks)
	if n == 0 {
		return -1
	}
	if m.indexHint < 0 || m.indexHint >= n {
		m.indexHint = 0
	}
	i := m.indexHint
	if m.sblocks[i].IncludesPos(pos) {
		return i
	}
	if pos < m.sblocks[i].Pos {
		for i > 0 {
			i--
			if m.sblocks[i].IncludesPos(pos) {
				m.indexHint = i
				return i
			}
		}
		return -1
	}
	for i < n-1 {
		i++
		if m.sblocks[i].IncludesPos(pos) {
			m.indexHint = i
			return i
		}
	}
	return -1
}

// FindChunk narrows b to the first Sblock at or after b.Pos whose status
// equals st and which is included in dom. The returned Block's Pos is
// clamped to that Sblock's start; its Size is the lesser of b.Size and the
// Sblock's remainder. If the result does not reach the Sblock's end it is
// AlignEnd-ed to alignment. Returns an empty Block if none matches.
func (m *StatusMap) FindChunk(b block.Block, st block.Status, dom *domain.Domain, alignment int64) block.Block {
	i := m.FindIndex(b.Pos)
	if i < 0 {
		// b.Pos may sit exactly at the map's end or before its start.
		i = 0
		for i < len(m.sblocks) && m.sblocks[i].End() <= b.Pos {
			i++
		}
	}
	for ; i < len(m.sblocks); i++ {
		sb := m.sblocks[i]
		if sb.Status != st {
			continue
		}
		candidate := block.New(maxI64(sb.Pos, b.Pos), 0)
		remainder := sb.End() - candidate.Pos
		size := b.Size
		if size <= 0 || size > remainder {
			size = remainder
		}
		candidate.Size = size
		if !dom.IncludesBlock(candidate) {
			continue
		}
		if candidate.End() != sb.End() {
			candidate = candidate.AlignEnd(alignment)
		}
		if candidate.Empty() {
			continue
		}
		return candidate
	}
	return block.New(b.Pos, 0)
}

// RFindChunk is the reverse of FindChunk: the last matching Sblock at or
// before b.End()-1, with AlignPos applied symmetrically.
func (m *StatusMap) RFindChunk(b block.Block, st block.Status, dom *domain.Domain, alignment int64) block.Block {
	pos := b.End() - 1
	i := m.FindIndex(pos)
	if i < 0 {
		i = len(m.sblocks) - 1
		for i >= 0 && m.sblocks[i].Pos > pos {
			i--
		}
	}
	for ; i >= 0; i-- {
		sb := m.sblocks[i]
		if sb.Status != st {
			continue
		}
		end := minI64(sb.End(), b.End())
		size := b.Size
		start := end - size
		if size <= 0 || start < sb.Pos {
			start = sb.Pos
		}
		candidate := block.New(start, end-start)
		if !dom.IncludesBlock(candidate) {
			continue
		}
		if candidate.Pos != sb.Pos {
			candidate = candidate.AlignPos(alignment)
		}
		if candidate.Empty() {
			continue
		}
		return candidate
	}
	return block.New(b.End(), 0)
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// SplitSblockByIndex splits Sblock i at p if p lies strictly inside it:
// inserts [Sblock[i].Pos, p) before it and narrows Sblock i to [p, end).
// No status change. Returns the (possibly unchanged) index of the Sblock
// now covering p.
func (m *StatusMap) SplitSblockByIndex(p int64, i int) int {
	if i < 0 || i >= len(m.sblocks) {
		return i
	}
	sb := m.sblocks[i]
	if !sb.IncludesPos(p) || p == sb.Pos {
		return i
	}
	prefix, suffix := sb.Split(p, 1)
	m.sblocks = append(m.sblocks, block.Sblock{})
	copy(m.sblocks[i+1:], m.sblocks[i:])
	m.sblocks[i] = prefix
	m.sblocks[i+1] = suffix
	return i + 1
}

// SplitAtDomainBorders splits every Sblock whose interior is crossed by a
// Domain boundary, so no Sblock straddles a Domain edge.
func (m *StatusMap) SplitAtDomainBorders(dom *domain.Domain) {
	i := 0
	for i < len(m.sblocks) {
		sb := m.sblocks[i]
		at := dom.BreaksBlockBy(sb.Block)
		if at == 0 {
			i++
			continue
		}
		newIdx := m.SplitSblockByIndex(at, i)
		if newIdx == i {
			// nothing split (shouldn't happen given BreaksBlockBy's
			// contract), advance to avoid looping forever.
			i++
		}
		// re-examine Sblock i (now the prefix) for further interior borders.
	}
}

// Compact folds each pair of adjacent equal-status Sblocks. Idempotent.
func (m *StatusMap) Compact() {
	if len(m.sblocks) < 2 {
		return
	}
	out := m.sblocks[:1]
	for _, sb := range m.sblocks[1:] {
		last := out[len(out)-1]
		if merged, ok := last.Join(sb); ok {
			out[len(out)-1] = merged
			continue
		}
		out = append(out, sb)
	}
	m.sblocks = out
	m.indexHint = 0
}

// TruncateVector drops every Sblock at or past end and narrows the one
// straddling end so its End becomes end. If no Sblock remains, inserts a
// single empty non-tried Sblock at end.
func (m *StatusMap) TruncateVector(end int64) {
	var out []block.Sblock
	for _, sb := range m.sblocks {
		if sb.Pos >= end {
			break
		}
		if sb.End() > end {
			sb.Size = end - sb.Pos
		}
		out = append(out, sb)
	}
	if len(out) == 0 {
		out = []block.Sblock{block.NewSblock(end, 0, block.NonTried)}
	}
	m.sblocks = out
	m.indexHint = 0
}

// ChangeChunkStatus is the central mutator. b must be strictly interior to
// dom and included in exactly one Sblock of that Domain; violations are
// reported as internal errors (exit-code-3 class) per spec.md §7. Returns
// +1/0/-1 reflecting whether the change added, preserved, or removed a
// "bad" (non-IsGood) area as seen from the Domain-filtered neighbor
// statuses.
func (m *StatusMap) ChangeChunkStatus(b block.Block, st block.Status, dom *domain.Domain) (delta int, err error) {
	if b.Empty() {
		return 0, nil
	}
	if !dom.IncludesBlock(b) {
		return 0, rerrors.Panicf("change_chunk_status: block %v not included in domain", b)
	}
	i := m.FindIndex(b.Pos)
	if i < 0 {
		return 0, rerrors.Panicf("change_chunk_status: no sblock contains %d", b.Pos)
	}
	if !m.sblocks[i].IncludesBlock(b) {
		return 0, rerrors.Panicf("change_chunk_status: block %v spans multiple sblocks", b)
	}
	sb := m.sblocks[i]
	if sb.Status == st {
		return 0, nil
	}

	oldGood := block.IsGood(sb.Status)
	newGood := block.IsGood(st)

	if m.maxEntries > 0 && b != sb.Block {
		added := 1
		if b.Pos != sb.Pos && b.End() != sb.End() {
			added = 2
		}
		if len(m.sblocks)+added > m.maxEntries {
			// falling back to coarser splitting: apply st to the whole
			// containing Sblock rather than exceed the entry cap.
			b = sb.Block
		}
	}

	// Goodness of the bytes just outside b: the rest of the containing
	// Sblock, or the neighbor Sblock when b reaches an edge and the Domain
	// continues across that edge.
	leftGood, rightGood := oldGood, oldGood
	if b.Pos == sb.Pos {
		leftGood = i == 0 || !dom.IncludesBlock(block.New(sb.Pos-1, 2)) || block.IsGood(m.sblocks[i-1].Status)
	}
	if b.End() == sb.End() {
		rightGood = i+1 >= len(m.sblocks) || !dom.IncludesBlock(block.New(sb.End()-1, 2)) || block.IsGood(m.sblocks[i+1].Status)
	}

	switch {
	case b == sb.Block:
		m.sblocks[i] = block.Sblock{Block: sb.Block, Status: st}
	case b.Pos == sb.Pos:
		// touches the left edge: split into [b | rest]
		_, rest := sb.Split(b.End(), 1)
		m.sblocks[i] = block.Sblock{Block: b, Status: st}
		m.sblocks = insertAt(m.sblocks, i+1, block.Sblock{Block: rest.Block, Status: sb.Status})
	case b.End() == sb.End():
		// touches the right edge: split into [rest | b]
		rest, _ := sb.Split(b.Pos, 1)
		m.sblocks[i] = block.Sblock{Block: rest.Block, Status: sb.Status}
		m.sblocks = insertAt(m.sblocks, i+1, block.Sblock{Block: b, Status: st})
		i++
	default:
		// strictly interior: split into three
		left, rightAndMid := sb.Split(b.Pos, 1)
		_, right := rightAndMid.Split(b.End(), 1)
		m.sblocks[i] = block.Sblock{Block: left.Block, Status: sb.Status}
		m.sblocks = insertAt(m.sblocks, i+1, block.Sblock{Block: b, Status: st})
		m.sblocks = insertAt(m.sblocks, i+2, block.Sblock{Block: right.Block, Status: sb.Status})
		i++
	}

	// merge with same-status neighbors, filtered by domain adjacency.
	if i+1 < len(m.sblocks) && m.sblocks[i+1].Status == st && dom.BreaksBlockBy(block.New(m.sblocks[i].Pos, m.sblocks[i+1].End()-m.sblocks[i].Pos)) == 0 {
		if merged, ok := m.sblocks[i].Join(m.sblocks[i+1]); ok {
			m.sblocks[i] = merged
			m.sblocks = append(m.sblocks[:i+1], m.sblocks[i+2:]...)
		}
	}
	if i > 0 && m.sblocks[i-1].Status == st && dom.BreaksBlockBy(block.New(m.sblocks[i-1].Pos, m.sblocks[i].End()-m.sblocks[i-1].Pos)) == 0 {
		if merged, ok := m.sblocks[i-1].Join(m.sblocks[i]); ok {
			m.sblocks[i-1] = merged
			m.sblocks = append(m.sblocks[:i], m.sblocks[i+1:]...)
			i--
		}
	}
	m.indexHint = i

	switch {
	case oldGood == newGood || leftGood != rightGood:
		delta = 0
	case leftGood == newGood:
		// an isolated bad area became good, or two bad areas were joined
		delta = -1
	default:
		// a new isolated bad area, or one bad area split in two
		delta = +1
	}
	return delta, nil
}

func insertAt(s []block.Sblock, i int, sb block.Sblock) []block.Sblock {
	s = append(s, block.Sblock{})
	copy(s[i+1:], s[i:])
	s[i] = sb
	return s
}

// ExtendToSize grows the map to cover [0, isize) when isize>0, filling any
// missing bytes at either end as non-tried (spec.md §3 Lifecycle). If the
// map is empty it becomes a single non-tried Sblock spanning [0, isize);
// isize<=0 means "unknown size", spanning to block.Max instead.
func (m *StatusMap) ExtendToSize(isize int64) {
	if len(m.sblocks) == 0 {
		size := isize
		if size <= 0 {
			size = block.Max
		}
		m.sblocks = []block.Sblock{block.NewSblock(0, size, block.NonTried)}
		return
	}
	if front := m.sblocks[0]; front.Pos > 0 {
		m.sblocks = append([]block.Sblock{block.NewSblock(0, front.Pos, block.NonTried)}, m.sblocks...)
	}
	back := m.sblocks[len(m.sblocks)-1]
	end := back.End()
	if isize > 0 {
		if back.Pos >= isize {
			if back.Pos == isize && back.Status == block.NonTried {
				m.sblocks = m.sblocks[:len(m.sblocks)-1]
			}
			return
		}
		if end < 0 || end > isize {
			m.sblocks[len(m.sblocks)-1].Size = isize - back.Pos
		} else if end < isize {
			m.sblocks = append(m.sblocks, block.NewSblock(end, isize-end, block.NonTried))
		}
	} else if end >= 0 {
		sb := block.NewSblock(end, block.Max-end, block.NonTried)
		if sb.Size > 0 {
			m.sblocks = append(m.sblocks, sb)
		}
	}
	m.indexHint = 0
}

// Reclassify resets every Sblock with status `from` to `to`, within dom if
// non-nil (nil means the whole map). Used by -A (non_trimmed/non_scraped
// -> non_tried) and -M (non_scraped/bad_sector -> non_trimmed).
func (m *StatusMap) Reclassify(from, to block.Status, dom *domain.Domain) {
	for i := range m.sblocks {
		if m.sblocks[i].Status != from {
			continue
		}
		if dom != nil && !dom.IncludesBlock(m.sblocks[i].Block) {
			continue
		}
		m.sblocks[i].Status = to
	}
	m.Compact()
}

// ByteCounts sums the bytes of every Sblock by status, restricted to dom
// when non-nil.
func (m *StatusMap) ByteCounts(dom *domain.Domain) map[block.Status]int64 {
	counts := make(map[block.Status]int64, 5)
	for _, sb := range m.sblocks {
		sz := sb.Size
		if dom != nil {
			sz = 0
			for _, db := range dom.Blocks() {
				sz += sb.Block.Crop(db).Size
			}
		}
		counts[sb.Status] += sz
	}
	return counts
}

// ErrorAreaCount counts the maximal runs of non-IsGood Sblocks overlapping
// dom (the whole map's Extent if dom is nil), merging adjacent non-good
// Sblocks of differing statuses into a single area. Used to adjust
// max_errors for -e +N (new_errors_only): original_source/rescuebook.cc's
// one-time "max_errors += errors" startup adjustment counts pre-existing
// error areas this same way, not error bytes.
func (m *StatusMap) ErrorAreaCount(dom *domain.Domain) int {
	dbs := []block.Block{m.Extent()}
	if dom != nil {
		dbs = dom.Blocks()
	}
	n := 0
	for _, db := range dbs {
		inRun := false
		for _, sb := range m.sblocks {
			c := sb.Block.Crop(db)
			if c.Empty() {
				continue
			}
			if block.IsGood(sb.Status) {
				inRun = false
				continue
			}
			if !inRun {
				n++
				inRun = true
			}
		}
	}
	return n
}

// String implements fmt.Stringer for debugging.
func (m *StatusMap) String() string {
	return fmt.Sprintf("StatusMap{sblocks=%d, pos=%d, status=%c}", len(m.sblocks), m.currentPos, m.currentStatus)
}
