// Package domain implements the Domain: the ordered, disjoint set of Blocks
// the rescue engine is permitted to touch.
package domain

import (
	"sort"

	"github.com/mruffalo/ddrescue-sub000/internal/block"
)

// Domain is an ordered sequence of non-overlapping, non-adjacent Blocks.
// A Domain may be empty, meaning an unsatisfiable mask.
type Domain struct {
	blocks []block.Block
}

// New builds a Domain spanning a single Block [pos, pos+size).
func New(pos, size int64) *Domain {
	return &Domain{blocks: []block.Block{block.New(pos, size)}}
}

// Empty returns a Domain with no Blocks at all.
func Empty() *Domain {
	return &Domain{}
}

// FromBlocks builds a Domain from disjoint blocks in any order, as read
// from a finished-only mapfile restriction: it sorts them by position and
// merges adjacent ones.
func FromBlocks(blocks []block.Block) *Domain {
	sorted := append([]block.Block(nil), blocks...)
	sortBlocks(sorted)
	d := &Domain{}
	for _, b := range sorted {
		d.add(b)
	}
	return d
}

// add appends b, merging with the last block if adjacent. Callers are
// expected to add in increasing-position order.
func (d *Domain) add(b block.Block) {
	if b.Empty() {
		return
	}
	if n := len(d.blocks); n > 0 {
		if merged, ok := d.blocks[n-1].Join(b); ok {
			d.blocks[n-1] = merged
			return
		}
	}
	d.blocks = append(d.blocks, b)
}

// Blocks returns the underlying block list (read-only view).
func (d *Domain) Blocks() []block.Block { return d.blocks }

// IsEmpty reports whether the Domain contains no bytes at all.
func (d *Domain) IsEmpty() bool { return len(d.blocks) == 0 }

// Pos returns the start of the first Block.
func (d *Domain) Pos() int64 {
	if d.IsEmpty() {
		return 0
	}
	return d.blocks[0].Pos
}

// End returns the end of the last Block.
func (d *Domain) End() int64 {
	if d.IsEmpty() {
		return 0
	}
	return d.blocks[len(d.blocks)-1].End()
}

// Size returns End()-Pos(), the span covered including any internal gaps.
func (d *Domain) Size() int64 {
	if d.IsEmpty() {
		return 0
	}
	return d.End() - d.Pos()
}

// InSize returns the sum of the sizes of every Block (excludes gaps).
func (d *Domain) InSize() int64 {
	var s int64
	for _, b := range d.blocks {
		s += b.Size
	}
	return s
}

// Less reports whether the whole Domain lies strictly before b, i.e. the
// Domain's end is at or before b's start.
func (d *Domain) Less(b block.Block) bool {
	if d.IsEmpty() {
		return true
	}
	return d.End() <= b.Pos
}

// BreaksBlockBy returns the first interior boundary of b that coincides
// with a Domain edge, or 0 if none.
func (d *Domain) BreaksBlockBy(b block.Block) int64 {
	for _, db := range d.blocks {
		if b.IncludesPos(db.Pos) && b.Pos < db.Pos {
			return db.Pos
		}
		end := db.End()
		if b.IncludesPos(end) && b.Pos < end {
			return end
		}
	}
	return 0
}

// IncludesBlock reports whether some single Domain Block fully contains b.
func (d *Domain) IncludesBlock(b block.Block) bool {
	for _, db := range d.blocks {
		if db.IncludesBlock(b) {
			return true
		}
	}
	return false
}

// IncludesPos reports whether pos lies in some Domain Block.
func (d *Domain) IncludesPos(pos int64) bool {
	for _, db := range d.blocks {
		if db.IncludesPos(pos) {
			return true
		}
	}
	return false
}

// Crop intersects the Domain with limit, dropping anything outside it.
func (d *Domain) Crop(limit block.Block) {
	var out []block.Block
	for _, b := range d.blocks {
		c := b.Crop(limit)
		if !c.Empty() {
			out = append(out, c)
		}
	}
	d.blocks = out
}

// CropByFileSize removes everything at or past end, shrinking a
// straddling final Block.
func (d *Domain) CropByFileSize(end int64) {
	d.Crop(block.New(0, end))
}

// Intersect returns a new Domain holding the overlap of d and o, used by
// -m to restrict the rescue domain to another mapfile's finished blocks.
func (d *Domain) Intersect(o *Domain) *Domain {
	var out []block.Block
	for _, a := range d.blocks {
		for _, b := range o.blocks {
			c := a.Crop(b)
			if !c.Empty() {
				out = append(out, c)
			}
		}
	}
	return FromBlocks(out)
}

// sortBlocks is used by FromBlocks callers that cannot guarantee order.
func sortBlocks(blocks []block.Block) {
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Pos < blocks[j].Pos })
}
