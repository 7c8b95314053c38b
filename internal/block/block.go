// Package block implements the half-open byte interval that anchors every
// other data structure in the rescue engine: Block and its status-tagged
// variant Sblock.
package block

import "math"

// Max is the largest representable end position. pos+size must never
// exceed it.
const Max = math.MaxInt64

// Block is a half-open byte interval [Pos, Pos+Size).
type Block struct {
	Pos  int64
	Size int64
}

// New returns the Block [pos, pos+size).
func New(pos, size int64) Block {
	return Block{Pos: pos, Size: size}
}

// End returns pos+size.
func (b Block) End() int64 { return b.Pos + b.Size }

// FixSize clamps Size so Pos+Size does not overflow Max.
func (b Block) FixSize() Block {
	if b.Size < 0 || b.Size > Max-b.Pos {
		b.Size = Max - b.Pos
	}
	return b
}

// Follows reports whether b starts exactly where o ends.
func (b Block) Follows(o Block) bool { return b.Pos == o.End() }

// IncludesBlock reports whether b fully contains o.
func (b Block) IncludesBlock(o Block) bool {
	return b.Pos <= o.Pos && b.End() >= o.End()
}

// IncludesPos reports whether pos lies in [b.Pos, b.End()).
func (b Block) IncludesPos(pos int64) bool {
	return b.Pos <= pos && pos < b.End()
}

// Empty reports whether the block has zero size.
func (b Block) Empty() bool { return b.Size == 0 }

// Crop intersects b with o, returning the overlap (possibly empty, with
// Pos set to the later of the two starts).
func (b Block) Crop(o Block) Block {
	pos := max64(b.Pos, o.Pos)
	end := min64(b.End(), o.End())
	if end < pos {
		end = pos
	}
	return Block{Pos: pos, Size: end - pos}
}

// Join merges b with an adjacent block o (in either order), returning the
// merged block and true, or the receiver unchanged and false if they are
// not adjacent.
func (b Block) Join(o Block) (Block, bool) {
	switch {
	case b.Follows(o):
		return Block{Pos: o.Pos, Size: o.Size + b.Size}, true
	case o.Follows(b):
		return Block{Pos: b.Pos, Size: b.Size + o.Size}, true
	default:
		return b, false
	}
}

// Split rounds at down to a multiple of hardbs (default 1 when hardbs<=0),
// and if that rounded point lies strictly inside the receiver, returns the
// prefix [Pos, at) and narrows the receiver (via the returned Block) to the
// suffix [at, End()). If at does not lie strictly interior the receiver is
// returned unchanged as the "suffix" and the prefix is empty at b.Pos.
func (b Block) Split(at int64, hardbs int64) (prefix, suffix Block) {
	if hardbs <= 0 {
		hardbs = 1
	}
	at -= at % hardbs
	if at <= b.Pos || at >= b.End() {
		return Block{Pos: b.Pos, Size: 0}, b
	}
	prefix = Block{Pos: b.Pos, Size: at - b.Pos}
	suffix = Block{Pos: at, Size: b.End() - at}
	return prefix, suffix
}

// AlignPos advances Pos to the next multiple of alignment, provided the
// shift still fits inside the block.
func (b Block) AlignPos(alignment int64) Block {
	if alignment <= 1 {
		return b
	}
	rem := b.Pos % alignment
	if rem == 0 {
		return b
	}
	shift := alignment - rem
	if shift >= b.Size {
		return b
	}
	b.Pos += shift
	b.Size -= shift
	return b
}

// AlignEnd retreats End to the previous multiple of alignment, provided a
// non-empty remainder survives.
func (b Block) AlignEnd(alignment int64) Block {
	if alignment <= 1 {
		return b
	}
	end := b.End()
	rem := end % alignment
	if rem == 0 {
		return b
	}
	newEnd := end - rem
	if newEnd <= b.Pos {
		return b
	}
	b.Size = newEnd - b.Pos
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
