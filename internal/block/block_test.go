package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndAndIncludes(t *testing.T) {
	b := New(100, 50)
	assert.Equal(t, int64(150), b.End())
	assert.True(t, b.IncludesPos(100))
	assert.True(t, b.IncludesPos(149))
	assert.False(t, b.IncludesPos(150))
	assert.True(t, b.IncludesBlock(New(110, 10)))
	assert.False(t, b.IncludesBlock(New(110, 100)))
}

func TestFollowsAndJoin(t *testing.T) {
	a := New(0, 10)
	b := New(10, 5)
	assert.True(t, b.Follows(a))
	assert.False(t, a.Follows(b))

	merged, ok := a.Join(b)
	assert.True(t, ok)
	assert.Equal(t, New(0, 15), merged)

	merged2, ok2 := b.Join(a)
	assert.True(t, ok2)
	assert.Equal(t, New(0, 15), merged2)

	_, ok3 := New(0, 10).Join(New(20, 5))
	assert.False(t, ok3)
}

func TestCrop(t *testing.T) {
	a := New(0, 100)
	b := New(50, 100)
	c := a.Crop(b)
	assert.Equal(t, New(50, 50), c)

	d := New(0, 10).Crop(New(20, 10))
	assert.True(t, d.Empty())
}

func TestSplit(t *testing.T) {
	b := New(0, 100)
	prefix, suffix := b.Split(40, 1)
	assert.Equal(t, New(0, 40), prefix)
	assert.Equal(t, New(40, 60), suffix)

	// at rounds down to multiple of hardbs
	prefix2, suffix2 := b.Split(45, 10)
	assert.Equal(t, New(0, 40), prefix2)
	assert.Equal(t, New(40, 60), suffix2)

	// at not strictly interior: unchanged
	prefix3, suffix3 := b.Split(0, 1)
	assert.True(t, prefix3.Empty())
	assert.Equal(t, b, suffix3)

	prefix4, suffix4 := b.Split(100, 1)
	assert.True(t, prefix4.Empty())
	assert.Equal(t, b, suffix4)
}

func TestAlignPos(t *testing.T) {
	b := New(5, 100)
	aligned := b.AlignPos(10)
	assert.Equal(t, int64(10), aligned.Pos)
	assert.Equal(t, int64(95), aligned.Size)

	// shift would consume the whole block: unchanged
	small := New(5, 3)
	assert.Equal(t, small, small.AlignPos(10))
}

func TestAlignEnd(t *testing.T) {
	b := New(0, 105)
	aligned := b.AlignEnd(10)
	assert.Equal(t, int64(100), aligned.End())

	small := New(95, 3)
	assert.Equal(t, small, small.AlignEnd(10))
}

func TestSblockJoinRequiresEqualStatus(t *testing.T) {
	a := NewSblock(0, 10, NonTried)
	b := NewSblock(10, 10, NonTried)
	merged, ok := a.Join(b)
	assert.True(t, ok)
	assert.Equal(t, NonTried, merged.Status)

	c := NewSblock(10, 10, Finished)
	_, ok2 := a.Join(c)
	assert.False(t, ok2)
}

func TestIsGood(t *testing.T) {
	assert.True(t, IsGood(NonTried))
	assert.True(t, IsGood(Finished))
	assert.False(t, IsGood(NonTrimmed))
	assert.False(t, IsGood(NonScraped))
	assert.False(t, IsGood(BadSector))
}
