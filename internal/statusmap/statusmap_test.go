package statusmap

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mruffalo/ddrescue-sub000/internal/block"
	"github.com/mruffalo/ddrescue-sub000/internal/domain"
)

func assertInvariants(t *testing.T, m *StatusMap) {
	t.Helper()
	prev := int64(-1)
	for i, sb := range m.Sblocks() {
		assert.GreaterOrEqual(t, sb.Pos, int64(0))
		assert.GreaterOrEqual(t, sb.Size, int64(0))
		assert.LessOrEqual(t, sb.Pos+sb.Size, int64(block.Max))
		if i > 0 {
			assert.Equal(t, prev, sb.Pos, "gap/overlap at sblock %d", i)
		}
		prev = sb.End()
	}
}

func TestNewBlank(t *testing.T) {
	m := NewBlank(1000)
	assertInvariants(t, m)
	require.Len(t, m.Sblocks(), 1)
	assert.Equal(t, block.NonTried, m.Sblocks()[0].Status)
	assert.Equal(t, int64(1000), m.Sblocks()[0].Size)
}

func TestChangeChunkStatusInterior(t *testing.T) {
	m := NewBlank(100)
	dom := domain.New(0, 100)
	delta, err := m.ChangeChunkStatus(block.New(40, 20), block.Finished, dom)
	require.NoError(t, err)
	assert.Equal(t, 0, delta) // non_tried (good) -> finished (good): no bad-area change
	assertInvariants(t, m)
	require.Len(t, m.Sblocks(), 3)
	assert.Equal(t, block.New(0, 40), m.Sblocks()[0].Block)
	assert.Equal(t, block.New(40, 20), m.Sblocks()[1].Block)
	assert.Equal(t, block.Finished, m.Sblocks()[1].Status)
	assert.Equal(t, block.New(60, 40), m.Sblocks()[2].Block)
}

func TestChangeChunkStatusDeltaSigns(t *testing.T) {
	m := NewBlank(100)
	dom := domain.New(0, 100)
	delta, err := m.ChangeChunkStatus(block.New(10, 10), block.BadSector, dom)
	require.NoError(t, err)
	assert.Equal(t, 1, delta) // good -> bad: bad area added

	delta2, err := m.ChangeChunkStatus(block.New(10, 10), block.Finished, dom)
	require.NoError(t, err)
	assert.Equal(t, -1, delta2) // bad -> good: bad area removed
}

func TestChangeChunkStatusNoopWhenSame(t *testing.T) {
	m := NewBlank(100)
	dom := domain.New(0, 100)
	_, err := m.ChangeChunkStatus(block.New(0, 100), block.NonTried, dom)
	require.NoError(t, err)
	assertInvariants(t, m)
	require.Len(t, m.Sblocks(), 1)
}

func TestChangeChunkStatusIdempotent(t *testing.T) {
	m := NewBlank(100)
	dom := domain.New(0, 100)
	_, err := m.ChangeChunkStatus(block.New(10, 10), block.BadSector, dom)
	require.NoError(t, err)
	before := append([]block.Sblock(nil), m.Sblocks()...)
	_, err = m.ChangeChunkStatus(block.New(10, 10), block.BadSector, dom)
	require.NoError(t, err)
	assert.Equal(t, before, m.Sblocks())
}

func TestChangeChunkStatusMergesNeighbors(t *testing.T) {
	m := NewBlank(100)
	dom := domain.New(0, 100)
	_, err := m.ChangeChunkStatus(block.New(0, 50), block.Finished, dom)
	require.NoError(t, err)
	_, err = m.ChangeChunkStatus(block.New(50, 50), block.Finished, dom)
	require.NoError(t, err)
	assertInvariants(t, m)
	require.Len(t, m.Sblocks(), 1)
	assert.Equal(t, block.Finished, m.Sblocks()[0].Status)
}

func TestChangeChunkStatusByteConservation(t *testing.T) {
	m := NewBlank(100)
	dom := domain.New(0, 100)
	before := m.ByteCounts(dom)
	_, err := m.ChangeChunkStatus(block.New(20, 30), block.BadSector, dom)
	require.NoError(t, err)
	after := m.ByteCounts(dom)
	assert.Equal(t, before[block.NonTried]-30, after[block.NonTried])
	assert.Equal(t, int64(30), after[block.BadSector])
}

func TestChangeChunkStatusRejectsMultiSblockSpan(t *testing.T) {
	m := NewBlank(100)
	dom := domain.New(0, 100)
	_, err := m.ChangeChunkStatus(block.New(0, 50), block.Finished, dom)
	require.NoError(t, err)
	_, err = m.ChangeChunkStatus(block.New(10, 80), block.Finished, dom)
	assert.Error(t, err)
}

func TestFindChunkAndRFindChunk(t *testing.T) {
	m := NewBlank(100)
	dom := domain.New(0, 100)
	_, err := m.ChangeChunkStatus(block.New(0, 40), block.Finished, dom)
	require.NoError(t, err)

	b := m.FindChunk(block.New(0, 100), block.NonTried, dom, 1)
	assert.Equal(t, block.New(40, 60), b)

	rb := m.RFindChunk(block.New(0, 100), block.Finished, dom, 1)
	assert.Equal(t, block.New(0, 40), rb)

	none := m.FindChunk(block.New(0, 100), block.BadSector, dom, 1)
	assert.True(t, none.Empty())
}

func TestCompactIdempotentNoAdjacentEqual(t *testing.T) {
	m := &StatusMap{sblocks: []block.Sblock{
		block.NewSblock(0, 10, block.NonTried),
		block.NewSblock(10, 10, block.NonTried),
		block.NewSblock(20, 10, block.Finished),
	}}
	m.Compact()
	assertInvariants(t, m)
	require.Len(t, m.Sblocks(), 2)
	m2copy := append([]block.Sblock(nil), m.Sblocks()...)
	m.Compact()
	assert.Equal(t, m2copy, m.Sblocks())
}

func TestTruncateVector(t *testing.T) {
	m := NewBlank(100)
	m.TruncateVector(40)
	assertInvariants(t, m)
	require.Len(t, m.Sblocks(), 1)
	assert.Equal(t, int64(40), m.Sblocks()[0].End())
}

func TestTruncateVectorEmptiesToBlank(t *testing.T) {
	m := &StatusMap{sblocks: []block.Sblock{block.NewSblock(50, 50, block.NonTried)}}
	m.TruncateVector(10)
	require.Len(t, m.Sblocks(), 1)
	assert.Equal(t, int64(10), m.Sblocks()[0].Pos)
	assert.Equal(t, int64(0), m.Sblocks()[0].Size)
}

func TestRoundTrip(t *testing.T) {
	m := NewBlank(100)
	dom := domain.New(0, 100)
	_, err := m.ChangeChunkStatus(block.New(0, 40), block.Finished, dom)
	require.NoError(t, err)
	_, err = m.ChangeChunkStatus(block.New(40, 10), block.BadSector, dom)
	require.NoError(t, err)
	m.SetCurrentPos(50)
	m.SetCurrentStatus(Copying)

	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf, Header{Version: "test-1.0", Command: "rescue -a"}))

	read, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Sblocks(), read.Sblocks())
	assert.Equal(t, m.CurrentPos(), read.CurrentPos())
	assert.Equal(t, m.CurrentStatus(), read.CurrentStatus())
}

func TestReadRejectsNonAdjacent(t *testing.T) {
	text := "0x00000000     ?\n0x00000000  0x00000010  +\n0x00000020  0x00000010  ?\n"
	_, err := Read(strings.NewReader(text))
	require.Error(t, err)
}

func TestReadSizeMinusOneMeansToEnd(t *testing.T) {
	text := "0x00000000     ?\n0x00000000  -1  ?\n"
	m, err := Read(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, m.Sblocks(), 1)
	assert.Equal(t, int64(block.Max), m.Sblocks()[0].Size)
}

func TestFlushThrottleSecondsMonotonic(t *testing.T) {
	assert.Equal(t, 30, FlushThrottleSeconds(0))
	assert.Equal(t, 300, FlushThrottleSeconds(38*1000))
	prev := 0
	for _, n := range []int{0, 38, 380, 3800, 38000, 1000000} {
		v := FlushThrottleSeconds(n)
		assert.GreaterOrEqual(t, v, prev)
		assert.LessOrEqual(t, v, 300)
		prev = v
	}
}

func TestExtendToSizeFillsBothEnds(t *testing.T) {
	m := &StatusMap{sblocks: []block.Sblock{block.NewSblock(10, 20, block.Finished)}}
	m.ExtendToSize(100)
	assertInvariants(t, m)
	assert.Equal(t, int64(0), m.Sblocks()[0].Pos)
	assert.Equal(t, block.NonTried, m.Sblocks()[0].Status)
	assert.Equal(t, int64(100), m.Extent().End())
}
