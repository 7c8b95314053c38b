package rescue

import (
	"errors"
	"time"
)

// fakeSource is an in-memory SourceReader over a byte slice, with a set of
// ranges that always fail to read (simulating unreadable sectors).
type fakeSource struct {
	data    []byte
	badFrom map[int64]int64 // start -> end, half-open, exact match required
}

func newFakeSource(data []byte) *fakeSource {
	return &fakeSource{data: data, badFrom: map[int64]int64{}}
}

func (s *fakeSource) markBad(start, end int64) {
	s.badFrom[start] = end
}

func (s *fakeSource) ReadAt(buf []byte, pos int64) (int, error) {
	for start, end := range s.badFrom {
		if pos >= start && pos < end {
			lo := pos
			if lo < start {
				lo = start
			}
			hi := pos + int64(len(buf))
			if hi > end {
				hi = end
			}
			if hi-lo >= int64(len(buf)) {
				return 0, errors.New("fake read error")
			}
		}
	}
	if pos >= int64(len(s.data)) {
		return 0, nil
	}
	n := copy(buf, s.data[pos:])
	return n, nil
}

func (s *fakeSource) Size() (int64, bool) { return int64(len(s.data)), true }

// fakeDest is an in-memory DestWriter over a growable byte slice.
type fakeDest struct {
	data []byte
}

func (d *fakeDest) WriteAt(buf []byte, pos int64) (int, error) {
	end := pos + int64(len(buf))
	if end > int64(len(d.data)) {
		grown := make([]byte, end)
		copy(grown, d.data)
		d.data = grown
	}
	copy(d.data[pos:end], buf)
	return len(buf), nil
}

func (d *fakeDest) Sync() error { return nil }

func (d *fakeDest) Truncate(size int64) error {
	if int64(len(d.data)) > size {
		d.data = d.data[:size]
	}
	return nil
}

func (d *fakeDest) Size() (int64, error) { return int64(len(d.data)), nil }

// fakeClock lets tests control elapsed time deterministically instead of
// depending on wall-clock sleeps.
type fakeClock struct {
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.cur }

func (c *fakeClock) advance(d time.Duration) { c.cur = c.cur.Add(d) }
