package rescue

import (
	"os"

	"github.com/mruffalo/ddrescue-sub000/internal/posio"
)

// SourceReader is the positioned-read side of a rescue source: a file or
// raw device. Implementations report partial reads the way
// internal/posio.ReadBlock does (nil err + short count == EOF).
type SourceReader interface {
	ReadAt(buf []byte, pos int64) (n int, err error)
	Size() (int64, bool) // false if unknown (e.g. a raw device)
}

// Reopener is implemented by a SourceReader that can close and reopen its
// underlying handle under the same name and flags. The engine calls this
// after every read error when Options.ReopenOnError is set (spec.md §4.2);
// sources that cannot reopen (e.g. a pipe) simply don't implement it.
type Reopener interface {
	Reopen() error
}

// fder is implemented by a SourceReader/DestWriter backed by a real file
// descriptor, letting the engine issue posio fadvise hints directly. An
// in-memory fake simply doesn't implement it, and the engine treats that
// as a no-op.
type fder interface {
	FD() int
}

// DestWriter is the positioned-write side of a rescue destination.
type DestWriter interface {
	WriteAt(buf []byte, pos int64) (n int, err error)
	Sync() error
	Truncate(size int64) error
	Size() (int64, error)
}

// FileSource adapts an *os.File to SourceReader using the retrying
// positioned-read primitive from internal/posio.
type FileSource struct {
	f         *os.File
	path      string
	directIO  bool
	knownSize int64
	hasSize   bool
}

// NewFileSource opens path read-only for use as a rescue source.
func NewFileSource(path string, directIO bool) (*FileSource, error) {
	f, err := openSource(path, directIO)
	if err != nil {
		return nil, err
	}
	fs := &FileSource{f: f, path: path, directIO: directIO}
	if fi, err := f.Stat(); err == nil && fi.Mode().IsRegular() {
		fs.knownSize = fi.Size()
		fs.hasSize = true
	}
	return fs, nil
}

func openSource(path string, directIO bool) (*os.File, error) {
	if directIO {
		return posio.DirectOpen(path, os.O_RDONLY, 0)
	}
	return os.Open(path)
}

func (s *FileSource) ReadAt(buf []byte, pos int64) (int, error) {
	return posio.ReadBlock(int(s.f.Fd()), buf, pos)
}

func (s *FileSource) Size() (int64, bool) { return s.knownSize, s.hasSize }

// FD returns the underlying file descriptor, implementing fder for the
// engine's FadviseSequential/FadviseDontNeed hinting.
func (s *FileSource) FD() int { return int(s.f.Fd()) }

func (s *FileSource) Close() error { return s.f.Close() }

// Reopen closes and reopens the source under the same name and flags,
// implementing the Reopener interface the engine uses for its
// reopen-on-error behavior (Options.ReopenOnError, spec.md §4.2).
func (s *FileSource) Reopen() error {
	_ = s.f.Close()
	f, err := openSource(s.path, s.directIO)
	if err != nil {
		return err
	}
	s.f = f
	return nil
}

// FileDest adapts an *os.File to DestWriter.
type FileDest struct {
	f *os.File
}

// NewFileDest opens path read-write (creating if absent) for use as a
// rescue destination.
func NewFileDest(path string, synchronous, truncate bool) (*FileDest, error) {
	flags := os.O_RDWR | os.O_CREATE
	if synchronous {
		flags |= os.O_SYNC
	}
	if truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileDest{f: f}, nil
}

func (d *FileDest) WriteAt(buf []byte, pos int64) (int, error) {
	return posio.WriteBlock(int(d.f.Fd()), buf, pos)
}

// Sync flushes d's data to storage before the mapfile is written, the
// ordering spec.md §4.1 relies on. Uses posio.Fdatasync (skip the inode
// metadata flush os.File.Sync forces) rather than the stdlib fallback.
func (d *FileDest) Sync() error { return posio.Fdatasync(int(d.f.Fd())) }

// FD returns the underlying file descriptor, for callers (cmd/ddrescue's
// -p handling) that need to call an internal/posio primitive directly.
func (d *FileDest) FD() int { return int(d.f.Fd()) }

func (d *FileDest) Truncate(size int64) error { return d.f.Truncate(size) }

func (d *FileDest) Size() (int64, error) {
	fi, err := d.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (d *FileDest) Close() error { return d.f.Close() }
