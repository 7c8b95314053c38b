// Package posio wraps the positioned I/O primitives the rescue engine
// needs (spec.md §4.3): retrying positioned read/write, a straight
// all-zero scan, and the raw-device/direct-I/O helpers the teacher itself
// reaches for in backend/local (preallocate, fadvise, O_DIRECT).
package posio

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ReadBlock seeks to pos and reads until len(buf) bytes are delivered, EOF,
// or an unrecoverable error. EINTR/EAGAIN are retried transparently. A
// partial read with a nil error means EOF; a partial read with a non-nil
// error means a genuine read error at that offset. The count actually
// transferred is always returned alongside err.
func ReadBlock(fd int, buf []byte, pos int64) (n int, err error) {
	for n < len(buf) {
		nr, rerr := unix.Pread(fd, buf[n:], pos+int64(n))
		if rerr != nil {
			if errors.Is(rerr, unix.EINTR) || errors.Is(rerr, unix.EAGAIN) {
				continue
			}
			return n, rerr
		}
		if nr == 0 {
			return n, nil // EOF
		}
		n += nr
	}
	return n, nil
}

// WriteBlock seeks to pos and writes until len(buf) bytes are delivered or
// an unrecoverable error occurs. EINTR/EAGAIN are retried.
func WriteBlock(fd int, buf []byte, pos int64) (n int, err error) {
	for n < len(buf) {
		nw, werr := unix.Pwrite(fd, buf[n:], pos+int64(n))
		if werr != nil {
			if errors.Is(werr, unix.EINTR) || errors.Is(werr, unix.EAGAIN) {
				continue
			}
			return n, werr
		}
		if nw == 0 {
			return n, errors.New("posio: write returned 0 with no error")
		}
		n += nw
	}
	return n, nil
}

// BlockIsZero is a straight memory scan for an all-zero buffer, used to
// decide sparse-write elision (spec.md §4.2).
func BlockIsZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// Fdatasync requests the kernel flush in-kernel buffers for fd,
// best-effort, matching the "flush destination buffers before writing the
// mapfile" ordering in spec.md §4.1.
func Fdatasync(fd int) error {
	return unix.Fdatasync(fd)
}

var (
	fallocFlags = [...]uint32{
		unix.FALLOC_FL_KEEP_SIZE,
	}
)

// Preallocate extends fd's underlying storage for size bytes without
// changing the file's apparent size (the "-p" flag, spec.md §6), using
// fallocate with FALLOC_FL_KEEP_SIZE. It is a silent no-op if that is not
// supported (e.g. destination is a raw device).
func Preallocate(fd int, size int64) error {
	if size <= 0 {
		return nil
	}
	var err error
	for _, flags := range fallocFlags {
		err = unix.Fallocate(fd, flags, 0, size)
		if err != unix.ENOTSUP {
			return err
		}
	}
	return nil
}

// FadviseSequential hints the kernel to widen its readahead window on fd
// for a forward bulk-copy pass.
func FadviseSequential(fd int, offset, length int64) error {
	return unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}

// FadviseDontNeed releases cached pages for [offset, offset+length) on fd
// once the engine has moved past them, bounding memory pressure on very
// large rescue domains the way backend/local's fadvise helper does for
// large uploads.
func FadviseDontNeed(fd int, offset, length int64) error {
	return unix.Fadvise(fd, offset, length, unix.FADV_DONTNEED)
}

// DirectOpen opens name with O_DIRECT in addition to flag, for direct-I/O
// reads from the source (spec.md §4.2 "Direct-I/O alignment").
func DirectOpen(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag|unix.O_DIRECT, perm)
}
