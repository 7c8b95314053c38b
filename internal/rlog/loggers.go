package rlog

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

// RateLogger is an append-only audit of per-second copy rates, one line
// per rate-update tick (spec.md §4.4, format from original_source's
// loggers.cc Rate_logger::print_line). An empty path disables the logger
// (all calls become no-ops); the file is opened lazily on first use.
type RateLogger struct {
	path   string
	f      *os.File
	w      *bufio.Writer
	err    bool
	opened bool
}

// NewRateLogger returns a logger writing to path (lazily opened).
func NewRateLogger(path string) *RateLogger {
	return &RateLogger{path: path}
}

func (l *RateLogger) open() bool {
	if l.opened {
		return !l.err
	}
	l.opened = true
	if l.path == "" {
		return true
	}
	f, err := os.Create(l.path)
	if err != nil {
		l.err = true
		return false
	}
	l.f = f
	l.w = bufio.NewWriter(f)
	if _, err := fmt.Fprintf(l.w, "   Time       Ipos     Current_rate  Average_rate  Errors    Errsize\n"); err != nil {
		l.err = true
		return false
	}
	return true
}

// PrintLine appends one rate-tick line. errSize is the cumulative bad-area
// byte count, errors the running maximal-bad-run count.
func (l *RateLogger) PrintLine(elapsed time.Duration, ipos, curRate, avgRate int64, errors int, errSize int64) {
	if !l.open() || l.w == nil {
		return
	}
	if _, err := fmt.Fprintf(l.w, "%s  0x%010X %9dB/s %9dB/s  %7d %9dB\n",
		Timestamp(elapsed), ipos, curRate, avgRate, errors, errSize); err != nil {
		l.err = true
	}
	_ = l.w.Flush()
}

// Close flushes and closes the underlying file, if any. Close errors are
// reported but non-fatal (spec.md §4.4).
func (l *RateLogger) Close() error {
	if l.f == nil {
		return nil
	}
	if l.w != nil {
		_ = l.w.Flush()
	}
	return l.f.Close()
}

// ReadLogger is an append-only audit of every copy_block outcome plus pass
// boundary markers (spec.md §4.4).
type ReadLogger struct {
	path   string
	f      *os.File
	w      *bufio.Writer
	err    bool
	opened bool
}

// NewReadLogger returns a logger writing to path (lazily opened).
func NewReadLogger(path string) *ReadLogger {
	return &ReadLogger{path: path}
}

func (l *ReadLogger) open() bool {
	if l.opened {
		return !l.err
	}
	l.opened = true
	if l.path == "" {
		return true
	}
	f, err := os.Create(l.path)
	if err != nil {
		l.err = true
		return false
	}
	l.f = f
	l.w = bufio.NewWriter(f)
	if _, err := fmt.Fprintf(l.w, "    Ipos         Size    Copied_size  Error_size\n"); err != nil {
		l.err = true
		return false
	}
	return true
}

// PrintLine appends one copy_block outcome line.
func (l *ReadLogger) PrintLine(ipos, size, copiedSize, errorSize int64) {
	if !l.open() || l.w == nil {
		return
	}
	if _, err := fmt.Fprintf(l.w, "0x%010X  0x%08X  0x%08X  0x%08X\n", ipos, size, copiedSize, errorSize); err != nil {
		l.err = true
	}
	_ = l.w.Flush()
}

// Marker appends a "Time ...  <msg>" pass-boundary marker line.
func (l *ReadLogger) Marker(elapsed time.Duration, msg string) {
	if !l.open() || l.w == nil {
		return
	}
	if _, err := fmt.Fprintf(l.w, "Time %s  %s\n", Timestamp(elapsed), msg); err != nil {
		l.err = true
	}
	_ = l.w.Flush()
}

// Close flushes and closes the underlying file, if any.
func (l *ReadLogger) Close() error {
	if l.f == nil {
		return nil
	}
	if l.w != nil {
		_ = l.w.Flush()
	}
	return l.f.Close()
}
