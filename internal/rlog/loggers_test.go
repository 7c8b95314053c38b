package rlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLoggerWritesHeaderAndLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rate.log")
	l := NewRateLogger(path)
	l.PrintLine(5*time.Second, 0x1000, 1024, 2048, 1, 512)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Time")
	assert.Contains(t, lines[1], "0x0000001000")
}

func TestRateLoggerDisabledWhenPathEmpty(t *testing.T) {
	l := NewRateLogger("")
	l.PrintLine(time.Second, 0, 0, 0, 0, 0)
	require.NoError(t, l.Close())
}

func TestReadLoggerMarkerAndLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "read.log")
	l := NewReadLogger(path)
	l.Marker(time.Minute, "Initial status (read from logfile)")
	l.PrintLine(0, 512, 512, 0)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Initial status")
	assert.Contains(t, string(data), "0x00000200")
}

func TestTimestampFormat(t *testing.T) {
	assert.Equal(t, " 1:01:01", Timestamp(time.Hour+time.Minute+time.Second))
}
