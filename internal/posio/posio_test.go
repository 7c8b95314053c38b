package posio

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteBlockRoundTrip(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "posio")
	require.NoError(t, err)
	defer f.Close()

	data := []byte("0123456789abcdef")
	n, err := WriteBlock(int(f.Fd()), data, 0)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	buf := make([]byte, len(data))
	n, err = ReadBlock(int(f.Fd()), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, buf)
}

func TestReadBlockPartialAtEOF(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "posio")
	require.NoError(t, err)
	defer f.Close()

	data := []byte("short")
	_, err = WriteBlock(int(f.Fd()), data, 0)
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := ReadBlock(int(f.Fd()), buf, 0)
	require.NoError(t, err) // EOF is reported as nil error with a partial count
	assert.Equal(t, len(data), n)
}

func TestBlockIsZero(t *testing.T) {
	assert.True(t, BlockIsZero(make([]byte, 4096)))
	buf := make([]byte, 4096)
	buf[4095] = 1
	assert.False(t, BlockIsZero(buf))
	assert.True(t, BlockIsZero(nil))
}
