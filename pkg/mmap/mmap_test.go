package mmap

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestOpen(t *testing.T) {
	f, err := Open(writeFile(t, "key,value\n1,A\n"))
	require.NoError(t, err)
	defer f.Close()

	if runtime.GOOS != "windows" {
		assert.True(t, f.Mapped())
	}
	assert.Equal(t, "key,value\n1,A\n", string(f.Bytes()))
	assert.Equal(t, int64(14), f.Size())

	buf := make([]byte, 3)
	_, err = f.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, "1,A", string(buf))

	all, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Len(t, all, 14)

	_, err = f.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "A\n", string(rest))

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.Nil(t, f.Bytes())
}

func TestOpenEmpty(t *testing.T) {
	f, err := Open(writeFile(t, ""))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, f.Mapped())
	n, err := f.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(err))

	_, err = Open(t.TempDir())
	assert.ErrorContains(t, err, "not a regular file")
}
