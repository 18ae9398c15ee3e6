package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	w, err := New("", 0)
	require.NoError(t, err)
	assert.IsType(t, &BufferedWriter{}, w)

	_, err = New("mmap", 0)
	assert.Error(t, err)

	_, err = New("paper", 1024)
	assert.ErrorContains(t, err, "unsupported wal writer")
}

func TestWriters_WriteFlushClose(t *testing.T) {
	for _, kind := range []string{"buffered", "mmap"} {
		t.Run(kind, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "00000000.log")

			w, err := New(kind, 4096)
			require.NoError(t, err)
			require.NoError(t, w.Open(path))

			_, err = w.Write([]byte("hello "))
			require.NoError(t, err)
			_, err = w.Write([]byte("journal"))
			require.NoError(t, err)
			require.NoError(t, w.Flush())
			require.NoError(t, w.Close())

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "hello journal", string(data))
		})
	}
}

func TestWriters_OpenStartsEmpty(t *testing.T) {
	for _, kind := range []string{"buffered", "mmap"} {
		t.Run(kind, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "00000001.log")
			require.NoError(t, os.WriteFile(path, []byte("stale bytes"), 0644))

			w, err := New(kind, 4096)
			require.NoError(t, err)
			require.NoError(t, w.Open(path))
			_, err = w.Write([]byte("new"))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "new", string(data))
		})
	}
}

func TestBufferedWriter_WriteBeforeOpen(t *testing.T) {
	w := NewBufferedWriter()
	_, err := w.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrInvalid)
	assert.NoError(t, w.Flush())
	assert.NoError(t, w.Close())
}
