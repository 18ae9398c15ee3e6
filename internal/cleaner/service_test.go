package cleaner

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func makeSegments(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%08d.log", i))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCleanupOldSegments(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	makeSegments(t, dir, 5)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	svc := NewService(zaptest.NewLogger(t), &Config{JournalDir: dir, MaxSegmentsToKeep: 2})
	deleted, err := svc.CleanupOldSegments()
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.ElementsMatch(t, []string{"00000004.log", "00000005.log", "notes.txt"}, listDir(t, dir))
}

func TestCleanupOldSegments_NothingToDelete(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	makeSegments(t, dir, 2)

	svc := NewService(zaptest.NewLogger(t), &Config{JournalDir: dir, MaxSegmentsToKeep: 3})
	deleted, err := svc.CleanupOldSegments()
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, listDir(t, dir), 2)
}

func TestCleanupOldSegments_MissingDir(t *testing.T) {
	t.Parallel()
	svc := NewService(zaptest.NewLogger(t), &Config{
		JournalDir:        filepath.Join(t.TempDir(), "absent"),
		MaxSegmentsToKeep: 1,
	})
	_, err := svc.CleanupOldSegments()
	assert.Error(t, err)
}
