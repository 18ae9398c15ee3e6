package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testRecords(n int, base uint64) []AuditRecord {
	records := make([]AuditRecord, 0, n)
	for i := 0; i < n; i++ {
		first := base + uint64(i)*10
		records = append(records, AuditRecord{
			DataCenterID: 1,
			WorkerID:     2,
			FirstID:      first,
			LastID:       first + 9,
			Count:        10,
			IssuedAt:     time.UnixMilli(1700000000000 + int64(i)).UTC(),
		})
	}
	return records
}

func segments(t *testing.T, dir string) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*"+SegmentExt))
	require.NoError(t, err)
	return paths
}

func TestFileJournal_WriteAndRead(t *testing.T) {
	for _, writer := range []string{"buffered", "mmap"} {
		t.Run(writer, func(t *testing.T) {
			dir := t.TempDir()
			j, err := NewFileJournal(zaptest.NewLogger(t), &FileConfig{Dir: dir, SegmentSizeMB: 1, Writer: writer})
			require.NoError(t, err)

			records := testRecords(3, 1<<22)
			require.NoError(t, j.SendBatch(context.Background(), AuditBatch{Records: records, NodeKey: NodeKey(1, 2)}))
			require.NoError(t, j.Close(context.Background()))

			paths := segments(t, dir)
			require.Len(t, paths, 1)
			assert.Equal(t, "00000000.log", filepath.Base(paths[0]))

			got, err := ReadSegment(paths[0])
			require.NoError(t, err)
			assert.Equal(t, records, got)
		})
	}
}

func TestFileJournal_Rotation(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(zaptest.NewLogger(t), &FileConfig{Dir: dir, SegmentSizeMB: 1})
	require.NoError(t, err)
	j.segmentSize = 512

	records := testRecords(20, 1<<30)
	require.NoError(t, j.SendBatch(context.Background(), AuditBatch{Records: records}))
	require.NoError(t, j.Close(context.Background()))

	paths := segments(t, dir)
	require.Greater(t, len(paths), 1)

	var got []AuditRecord
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.LessOrEqual(t, info.Size(), int64(512))

		recs, err := ReadSegment(p)
		require.NoError(t, err)
		got = append(got, recs...)
	}
	assert.Equal(t, records, got)
}

func TestFileJournal_ReopenStartsNewSegment(t *testing.T) {
	dir := t.TempDir()
	cfg := &FileConfig{Dir: dir, SegmentSizeMB: 1}

	for i := 0; i < 2; i++ {
		j, err := NewFileJournal(zaptest.NewLogger(t), cfg)
		require.NoError(t, err)
		require.NoError(t, j.SendBatch(context.Background(), AuditBatch{Records: testRecords(1, uint64(i+1)<<22)}))
		require.NoError(t, j.Close(context.Background()))
	}

	paths := segments(t, dir)
	require.Len(t, paths, 2)
	assert.Equal(t, "00000001.log", filepath.Base(paths[1]))
}

func TestFileJournal_RecordLargerThanSegment(t *testing.T) {
	j, err := NewFileJournal(zaptest.NewLogger(t), &FileConfig{Dir: t.TempDir(), SegmentSizeMB: 1})
	require.NoError(t, err)
	defer j.Close(context.Background())
	j.segmentSize = 16

	err = j.SendBatch(context.Background(), AuditBatch{Records: testRecords(1, 1)})
	assert.ErrorContains(t, err, "exceeds segment size")
}
