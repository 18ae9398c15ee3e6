package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/zhukov-alex/flakeid/internal/wal"
	"go.uber.org/zap"
)

// SegmentExt is the file extension of journal segments.
const SegmentExt = ".log"

// FileJournal appends audit records to local segment files. Each record is
// framed as a 4-byte little-endian length followed by its JSON encoding. A
// new segment is started on every open and whenever the current one is full.
type FileJournal struct {
	mu          sync.Mutex
	dir         string
	segmentSize uint64
	wal         wal.Writer
	segment     uint64
	offset      uint64
	logger      *zap.Logger
}

func NewFileJournal(logger *zap.Logger, cfg *FileConfig) (*FileJournal, error) {
	segmentSize := cfg.SegmentSizeMB * 1024 * 1024
	w, err := wal.New(cfg.Writer, int(segmentSize))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	last, found, err := lastSegment(cfg.Dir)
	if err != nil {
		return nil, err
	}
	var segment uint64
	if found {
		segment = last + 1
	}

	j := &FileJournal{
		dir:         cfg.Dir,
		segmentSize: segmentSize,
		wal:         w,
		segment:     segment,
		logger:      logger,
	}
	if err := j.wal.Open(j.segmentFilename(segment)); err != nil {
		return nil, fmt.Errorf("failed to open journal segment: %w", err)
	}

	logger.Info("audit journal opened",
		zap.String("dir", cfg.Dir),
		zap.Uint64("segment", segment),
	)
	return j, nil
}

func (j *FileJournal) SendBatch(_ context.Context, batch AuditBatch) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, r := range batch.Records {
		data, err := encodeRecord(r)
		if err != nil {
			return fmt.Errorf("encode audit record: %w", err)
		}

		frame := make([]byte, 4+len(data))
		binary.LittleEndian.PutUint32(frame, uint32(len(data)))
		copy(frame[4:], data)

		if uint64(len(frame)) > j.segmentSize {
			return fmt.Errorf("audit record of %d bytes exceeds segment size", len(frame))
		}
		if j.offset+uint64(len(frame)) > j.segmentSize {
			if err := j.rotate(); err != nil {
				return err
			}
		}

		if _, err := j.wal.Write(frame); err != nil {
			return fmt.Errorf("journal write: %w", err)
		}
		j.offset += uint64(len(frame))
	}
	return j.wal.Flush()
}

func (j *FileJournal) Close(_ context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.logger.Info("audit journal closing", zap.Uint64("segment", j.segment))
	if err := j.wal.Flush(); err != nil {
		j.logger.Error("final journal flush error", zap.Error(err))
	}
	return j.wal.Close()
}

// rotate closes the current segment and opens the next one.
func (j *FileJournal) rotate() error {
	if err := j.wal.Flush(); err != nil {
		return fmt.Errorf("rotate: flush error: %w", err)
	}
	if err := j.wal.Close(); err != nil {
		return fmt.Errorf("rotate: close error: %w", err)
	}

	j.segment++
	j.offset = 0
	name := j.segmentFilename(j.segment)
	if err := j.wal.Open(name); err != nil {
		return fmt.Errorf("rotate: failed to open new segment %q: %w", name, err)
	}
	j.logger.Debug("audit journal rotated", zap.String("file", name))
	return nil
}

func (j *FileJournal) segmentFilename(segment uint64) string {
	return filepath.Join(j.dir, fmt.Sprintf("%08d%s", segment, SegmentExt))
}

func lastSegment(dir string) (uint64, bool, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+SegmentExt))
	if err != nil {
		return 0, false, fmt.Errorf("scan journal directory: %w", err)
	}
	if len(paths) == 0 {
		return 0, false, nil
	}
	sort.Strings(paths)

	base := strings.TrimSuffix(filepath.Base(paths[len(paths)-1]), SegmentExt)
	seg, err := strconv.ParseUint(base, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("can't parse segment %s: %w", base, err)
	}
	return seg, true, nil
}

// ReadSegment decodes every record of a journal segment.
func ReadSegment(path string) ([]AuditRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []AuditRecord
	for len(data) >= 4 {
		n := binary.LittleEndian.Uint32(data)
		if n == 0 {
			break // zero padding left by a preallocated segment
		}
		if uint64(len(data)-4) < uint64(n) {
			return records, fmt.Errorf("truncated record in %s", path)
		}
		var r AuditRecord
		if err := decodeRecord(data[4:4+n], &r); err != nil {
			return records, fmt.Errorf("decode record in %s: %w", path, err)
		}
		records = append(records, r)
		data = data[4+n:]
	}
	return records, nil
}
