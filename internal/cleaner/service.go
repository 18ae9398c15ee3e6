package cleaner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/zhukov-alex/flakeid/internal/output"
)

type Config struct {
	JournalDir        string
	MaxSegmentsToKeep int
}

type Service struct {
	cfg    *Config
	logger *zap.Logger
}

func NewService(logger *zap.Logger, cfg *Config) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

// CleanupOldSegments removes the oldest audit journal segments so that at
// most MaxSegmentsToKeep remain. It returns how many were deleted.
func (s *Service) CleanupOldSegments() (int, error) {
	logger := s.logger.With(zap.String("method", "CleanupOldSegments"))

	entries, err := os.ReadDir(s.cfg.JournalDir)
	if err != nil {
		return 0, fmt.Errorf("read journal directory %s: %w", s.cfg.JournalDir, err)
	}

	var segments []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, output.SegmentExt) {
			segments = append(segments, filepath.Join(s.cfg.JournalDir, name))
		}
	}

	// segment names are zero-padded, so lexical order is creation order
	sort.Strings(segments)
	total := len(segments)

	if total <= s.cfg.MaxSegmentsToKeep {
		logger.Info("no segments to delete",
			zap.Int("found", total),
			zap.Int("max_segments_to_keep", s.cfg.MaxSegmentsToKeep),
		)
		return 0, nil
	}

	toDelete := segments[:total-s.cfg.MaxSegmentsToKeep]
	deleted := 0

	for _, path := range toDelete {
		if err := os.Remove(path); err != nil {
			logger.Error("failed to remove journal segment", zap.String("file", path), zap.Error(err))
		} else {
			deleted++
		}
	}

	logger.Info("journal cleanup completed",
		zap.Int("total_segments", total),
		zap.Int("deleted_segments", deleted),
		zap.Int("kept_segments", total-deleted),
	)
	if deleted < len(toDelete) {
		return deleted, fmt.Errorf("%d of %d segments could not be removed", len(toDelete)-deleted, len(toDelete))
	}
	return deleted, nil
}
