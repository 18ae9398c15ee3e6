package cleaner

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zhukov-alex/flakeid/internal/config"
	"github.com/zhukov-alex/flakeid/internal/logger"
	"github.com/zhukov-alex/flakeid/internal/output"
)

func CleanupCmd(_ *cobra.Command, _ []string) error {
	cfg, err := config.New(viper.GetViper())
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	l, err := logger.New(cfg.Logger, logger.DevMode())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer l.Sync()

	if cfg.Output.Type != output.TypeFile || cfg.Output.File == nil {
		l.Info("Skipping cleanup: output is not a file journal.")
		return nil
	}
	if cfg.MaxSegmentsToKeep <= 0 {
		l.Info("Skipping cleanup: max_segments_to_keep is zero or unset.")
		return nil
	}

	svc := NewService(l, &Config{
		JournalDir:        cfg.Output.File.Dir,
		MaxSegmentsToKeep: cfg.MaxSegmentsToKeep,
	})
	if _, err := svc.CleanupOldSegments(); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	return nil
}
