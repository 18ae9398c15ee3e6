package issuer

import (
	"fmt"
	"time"

	"github.com/zhukov-alex/flakeid/internal/snowflake"
)

type Config struct {
	WorkerID              uint32        `mapstructure:"worker_id"`
	DataCenterID          uint32        `mapstructure:"data_center_id"`
	EpochMillis           int64         `mapstructure:"epoch_millis"`
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	InChannelSize         int           `mapstructure:"in_channel_size"`
	MaxBatchSize          int           `mapstructure:"max_batch_size"`
	AuditBatchSize        int           `mapstructure:"audit_batch_size"`
	AuditChannelSize      int           `mapstructure:"audit_channel_size"`
	FlushInterval         time.Duration `mapstructure:"flush_interval"`
	HaltOnClockRegression bool          `mapstructure:"halt_on_clock_regression"`
}

func (c *Config) Validate() error {
	if c.WorkerID > snowflake.MaxWorkerID {
		return fmt.Errorf("worker_id must be between 0 and %d", snowflake.MaxWorkerID)
	}
	if c.DataCenterID > snowflake.MaxDataCenterID {
		return fmt.Errorf("data_center_id must be between 0 and %d", snowflake.MaxDataCenterID)
	}
	if c.EpochMillis < 0 {
		return fmt.Errorf("epoch_millis must be >= 0")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must be >= 0")
	}
	if c.InChannelSize <= 0 {
		return fmt.Errorf("in_channel_size must be > 0")
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be > 0")
	}
	if c.AuditBatchSize <= 0 {
		return fmt.Errorf("audit_batch_size must be > 0")
	}
	if c.AuditChannelSize < 0 {
		return fmt.Errorf("audit_channel_size must be >= 0")
	}
	// 0 - audit batches are only flushed when full
	if c.FlushInterval < 0 {
		return fmt.Errorf("flush_interval must be >= 0")
	}
	return nil
}
