package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zhukov-alex/flakeid/internal/ingest"
	"github.com/zhukov-alex/flakeid/internal/issuer"
	"github.com/zhukov-alex/flakeid/internal/logger"
	"github.com/zhukov-alex/flakeid/internal/output"
)

const (
	EnvPrefix  = "FLAKEID"
	DotEnvFile = ".env"
)

type Config struct {
	MetricsAddr       string `mapstructure:"metrics_addr"`
	MaxSegmentsToKeep int    `mapstructure:"max_segments_to_keep"`

	Issuer issuer.Config `mapstructure:"issuer"`
	Ingest ingest.Config `mapstructure:"ingest"`
	Output output.Config `mapstructure:"output"`
	Logger logger.Config `mapstructure:"logger"`
}

func NewConfigInit(cfgFile *string) func() {
	return func() {
		if err := LoadDotEnv(DotEnvFile); err != nil {
			log.Fatalf("Failed to load %s: %v", DotEnvFile, err)
		}
		if err := Load(viper.GetViper(), *cfgFile); err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}
	}
}

// LoadDotEnv exports the variables of path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads cfgFile into v and enables FLAKEID_* overrides, e.g.
// FLAKEID_ISSUER_WORKER_ID for issuer.worker_id.
func Load(v *viper.Viper, cfgFile string) error {
	if strings.TrimSpace(cfgFile) == "" {
		return fmt.Errorf("invalid config file name")
	}
	if _, err := os.Stat(cfgFile); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(cfgFile)

	return v.ReadInConfig()
}

// SetDefaults registers every key that may be set from the environment alone.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("max_segments_to_keep", 0)
	v.SetDefault("metrics_addr", "")

	v.SetDefault("issuer.worker_id", 0)
	v.SetDefault("issuer.data_center_id", 0)
	v.SetDefault("issuer.epoch_millis", int64(1288834974657))
	v.SetDefault("issuer.poll_interval", 100*time.Microsecond)
	v.SetDefault("issuer.in_channel_size", 1024)
	v.SetDefault("issuer.max_batch_size", 4096)
	v.SetDefault("issuer.audit_batch_size", 100)
	v.SetDefault("issuer.audit_channel_size", 16)
	v.SetDefault("issuer.flush_interval", time.Second)
	v.SetDefault("issuer.halt_on_clock_regression", false)

	v.SetDefault("ingest.type", "tcp")
	v.SetDefault("output.type", output.TypeNone)
	v.SetDefault("logger.encoding", "json")
}

func New(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger config: %w", err)
	}
	// 0 - disables deletion of old journal segments
	if c.MaxSegmentsToKeep < 0 {
		return fmt.Errorf("max_segments_to_keep must be >= 0")
	}
	if err := c.Issuer.Validate(); err != nil {
		return fmt.Errorf("issuer config: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest config: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}
	return nil
}
