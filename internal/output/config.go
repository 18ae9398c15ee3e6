package output

import (
	"fmt"
	"time"
)

const (
	TypeNone    = "none"
	TypeKafka   = "kafka"
	TypeKafkaGo = "kafkago"
	TypeFile    = "file"
)

type Config struct {
	Type  string       `mapstructure:"type"`
	Kafka *KafkaConfig `mapstructure:"kafka"`
	File  *FileConfig  `mapstructure:"file"`
}

type KafkaConfig struct {
	Brokers           []string      `mapstructure:"brokers"`
	Topic             string        `mapstructure:"topic"`
	Acks              string        `mapstructure:"acks"`
	FlushMessages     int           `mapstructure:"flush_messages"`
	FlushFrequency    time.Duration `mapstructure:"flush_frequency"`
	ChannelBufferSize int           `mapstructure:"channel_buffer_size"`
}

type FileConfig struct {
	Dir           string `mapstructure:"dir"`
	SegmentSizeMB uint64 `mapstructure:"segment_size_mb"`
	Writer        string `mapstructure:"writer"`
}

func (c *Config) Validate() error {
	switch c.Type {
	case "", TypeNone:
		return nil
	case TypeKafka, TypeKafkaGo:
		if c.Kafka == nil {
			return fmt.Errorf("kafka config must be provided for type=%s", c.Type)
		}
		if err := c.Kafka.Validate(); err != nil {
			return fmt.Errorf("kafka config: %w", err)
		}
	case TypeFile:
		if c.File == nil {
			return fmt.Errorf("file config must be provided for type=file")
		}
		if err := c.File.Validate(); err != nil {
			return fmt.Errorf("file config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output type: %q", c.Type)
	}
	return nil
}

// Enabled reports whether issued ids are audited at all.
func (c *Config) Enabled() bool {
	return c.Type != "" && c.Type != TypeNone
}

func (k *KafkaConfig) Validate() error {
	if len(k.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must not be empty")
	}
	if k.Topic == "" {
		return fmt.Errorf("kafka.topic is required")
	}
	if k.Acks != "0" && k.Acks != "1" && k.Acks != "all" {
		return fmt.Errorf("kafka.acks must be one of: 0, 1, all")
	}
	if k.FlushMessages <= 0 {
		return fmt.Errorf("kafka.flush_messages must be > 0")
	}
	if k.FlushFrequency <= 0 {
		return fmt.Errorf("kafka.flush_frequency must be > 0")
	}
	if k.ChannelBufferSize <= 0 {
		return fmt.Errorf("kafka.channel_buffer_size must be > 0")
	}
	return nil
}

func (f *FileConfig) Validate() error {
	if f.Dir == "" {
		return fmt.Errorf("file.dir is required")
	}
	if f.SegmentSizeMB == 0 {
		return fmt.Errorf("file.segment_size_mb must be > 0")
	}
	switch f.Writer {
	case "", "buffered", "mmap":
	default:
		return fmt.Errorf("file.writer must be one of: buffered, mmap")
	}
	return nil
}
