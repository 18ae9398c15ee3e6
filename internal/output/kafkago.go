package output

import (
	"context"
	"fmt"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaGoWriter publishes audit records with the segmentio client. Writes are
// synchronous, so a returned nil means every record was acknowledged.
type KafkaGoWriter struct {
	writer messageWriter
	logger *zap.Logger
}

func kafkaGoAcks(acks string) kafka.RequiredAcks {
	switch acks {
	case "0":
		return kafka.RequireNone
	case "all":
		return kafka.RequireAll
	default:
		return kafka.RequireOne
	}
}

func NewKafkaGoWriter(logger *zap.Logger, cfg *KafkaConfig) *KafkaGoWriter {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.FlushMessages,
		BatchTimeout: cfg.FlushFrequency,
		RequiredAcks: kafkaGoAcks(cfg.Acks),
	}

	logger.Info("kafka-go writer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)

	return &KafkaGoWriter{writer: w, logger: logger}
}

func (k *KafkaGoWriter) SendBatch(ctx context.Context, batch AuditBatch) error {
	if len(batch.Records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(batch.Records))
	for _, r := range batch.Records {
		value, err := encodeRecord(r)
		if err != nil {
			return fmt.Errorf("encode audit record: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(batch.NodeKey),
			Value: value,
		})
	}

	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		k.logger.Error("kafka-go write failed", zap.Int("records", len(msgs)), zap.Error(err))
		return err
	}
	return nil
}

func (k *KafkaGoWriter) Close(ctx context.Context) error {
	k.logger.Info("kafka-go writer shutting down...")
	done := make(chan error, 1)
	go func() { done <- k.writer.Close() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		k.logger.Warn("kafka-go writer close timeout", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
