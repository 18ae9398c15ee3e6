package output

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const defaultInputTimeout = time.Second

// KafkaBroker publishes audit records through a sarama AsyncProducer. One
// goroutine reads the producer's Successes and Errors for the broker's whole
// lifetime and routes every ack to the batch that sent the message.
type KafkaBroker struct {
	producer     sarama.AsyncProducer
	cfg          *KafkaConfig
	inputTimeout time.Duration
	wg           sync.WaitGroup
	logger       *zap.Logger
}

// batchAck collects the acks of one SendBatch call. results is buffered for
// every message of the batch, so acks arriving after the caller gave up
// never block the reader.
type batchAck struct {
	results chan error
}

func saramaAcks(acks string) sarama.RequiredAcks {
	switch acks {
	case "0":
		return sarama.NoResponse
	case "all":
		return sarama.WaitForAll
	default:
		return sarama.WaitForLocal
	}
}

func NewKafkaBroker(logger *zap.Logger, cfg *KafkaConfig) (*KafkaBroker, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Flush.Messages = cfg.FlushMessages
	saramaCfg.Producer.Flush.Frequency = cfg.FlushFrequency
	saramaCfg.ChannelBufferSize = cfg.ChannelBufferSize
	saramaCfg.Producer.RequiredAcks = saramaAcks(cfg.Acks)
	saramaCfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		logger.Error("failed to create Kafka producer", zap.Error(err))
		return nil, err
	}

	logger.Info("kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return newKafkaBroker(logger, cfg, producer), nil
}

func newKafkaBroker(logger *zap.Logger, cfg *KafkaConfig, producer sarama.AsyncProducer) *KafkaBroker {
	k := &KafkaBroker{
		producer:     producer,
		cfg:          cfg,
		inputTimeout: defaultInputTimeout,
		logger:       logger,
	}
	k.wg.Add(1)
	go func() { defer k.wg.Done(); k.ackLoop() }()
	return k
}

// ackLoop runs until the producer closes both result channels.
func (k *KafkaBroker) ackLoop() {
	logger := k.logger.With(zap.String("method", "ackLoop"))

	successes := k.producer.Successes()
	errs := k.producer.Errors()
	for successes != nil || errs != nil {
		select {
		case msg, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			k.deliver(logger, msg, nil)

		case perr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("kafka send error", zap.Error(perr.Err))
			k.deliver(logger, perr.Msg, perr.Err)
		}
	}
}

func (k *KafkaBroker) deliver(logger *zap.Logger, msg *sarama.ProducerMessage, err error) {
	if msg == nil {
		return
	}
	ack, ok := msg.Metadata.(*batchAck)
	if !ok {
		logger.Warn("kafka ack metadata type mismatch")
		return
	}
	ack.results <- err
}

// SendBatch publishes every record of the batch and waits until all of them
// are acknowledged. It fails on the first producer error.
func (k *KafkaBroker) SendBatch(ctx context.Context, batch AuditBatch) error {
	logger := k.logger.With(zap.String("method", "SendBatch"))

	if len(batch.Records) == 0 {
		return nil
	}
	ack := &batchAck{results: make(chan error, len(batch.Records))}

	timer := time.NewTimer(k.inputTimeout)
	defer timer.Stop()

	sent := 0
	for _, r := range batch.Records {
		value, err := encodeRecord(r)
		if err != nil {
			return fmt.Errorf("encode audit record: %w", err)
		}
		msg := &sarama.ProducerMessage{
			Topic:    k.cfg.Topic,
			Key:      sarama.StringEncoder(batch.NodeKey),
			Value:    sarama.ByteEncoder(value),
			Metadata: ack,
		}

		select {
		case k.producer.Input() <- msg:
			sent++
		case <-ctx.Done():
			logger.Warn("context cancelled while sending to kafka")
			return ctx.Err()
		case <-timer.C:
			logger.Warn("timeout on Kafka input queue", zap.Int("queued", sent))
			return fmt.Errorf("timeout on input queue")
		}
	}

	for acked := 0; acked < sent; acked++ {
		select {
		case err := <-ack.results:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (k *KafkaBroker) Close(ctx context.Context) error {
	k.logger.Info("kafka producer shutting down...")
	done := make(chan struct{})

	go func() {
		if err := k.producer.Close(); err != nil {
			k.logger.Warn("error while closing Kafka producer", zap.Error(err))
		}
		k.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		k.logger.Info("kafka producer closed")
		return nil
	case <-ctx.Done():
		k.logger.Warn("kafka producer close timeout", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
