package listener

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// messageReader is the subset of *kafka.Reader the channel needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaChannel delivers inventory frames from a Kafka topic. One reader per
// subscription, read on a single goroutine, so receipt order is kept.
type KafkaChannel struct {
	newReader func() messageReader
	logger    logger.ZapLogger
	backoff   time.Duration
}

func NewKafkaChannel(cfg KafkaConfig, log logger.ZapLogger) *KafkaChannel {
	rc := readerConfig(cfg)
	return &KafkaChannel{
		newReader: func() messageReader {
			return kafka.NewReader(rc)
		},
		logger:  log,
		backoff: time.Second,
	}
}

// readerConfig starts a new group at the head of the topic. Each view
// instance joins a fresh group, and the catalog load already covers every
// update published before it.
func readerConfig(cfg KafkaConfig) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
}

func (c *KafkaChannel) Subscribe(ctx context.Context, handler func(raw map[string]any)) (func(), error) {
	if handler == nil {
		return nil, errors.New("handler required")
	}

	reader := c.newReader()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		c.logger.Info("Starting inventory Kafka listener")
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Info("Stopping inventory Kafka listener")
					return
				}
				c.logger.Error("Failed to read kafka message", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.backoff):
				}
				continue
			}
			dispatch(c.logger, msg.Value, handler)
		}
	}()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			cancel()
			<-done
			if err := reader.Close(); err != nil {
				c.logger.Warn("Failed to close kafka reader", zap.Error(err))
			}
		})
	}
	return detach, nil
}

func dispatch(log logger.ZapLogger, value []byte, handler func(raw map[string]any)) {
	raw, err := DecodeFrame(value)
	if err != nil {
		if errors.Is(err, ErrDeleted) {
			log.Info("Ignoring delete frame", zap.Error(err))
			return
		}
		log.Warn("Dropping unreadable inventory frame", zap.Error(err))
		return
	}
	handler(raw)
}
