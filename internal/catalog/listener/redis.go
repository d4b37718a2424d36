package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// subscription is the subset of *redis.PubSub the channel needs.
type subscription interface {
	Receive(ctx context.Context) (interface{}, error)
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// RedisChannel delivers inventory frames published on a Redis pub/sub channel.
type RedisChannel struct {
	subscribe func(ctx context.Context, channel string) subscription
	channel   string
	logger    logger.ZapLogger
}

func NewRedisChannel(rdb *redis.Client, channel string, log logger.ZapLogger) *RedisChannel {
	return &RedisChannel{
		subscribe: func(ctx context.Context, channel string) subscription {
			return rdb.Subscribe(ctx, channel)
		},
		channel: channel,
		logger:  log.With(zap.String("channel", channel)),
	}
}

func (c *RedisChannel) Subscribe(ctx context.Context, handler func(raw map[string]any)) (func(), error) {
	if handler == nil {
		return nil, errors.New("handler required")
	}

	sub := c.subscribe(ctx, c.channel)
	// Wait for the subscription confirmation so a dead server fails here.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					if ctx.Err() == nil {
						c.logger.Warn("Redis inventory subscription closed")
					}
					return
				}
				dispatch(c.logger, []byte(m.Payload), handler)
			}
		}
	}()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			cancel()
			if err := sub.Close(); err != nil {
				c.logger.Warn("Failed to close redis subscription", zap.Error(err))
			}
			<-done
		})
	}
	return detach, nil
}
