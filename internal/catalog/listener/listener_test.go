package listener

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDecodeFrame(t *testing.T) {
	raw, err := DecodeFrame([]byte(`{"id": 5, "price": 12.50, "stock": 3}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("5"), raw["id"])
	assert.Equal(t, json.Number("12.50"), raw["price"])

	raw, err = DecodeFrame([]byte(`{"event_type":"StockChanged","payload":{"id":"9","stock":0}}`))
	require.NoError(t, err)
	assert.Equal(t, "9", raw["id"])

	_, err = DecodeFrame([]byte(`DELETED:5`))
	assert.ErrorIs(t, err, ErrDeleted)

	_, err = DecodeFrame([]byte(`"DELETED:7"`))
	assert.ErrorIs(t, err, ErrDeleted)

	_, err = DecodeFrame([]byte(`  `))
	assert.ErrorIs(t, err, ErrNotProduct)

	_, err = DecodeFrame([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrNotProduct)

	_, err = DecodeFrame([]byte(`{"id":`))
	assert.Error(t, err)
}

type fakeReader struct {
	mu     sync.Mutex
	msgs   chan kafka.Message
	errs   int
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.errs > 0 {
		r.errs--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("broker hiccup")
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestKafkaChannel_DeliversInOrderAndDetaches(t *testing.T) {
	reader := &fakeReader{msgs: make(chan kafka.Message, 4), errs: 1}
	ch := &KafkaChannel{
		newReader: func() messageReader { return reader },
		logger:    logger.NewNop(),
		backoff:   time.Millisecond,
	}

	got := make(chan map[string]any, 4)
	detach, err := ch.Subscribe(context.Background(), func(raw map[string]any) { got <- raw })
	require.NoError(t, err)

	reader.msgs <- kafka.Message{Value: []byte(`{"id":1,"stock":4}`)}
	reader.msgs <- kafka.Message{Value: []byte(`DELETED:1`)}
	reader.msgs <- kafka.Message{Value: []byte(`{"id":1,"stock":2}`)}

	first := <-got
	second := <-got
	assert.Equal(t, json.Number("4"), first["stock"])
	assert.Equal(t, json.Number("2"), second["stock"])

	detach()
	detach()

	reader.mu.Lock()
	assert.True(t, reader.closed)
	reader.mu.Unlock()
}

func TestKafkaChannel_RequiresHandler(t *testing.T) {
	ch := NewKafkaChannel(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}, logger.NewNop())
	_, err := ch.Subscribe(context.Background(), nil)
	assert.Error(t, err)
}

func TestKafkaChannel_NewGroupStartsAtHead(t *testing.T) {
	rc := readerConfig(KafkaConfig{Brokers: []string{"b1:9092", "b2:9092"}, Topic: "inventory", GroupID: "catalog-view-1"})

	assert.Equal(t, kafka.LastOffset, rc.StartOffset)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, rc.Brokers)
	assert.Equal(t, "inventory", rc.Topic)
	assert.Equal(t, "catalog-view-1", rc.GroupID)
}

type fakeSubscription struct {
	mu         sync.Mutex
	msgs       chan *redis.Message
	receiveErr error
	closes     int
	dropOnce   sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{msgs: make(chan *redis.Message, 4)}
}

func (s *fakeSubscription) Receive(ctx context.Context) (interface{}, error) {
	if s.receiveErr != nil {
		return nil, s.receiveErr
	}
	return &redis.Subscription{Kind: "subscribe", Channel: "inventory", Count: 1}, nil
}

func (s *fakeSubscription) Channel(opts ...redis.ChannelOption) <-chan *redis.Message {
	return s.msgs
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.drop()
	return nil
}

// drop ends the message stream the way a lost server connection does.
func (s *fakeSubscription) drop() {
	s.dropOnce.Do(func() { close(s.msgs) })
}

func (s *fakeSubscription) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func redisChannelWith(sub *fakeSubscription) (*RedisChannel, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &RedisChannel{
		subscribe: func(ctx context.Context, channel string) subscription { return sub },
		channel:   "inventory",
		logger:    logger.FromZap(zap.New(core)),
	}, logs
}

func TestRedisChannel_DeliversInOrderAndSkipsDeletes(t *testing.T) {
	sub := newFakeSubscription()
	ch, logs := redisChannelWith(sub)

	got := make(chan map[string]any, 4)
	detach, err := ch.Subscribe(context.Background(), func(raw map[string]any) { got <- raw })
	require.NoError(t, err)
	defer detach()

	sub.msgs <- &redis.Message{Channel: "inventory", Payload: `{"id":1,"stock":4}`}
	sub.msgs <- &redis.Message{Channel: "inventory", Payload: `DELETED:1`}
	sub.msgs <- &redis.Message{Channel: "inventory", Payload: `{"id":1,"stock":2}`}

	first := <-got
	second := <-got
	assert.Equal(t, json.Number("4"), first["stock"])
	assert.Equal(t, json.Number("2"), second["stock"])
	assert.Equal(t, 1, logs.FilterMessage("Ignoring delete frame").Len())
}

func TestRedisChannel_DetachIsIdempotent(t *testing.T) {
	sub := newFakeSubscription()
	ch, _ := redisChannelWith(sub)

	detach, err := ch.Subscribe(context.Background(), func(map[string]any) {})
	require.NoError(t, err)

	detach()
	detach()
	assert.Equal(t, 1, sub.closeCount())
}

func TestRedisChannel_ClosedSubscriptionStopsDelivery(t *testing.T) {
	sub := newFakeSubscription()
	ch, logs := redisChannelWith(sub)

	var calls int
	var mu sync.Mutex
	detach, err := ch.Subscribe(context.Background(), func(map[string]any) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	sub.msgs <- &redis.Message{Channel: "inventory", Payload: `{"id":3,"stock":1}`}
	sub.drop()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Redis inventory subscription closed").Len() == 1
	}, time.Second, 5*time.Millisecond)

	detach()
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	assert.Equal(t, 1, sub.closeCount())
}

func TestRedisChannel_SubscribeFailure(t *testing.T) {
	sub := newFakeSubscription()
	sub.receiveErr = errors.New("connection refused")
	ch, _ := redisChannelWith(sub)

	detach, err := ch.Subscribe(context.Background(), func(map[string]any) {})
	assert.ErrorContains(t, err, "redis subscribe")
	assert.Nil(t, detach)
	assert.Equal(t, 1, sub.closeCount())
}

func TestRedisChannel_RequiresHandler(t *testing.T) {
	ch, _ := redisChannelWith(newFakeSubscription())
	_, err := ch.Subscribe(context.Background(), nil)
	assert.Error(t, err)
}
