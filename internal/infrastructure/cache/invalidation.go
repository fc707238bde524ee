package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultInvalidationChannel = "lookup:invalidate"

// InvalidationMessage tells other instances to drop local entries under Prefix
type InvalidationMessage struct {
	Prefix    string `json:"prefix"`
	Origin    string `json:"origin"`
	Timestamp int64  `json:"timestamp"`
}

// RedisCacheInvalidator broadcasts prefix invalidations over Redis Pub/Sub
type RedisCacheInvalidator struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger

	mu        sync.Mutex
	cancelFn  context.CancelFunc
	isRunning bool
}

// NewRedisCacheInvalidator creates an invalidator over a shared client.
// origin identifies this instance so it can skip its own messages.
func NewRedisCacheInvalidator(client *redis.Client, origin string, logger *zap.Logger) *RedisCacheInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCacheInvalidator{
		client:  client,
		channel: defaultInvalidationChannel,
		origin:  origin,
		logger:  logger,
	}
}

// Publish announces that entries under prefix are stale
func (i *RedisCacheInvalidator) Publish(ctx context.Context, prefix string) error {
	data, err := json.Marshal(InvalidationMessage{
		Prefix:    prefix,
		Origin:    i.origin,
		Timestamp: time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Subscribe blocks, calling callback for every message from another instance,
// until ctx is cancelled or Close is called.
func (i *RedisCacheInvalidator) Subscribe(ctx context.Context, callback func(InvalidationMessage)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	i.cancelFn = cancel
	i.isRunning = true
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	i.logger.Info("Subscribed to cache invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Cache invalidation channel closed")
				return nil
			}
			var m InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				i.logger.Error("Failed to unmarshal invalidation", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			if m.Origin == i.origin {
				continue
			}
			callback(m)
		}
	}
}

// Close stops a running subscription
func (i *RedisCacheInvalidator) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cancelFn != nil {
		i.cancelFn()
	}
	return nil
}
