package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig contains Redis connection settings for the change feed bridge.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Address,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 3,
	})

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	slog.Info("connected to redis", "address", cfg.Address, "db", cfg.DB)
	return client, nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// RedisBus signals queue changes on channel "<prefix>:<barberID>". The payload
// is the publishing instance ID so an instance can skip its own signals.
type RedisBus struct {
	client     *redis.Client
	prefix     string
	instanceID string
}

// NewRedisBus creates a Redis Pub/Sub bus.
func NewRedisBus(client *redis.Client, prefix, instanceID string) *RedisBus {
	if prefix == "" {
		prefix = "barberqueue:queue"
	}
	return &RedisBus{
		client:     client,
		prefix:     prefix,
		instanceID: instanceID,
	}
}

// Publish signals a change of barberID's queue to other instances.
func (b *RedisBus) Publish(ctx context.Context, barberID string) error {
	if err := b.client.Publish(ctx, b.channel(barberID), b.instanceID).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run pattern-subscribes to all queue channels and forwards remote signals.
func (b *RedisBus) Run(ctx context.Context, onChange func(barberID string)) error {
	pubsub := b.client.PSubscribe(ctx, b.prefix+":*")
	defer func() {
		if err := pubsub.Close(); err != nil {
			slog.Debug("failed to close redis subscription", "error", err)
		}
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			b.handle(msg, onChange)
		}
	}
}

func (b *RedisBus) handle(msg *redis.Message, onChange func(barberID string)) {
	if msg.Payload == b.instanceID {
		return
	}
	barberID, ok := b.barberFromChannel(msg.Channel)
	if !ok {
		slog.Warn("ignoring queue signal on unexpected channel", "channel", msg.Channel)
		return
	}
	onChange(barberID)
}

func (b *RedisBus) channel(barberID string) string {
	return b.prefix + ":" + barberID
}

func (b *RedisBus) barberFromChannel(channel string) (string, bool) {
	barberID, ok := strings.CutPrefix(channel, b.prefix+":")
	if !ok || barberID == "" {
		return "", false
	}
	return barberID, true
}
