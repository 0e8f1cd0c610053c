// Package pubsub shares store change signals between service instances over
// Redis pub/sub, so subscribers connected to any instance see every write.
package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"siteadmin/internal/config"
	"siteadmin/internal/repository"
)

const DefaultChannel = "siteadmin:changes"

// NewRedisClient connects to Redis and verifies it answers.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisNotifier publishes changed paths to a channel and, via Run, feeds
// every received path into the local broker.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	broker  *repository.Broker
	log     *zap.Logger
}

func NewRedisNotifier(client *redis.Client, broker *repository.Broker, log *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: DefaultChannel, broker: broker, log: log}
}

var _ repository.Notifier = (*RedisNotifier)(nil)

func (n *RedisNotifier) Publish(ctx context.Context, path string) error {
	return n.client.Publish(ctx, n.channel, path).Err()
}

// Run relays messages until ctx is cancelled.
func (n *RedisNotifier) Run(ctx context.Context) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", n.channel, err)
	}
	n.log.Info("change relay started", zap.String("channel", n.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			n.handle(msg.Payload)
		}
	}
}

func (n *RedisNotifier) handle(payload string) {
	path, err := repository.CleanPath(payload)
	if err != nil {
		n.log.Warn("dropping malformed change signal", zap.String("payload", payload))
		return
	}
	n.broker.Notify(path)
}
