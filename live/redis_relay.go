package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/texperia/registration/models"
)

const PaymentChannel = "texperia:payment-events"

// RedisRelay publishes payment events to Redis so every API instance can
// deliver them to its own websocket clients.
type RedisRelay struct {
	client  *redis.Client
	hub     *Hub
	channel string
	logger  *slog.Logger
}

func NewRedisRelay(ctx context.Context, redisURL string, hub *Hub, logger *slog.Logger) (*RedisRelay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.MaintNotificationsConfig = &maintnotifications.Config{
		Mode: maintnotifications.ModeDisabled,
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newRedisRelay(client, hub, logger), nil
}

func newRedisRelay(client *redis.Client, hub *Hub, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{client: client, hub: hub, channel: PaymentChannel, logger: logger}
}

func (r *RedisRelay) Publish(ctx context.Context, event models.PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}
	return nil
}

// Run forwards channel messages to the hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.PaymentEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Warn("Malformed payment event on Redis", slog.Any("error", err))
				continue
			}
			r.hub.Deliver(event)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
