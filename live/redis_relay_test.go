package live

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texperia/registration/models"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisRelay_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(nil, logger)
	go hub.Run(ctx)

	relay := newRedisRelay(client, hub, logger)
	relay.channel = "texperia:test:" + t.Name()
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	// Ждём, пока подписка станет активной.
	require.Eventually(t, func() bool {
		counts, err := client.PubSubNumSub(ctx, relay.channel).Result()
		return err == nil && counts[relay.channel] == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, relay.Publish(ctx, models.PaymentEvent{TeamID: 1, EventID: models.EventComicStrip, Status: models.PaymentRejected}))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}
