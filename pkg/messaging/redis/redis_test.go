package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *RedisBroker {
	t.Helper()
	srv := miniredis.RunT(t)

	logger := zerolog.Nop()
	broker, err := NewRedisBroker(Config{
		URL:          "redis://" + srv.Addr(),
		MaxRetries:   1,
		RetryBackoff: 10 * time.Millisecond,
		PoolSize:     2,
		MinIdleConns: 1,
	}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })
	return broker.(*RedisBroker)
}

func TestPublishSubscribe(t *testing.T) {
	broker := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := broker.Subscribe(ctx, "appointment.created")
	require.NoError(t, err)

	msg := map[string]string{"appointment_id": "abc"}
	require.NoError(t, broker.Publish(ctx, "appointment.created", msg))

	select {
	case payload := <-ch:
		assert.JSONEq(t, `{"appointment_id":"abc"}`, string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSubscribeStopsOnContextCancel(t *testing.T) {
	broker := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := broker.Subscribe(ctx, "events")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel closes when the context is cancelled")
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close")
	}
}

func TestNewRedisBrokerInvalidURL(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewRedisBroker(Config{URL: "not-a-url"}, &logger)
	assert.Error(t, err)
}
