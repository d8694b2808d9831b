package events_test

import (
	"context"
	"errors"
	"testing"

	"bandar/callback"
	"bandar/events"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNopPublisher(t *testing.T) {
	var p events.RoundPublisher = events.Nop{}
	assert.NoError(t, p.PublishRoundSettled(context.Background(), events.RoundSettled{WagerCode: "w1"}))
}

func TestRedisAlertsLogsUnreachableBroker(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()

	var sink callback.FailureSink = events.NewRedisAlerts(rdb, "callback_failures", zap.New(core))
	sink.DeliveryFailed(context.Background(), callback.Delivery{
		WagerCode: "w1",
		URL:       "http://client.example/cb",
		Err:       errors.New("boom"),
	})

	entries := logs.FilterMessage("publish failure alert").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "w1", entries[0].ContextMap()["wager_code"])
	}
}
