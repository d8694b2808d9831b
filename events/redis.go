package events

import (
	"context"
	"encoding/json"
	"time"

	"bandar/callback"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FailureAlert is published for every failed callback attempt.
type FailureAlert struct {
	WagerCode  string    `json:"wager_code"`
	URL        string    `json:"url"`
	Attempt    int       `json:"attempt"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Error      string    `json:"error"`
	At         time.Time `json:"at"`
}

// RedisAlerts implements callback.FailureSink over Redis pub/sub.
type RedisAlerts struct {
	rdb     *redis.Client
	channel string
	log     *zap.Logger
}

func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

func NewRedisAlerts(rdb *redis.Client, channel string, log *zap.Logger) *RedisAlerts {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisAlerts{rdb: rdb, channel: channel, log: log.Named("alerts")}
}

func (r *RedisAlerts) DeliveryFailed(ctx context.Context, d callback.Delivery) {
	alert := FailureAlert{
		WagerCode:  d.WagerCode,
		URL:        d.URL,
		Attempt:    d.Attempt,
		HTTPStatus: d.HTTPStatus,
		At:         time.Now().UTC(),
	}
	if d.Err != nil {
		alert.Error = d.Err.Error()
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		r.log.Error("marshal failure alert", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.log.Warn("publish failure alert",
			zap.String("wager_code", d.WagerCode),
			zap.Error(err),
		)
	}
}
