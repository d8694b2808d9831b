package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// batchTimeout bounds how long a settle waits for its event to be flushed.
const batchTimeout = 10 * time.Millisecond

// KafkaRounds writes RoundSettled events keyed by wager_code.
type KafkaRounds struct {
	w *kafka.Writer
}

func NewKafkaRounds(brokers string, topic string) *KafkaRounds {
	return &KafkaRounds{w: &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           2 * time.Second,
	}}
}

func (k *KafkaRounds) PublishRoundSettled(ctx context.Context, ev RoundSettled) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal round event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.WagerCode),
		Value: payload,
		Time:  time.Now(),
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write round event %s: %w", ev.WagerCode, err)
	}
	return nil
}

func (k *KafkaRounds) Close() error {
	return k.w.Close()
}
