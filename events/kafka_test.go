package events

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestKafkaRoundsFlushesPromptly(t *testing.T) {
	k := NewKafkaRounds("b1:9092,b2:9092", "rounds.settled")
	defer k.Close()

	assert.Equal(t, "rounds.settled", k.w.Topic)
	assert.LessOrEqual(t, k.w.BatchTimeout, 10*time.Millisecond)
	assert.LessOrEqual(t, k.w.WriteTimeout, 2*time.Second)
	assert.IsType(t, &kafka.Hash{}, k.w.Balancer)
	assert.Equal(t, "b1:9092,b2:9092", k.w.Addr.String())
}
