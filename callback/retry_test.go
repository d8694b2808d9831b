package callback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, NoRetry{}, PolicyFor(0, time.Minute))
	assert.Equal(t, LinearBackoff{Max: 3, Interval: time.Minute}, PolicyFor(3, time.Minute))
}

func TestLinearBackoffDue(t *testing.T) {
	p := LinearBackoff{Max: 3, Interval: time.Minute}
	last := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	assert.False(t, p.Due(1, last, last.Add(30*time.Second)))
	assert.True(t, p.Due(1, last, last.Add(time.Minute)))
	assert.True(t, p.Due(2, last, last.Add(2*time.Minute)))
	assert.False(t, p.Due(3, last, last.Add(time.Hour)))
	assert.False(t, NoRetry{}.Due(0, last, last.Add(time.Hour)))
}
