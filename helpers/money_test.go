package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 10.13, RoundMoney(10.125))
	assert.Equal(t, -10.13, RoundMoney(-10.125))
	assert.Equal(t, 0.3, RoundMoney(0.1+0.2))
	assert.Equal(t, 9850.0, RoundMoney(9850))
}

func TestGenerateWagerCode(t *testing.T) {
	a := GenerateWagerCode()
	b := GenerateWagerCode()

	assert.Len(t, a, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", a)
	assert.NotEqual(t, a, b)
}
