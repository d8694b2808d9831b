package settlement_test

import (
	"math/rand"
	"testing"
	"time"

	"bandar/ledger"
	"bandar/settlement"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

func computer() settlement.Computer {
	return settlement.Computer{
		Now:          func() time.Time { return fixedNow },
		NewWagerCode: func() string { return "0123456789abcdef0123456789abcdef" },
	}
}

func lookup(balances map[string]float64) settlement.BalanceLookup {
	return func(id string) (float64, error) {
		b, ok := balances[id]
		if !ok {
			return 0, &ledger.AccountNotFoundError{PlayerID: id}
		}
		return b, nil
	}
}

func TestComputeSinglePlayerWin(t *testing.T) {
	in := settlement.RoundInput{
		BankerID:  "banker",
		AgentCode: "ag1",
		Players: []settlement.PlayerBet{
			{PlayerID: "alice", BetAmount: 100, WinLoseStatus: settlement.StatusWin, AmountChanged: 50},
		},
	}

	res, err := computer().Compute(in, lookup(map[string]float64{"banker": 9900, "alice": 1000}))
	require.NoError(t, err)

	assert.Equal(t, "0123456789abcdef0123456789abcdef", res.WagerCode)
	assert.Equal(t, fixedNow, res.Timestamp)
	require.Len(t, res.Players, 1)
	assert.Equal(t, 1000.0, res.Players[0].BalanceBefore)
	assert.Equal(t, 1050.0, res.Players[0].BalanceAfter)
	assert.Equal(t, 50.0, res.TotalPlayerNet)
	assert.Equal(t, -50.0, res.BankerAmountChange)
	assert.Equal(t, 9900.0, res.Banker.BalanceBefore)
	assert.Equal(t, 9850.0, res.Banker.BalanceAfter)
	assert.Equal(t, "ag1", res.Agent.PlayerID)
	assert.Equal(t, 9850.0, res.Agent.BalanceAfter)
	assert.True(t, res.Net().IsZero())
}

func TestComputeMixedOutcomes(t *testing.T) {
	in := settlement.RoundInput{
		BankerID: "banker",
		Players: []settlement.PlayerBet{
			{PlayerID: "a", BetAmount: 100, WinLoseStatus: settlement.StatusWin, AmountChanged: 95.5},
			{PlayerID: "b", BetAmount: 200, WinLoseStatus: settlement.StatusLoss, AmountChanged: -200},
			{PlayerID: "c", BetAmount: 50, WinLoseStatus: settlement.StatusPush, AmountChanged: 0},
		},
	}

	res, err := computer().Compute(in, lookup(map[string]float64{"banker": 500, "a": 10, "b": 300, "c": 0}))
	require.NoError(t, err)

	assert.Equal(t, -104.5, res.TotalPlayerNet)
	assert.Equal(t, 104.5, res.BankerAmountChange)
	assert.Equal(t, 604.5, res.Banker.BalanceAfter)
	assert.Equal(t, 105.5, res.Players[0].BalanceAfter)
	assert.Equal(t, 100.0, res.Players[1].BalanceAfter)
	assert.Equal(t, 0.0, res.Players[2].BalanceAfter)
}

func TestComputeAllowsNegativeBalances(t *testing.T) {
	in := settlement.RoundInput{
		BankerID: "banker",
		Players: []settlement.PlayerBet{
			{PlayerID: "a", BetAmount: 100, WinLoseStatus: settlement.StatusWin, AmountChanged: 300},
		},
	}

	res, err := computer().Compute(in, lookup(map[string]float64{"banker": 100, "a": 0}))
	require.NoError(t, err)

	assert.Equal(t, -200.0, res.Banker.BalanceAfter)
}

func TestComputeZeroSumProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := []settlement.Status{settlement.StatusWin, settlement.StatusLoss, settlement.StatusPush}

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(8)
		balances := map[string]float64{"banker": float64(rng.Intn(1_000_000)) / 100}
		in := settlement.RoundInput{BankerID: "banker"}

		for j := 0; j < n; j++ {
			id := string(rune('a' + j))
			balances[id] = float64(rng.Intn(1_000_000)) / 100
			bet := float64(rng.Intn(100_000)) / 100

			status := statuses[rng.Intn(len(statuses))]
			var change float64
			switch status {
			case settlement.StatusWin:
				change = float64(rng.Intn(300_000)) / 100
			case settlement.StatusLoss:
				change = -bet
			}
			in.Players = append(in.Players, settlement.PlayerBet{
				PlayerID: id, BetAmount: bet, WinLoseStatus: status, AmountChanged: change,
			})
		}

		res, err := computer().Compute(in, lookup(balances))
		require.NoError(t, err)

		sum := decimal.Zero
		for _, p := range in.Players {
			sum = sum.Add(decimal.NewFromFloat(p.AmountChanged))
		}
		residual := sum.Add(decimal.NewFromFloat(res.BankerAmountChange)).Abs()
		assert.True(t, residual.LessThanOrEqual(decimal.New(1, -2)), "residual %s", residual)
		assert.True(t, res.Net().IsZero())
	}
}

func TestComputeRejectsRoundingDrift(t *testing.T) {
	in := settlement.RoundInput{BankerID: "banker"}
	balances := map[string]float64{"banker": 1000}
	for _, id := range []string{"a", "b", "c"} {
		balances[id] = 100
		in.Players = append(in.Players, settlement.PlayerBet{
			PlayerID: id, BetAmount: 1, WinLoseStatus: settlement.StatusWin, AmountChanged: 0.005,
		})
	}

	_, err := computer().Compute(in, lookup(balances))

	var zs *settlement.ZeroSumViolation
	require.ErrorAs(t, err, &zs)
	assert.Equal(t, "0.015", zs.Residual.String())
}

func TestComputeUnknownAccount(t *testing.T) {
	in := settlement.RoundInput{
		BankerID: "banker",
		Players: []settlement.PlayerBet{
			{PlayerID: "a", WinLoseStatus: settlement.StatusWin, AmountChanged: 10},
			{PlayerID: "ghost", WinLoseStatus: settlement.StatusLoss, AmountChanged: -10},
		},
	}

	_, err := computer().Compute(in, lookup(map[string]float64{"banker": 10, "a": 10}))

	var nf *ledger.AccountNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.PlayerID)
}

func TestValidate(t *testing.T) {
	base := func() settlement.RoundInput {
		return settlement.RoundInput{
			BankerID: "banker",
			Players: []settlement.PlayerBet{
				{PlayerID: "a", BetAmount: 10, WinLoseStatus: settlement.StatusWin, AmountChanged: 10},
			},
		}
	}

	cases := map[string]struct {
		mutate func(in *settlement.RoundInput)
		field  string
	}{
		"missing banker":  {func(in *settlement.RoundInput) { in.BankerID = "" }, "banker.player_id"},
		"no players":      {func(in *settlement.RoundInput) { in.Players = nil }, "players"},
		"empty player id": {func(in *settlement.RoundInput) { in.Players[0].PlayerID = "" }, "players[0].player_id"},
		"banker plays":    {func(in *settlement.RoundInput) { in.Players[0].PlayerID = "banker" }, "players[0].player_id"},
		"negative bet":    {func(in *settlement.RoundInput) { in.Players[0].BetAmount = -1 }, "players[0].bet_amount"},
		"unknown status":  {func(in *settlement.RoundInput) { in.Players[0].WinLoseStatus = "draw" }, "players[0].win_lose_status"},
		"win loses":       {func(in *settlement.RoundInput) { in.Players[0].AmountChanged = -5 }, "players[0].amount_changed"},
		"loss gains": {func(in *settlement.RoundInput) {
			in.Players[0].WinLoseStatus = settlement.StatusLoss
		}, "players[0].amount_changed"},
		"push moves": {func(in *settlement.RoundInput) {
			in.Players[0].WinLoseStatus = settlement.StatusPush
		}, "players[0].amount_changed"},
		"duplicate player": {func(in *settlement.RoundInput) {
			in.Players = append(in.Players, in.Players[0])
		}, "players[1].player_id"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := base()
			tc.mutate(&in)

			err := settlement.Validate(in)

			var ve *settlement.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	assert.NoError(t, settlement.Validate(base()))
}
