// Package settlement turns a finished round into balance deltas. It does no
// I/O: balances come in through a BalanceLookup and the result goes back to
// the caller for persistence.
package settlement

import (
	"fmt"
	"time"

	"bandar/helpers"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusLoss Status = "loss"
	StatusWin  Status = "win"
	StatusPush Status = "push"
)

type PlayerBet struct {
	PlayerID      string
	BetAmount     float64
	WinLoseStatus Status
	AmountChanged float64
}

type RoundInput struct {
	BankerID  string
	AgentCode string
	Players   []PlayerBet
}

// BalanceLookup resolves the current balance of a ledger account.
type BalanceLookup func(playerID string) (float64, error)

type PlayerBalance struct {
	PlayerID      string  `json:"player_id"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
	AmountChanged float64 `json:"amount_changed"`
}

type AgentBalance struct {
	PlayerID     string  `json:"player_id"`
	BalanceAfter float64 `json:"balance_after"`
}

type Result struct {
	WagerCode          string          `json:"wager_code"`
	Players            []PlayerBalance `json:"players"`
	Banker             PlayerBalance   `json:"banker"`
	Agent              AgentBalance    `json:"agent"`
	TotalPlayerNet     float64         `json:"total_player_net"`
	BankerAmountChange float64         `json:"banker_amount_change"`
	Timestamp          time.Time       `json:"timestamp"`
}

// Computer carries the clock and wager code source so tests can pin them.
type Computer struct {
	Now          func() time.Time
	NewWagerCode func() string
}

var defaultComputer = Computer{
	Now:          func() time.Time { return time.Now().UTC() },
	NewWagerCode: helpers.GenerateWagerCode,
}

func Compute(in RoundInput, lookup BalanceLookup) (*Result, error) {
	return defaultComputer.Compute(in, lookup)
}

// Validate checks the structural constraints of a round.
func Validate(in RoundInput) error {
	if in.BankerID == "" {
		return &ValidationError{Field: "banker.player_id", Reason: "required"}
	}
	if len(in.Players) == 0 {
		return &ValidationError{Field: "players", Reason: "at least one player is required"}
	}

	seen := make(map[string]struct{}, len(in.Players))
	for i, p := range in.Players {
		field := fmt.Sprintf("players[%d]", i)
		if p.PlayerID == "" {
			return &ValidationError{Field: field + ".player_id", Reason: "required"}
		}
		if p.PlayerID == in.BankerID {
			return &ValidationError{Field: field + ".player_id", Reason: "banker cannot play against itself"}
		}
		if _, dup := seen[p.PlayerID]; dup {
			return &ValidationError{Field: field + ".player_id", Reason: "duplicate player " + p.PlayerID}
		}
		seen[p.PlayerID] = struct{}{}

		if p.BetAmount < 0 {
			return &ValidationError{Field: field + ".bet_amount", Reason: "must not be negative"}
		}

		change := helpers.Money(p.AmountChanged)
		switch p.WinLoseStatus {
		case StatusWin:
			if change.IsNegative() {
				return &ValidationError{Field: field + ".amount_changed", Reason: "win cannot lose money"}
			}
		case StatusLoss:
			if change.IsPositive() {
				return &ValidationError{Field: field + ".amount_changed", Reason: "loss cannot gain money"}
			}
		case StatusPush:
			if !change.IsZero() {
				return &ValidationError{Field: field + ".amount_changed", Reason: "push must not change the balance"}
			}
		default:
			return &ValidationError{Field: field + ".win_lose_status", Reason: fmt.Sprintf("unknown status %q", p.WinLoseStatus)}
		}
	}
	return nil
}

// Compute settles the round. The banker absorbs the exact negation of the
// rounded player net; the agent balance mirrors the banker afterwards.
func (c Computer) Compute(in RoundInput, lookup BalanceLookup) (*Result, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	rawNet := decimal.Zero
	playerNet := decimal.Zero
	players := make([]PlayerBalance, 0, len(in.Players))

	for _, p := range in.Players {
		balance, err := lookup(p.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("resolve player %s: %w", p.PlayerID, err)
		}

		before := helpers.Money(balance)
		change := helpers.Money(p.AmountChanged)
		after := before.Add(change)

		rawNet = rawNet.Add(decimal.NewFromFloat(p.AmountChanged))
		playerNet = playerNet.Add(after.Sub(before))

		players = append(players, PlayerBalance{
			PlayerID:      p.PlayerID,
			BalanceBefore: before.InexactFloat64(),
			BalanceAfter:  after.InexactFloat64(),
			AmountChanged: change.InexactFloat64(),
		})
	}

	bankerBalance, err := lookup(in.BankerID)
	if err != nil {
		return nil, fmt.Errorf("resolve banker %s: %w", in.BankerID, err)
	}
	bankerBefore := helpers.Money(bankerBalance)
	bankerChange := playerNet.Neg()
	bankerAfter := bankerBefore.Add(bankerChange)

	drift := rawNet.Sub(playerNet).Abs()
	residual := playerNet.Add(bankerAfter.Sub(bankerBefore)).Abs()
	if drift.GreaterThan(helpers.MinorUnit) || residual.GreaterThan(helpers.MinorUnit) {
		return nil, &ZeroSumViolation{
			PlayerNet:    playerNet,
			BankerChange: bankerChange,
			Residual:     decimal.Max(drift, residual),
		}
	}

	return &Result{
		WagerCode: c.NewWagerCode(),
		Players:   players,
		Banker: PlayerBalance{
			PlayerID:      in.BankerID,
			BalanceBefore: bankerBefore.InexactFloat64(),
			BalanceAfter:  bankerAfter.InexactFloat64(),
			AmountChanged: bankerChange.InexactFloat64(),
		},
		Agent: AgentBalance{
			PlayerID:     in.AgentCode,
			BalanceAfter: bankerAfter.InexactFloat64(),
		},
		TotalPlayerNet:     playerNet.InexactFloat64(),
		BankerAmountChange: bankerChange.InexactFloat64(),
		Timestamp:          c.Now(),
	}, nil
}

// Net returns the zero-sum residual of a result in minor-unit precision.
func (r *Result) Net() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range r.Players {
		sum = sum.Add(helpers.Money(p.BalanceAfter).Sub(helpers.Money(p.BalanceBefore)))
	}
	return sum.Add(helpers.Money(r.BankerAmountChange))
}
