// Package events publishes settlement side-effects to the reporting and
// alerting collaborators. Every publisher is optional.
package events

import (
	"context"
	"time"

	"bandar/settlement"
)

// RoundSettled is emitted once per committed settlement.
type RoundSettled struct {
	WagerCode          string                     `json:"wager_code"`
	AgentCode          string                     `json:"agent_code"`
	TableID            string                     `json:"table_id,omitempty"`
	GameTypeID         int                        `json:"game_type_id"`
	Players            []settlement.PlayerBalance `json:"players"`
	Banker             settlement.PlayerBalance   `json:"banker"`
	AgentBalance       float64                    `json:"agent_balance"`
	TotalPlayerNet     float64                    `json:"total_player_net"`
	BankerAmountChange float64                    `json:"banker_amount_change"`
	SettledAt          time.Time                  `json:"settled_at"`
}

type RoundPublisher interface {
	PublishRoundSettled(ctx context.Context, ev RoundSettled) error
}

// Nop drops everything.
type Nop struct{}

func (Nop) PublishRoundSettled(context.Context, RoundSettled) error { return nil }
