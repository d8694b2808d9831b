package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WagerTransaction is the provider-side settlement result. One row per
// wager_code, never updated.
type WagerTransaction struct {
	gorm.Model

	WagerCode  string  `gorm:"uniqueIndex;size:64;not null" json:"wager_code"`
	AgentCode  string  `gorm:"size:32;index;uniqueIndex:idx_agent_round_ref" json:"agent_code"`
	RoundRef   *string `gorm:"size:64;uniqueIndex:idx_agent_round_ref" json:"round_ref"`
	TableID    string  `gorm:"size:64;index" json:"table_id"`
	GameTypeID int     `json:"game_type_id"`

	BankerCode          string  `gorm:"size:32;index" json:"banker_code"`
	BankerBalanceBefore float64 `json:"banker_balance_before"`
	BankerBalanceAfter  float64 `json:"banker_balance_after"`
	AgentBalanceAfter   float64 `json:"agent_balance_after"`

	Players            datatypes.JSON `json:"players"`
	TotalPlayerNet     float64        `json:"total_player_net"`
	BankerAmountChange float64        `json:"banker_amount_change"`
	SettledAt          time.Time      `gorm:"index" json:"settled_at"`
}

func (w WagerTransaction) Key() string { return w.WagerCode }

// ProcessedCallback is the client-side idempotency oracle: its existence
// means the wager_code has been applied to the local ledger.
type ProcessedCallback struct {
	gorm.Model

	WagerCode          string         `gorm:"uniqueIndex;size:64;not null" json:"wager_code"`
	GameTypeID         int            `json:"game_type_id"`
	Players            datatypes.JSON `json:"players"`
	BankerBalance      float64        `json:"banker_balance"`
	AgentBalance       float64        `json:"agent_balance"`
	Timestamp          string         `gorm:"size:64" json:"timestamp"`
	TotalPlayerNet     float64        `json:"total_player_net"`
	BankerAmountChange float64        `json:"banker_amount_change"`
}

func (p ProcessedCallback) Key() string { return p.WagerCode }
