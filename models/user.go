package models

import (
	"gorm.io/gorm"
)

// User is a ledger account, unique per agent. Players, bankers and the
// default player are all users; every agent holds its own default player.
// Balances only move through the ledger package.
type User struct {
	gorm.Model

	UserCode     string            `gorm:"uniqueIndex:idx_agent_user;size:32" json:"user_code"`
	AgentCode    string            `gorm:"uniqueIndex:idx_agent_user;size:32" json:"agent_code"`
	Balance      float64           `json:"balance"`
	Currency     string            `gorm:"size:8" json:"currency"`
	IsActive     bool              `gorm:"default:true" json:"is_active"`
	Transactions []UserTransaction `gorm:"foreignKey:UserID"`
}

type UserTransaction struct {
	gorm.Model

	UserID        uint    `gorm:"index"`
	AgentCode     string  `gorm:"index;size:32"`
	UserCode      string  `gorm:"size:32;index"`
	TrxType       string  `gorm:"size:16"`
	Amount        float64 `json:"amount"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
	Currency      string  `gorm:"size:8" json:"currency"`
	Note          string  `gorm:"size:255"`
	RefID         string  `gorm:"size:64;index"`
}
