package models

import "gorm.io/gorm"

// Operator groups agents and carries the fallback callback URL for them.
type Operator struct {
	gorm.Model

	OperatorCode string `gorm:"uniqueIndex;size:32" json:"operator_code"`
	Name         string `gorm:"size:64" json:"name"`
	CallbackURL  string `gorm:"size:255" json:"callback_url"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	Agents []Agent `gorm:"foreignKey:OperatorCode;references:OperatorCode"`
}

type Agent struct {
	gorm.Model

	Username     string  `gorm:"uniqueIndex;size:32" json:"username"`
	AgentCode    string  `gorm:"uniqueIndex;size:32" json:"agent_code"`
	OperatorCode string  `gorm:"index;size:32" json:"operator_code"`
	SecretKey    string  `gorm:"size:128" json:"secret_key"`
	CallbackURL  string  `gorm:"size:255" json:"callback_url"`
	Balance      float64 `json:"balance"`
	Currency     string  `gorm:"size:8" json:"currency"`
	IsActive     bool    `gorm:"default:true" json:"isactive"`

	Users        []User             `gorm:"foreignKey:AgentCode;references:AgentCode"`
	Transactions []AgentTransaction `gorm:"foreignKey:AgentID"`
}

// AgentTransaction is the house-side bookkeeping entry written once per
// settled round. It mirrors the banker balance and is not part of the
// zero-sum check.
type AgentTransaction struct {
	gorm.Model

	AgentID       uint    `gorm:"index"`
	AgentCode     string  `gorm:"index;size:32"`
	TrxType       string  `gorm:"size:16"`
	Amount        float64 `json:"amount"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
	Currency      string  `gorm:"size:8"`
	Note          string  `gorm:"size:255"`
	RefID         string  `gorm:"size:64;index"`
}
