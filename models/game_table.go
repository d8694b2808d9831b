package models

import "gorm.io/gorm"

// GameTable is the per-table round state. CurrentBanker changes only
// between rounds.
type GameTable struct {
	gorm.Model

	TableID       string `gorm:"uniqueIndex:idx_agent_table;size:64" json:"table_id"`
	AgentCode     string `gorm:"uniqueIndex:idx_agent_table;size:32" json:"agent_code"`
	GameTypeID    int    `json:"game_type_id"`
	CurrentBanker string `gorm:"size:32" json:"current_banker"`
}
