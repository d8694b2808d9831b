package services

import (
	"context"
	"errors"
	"fmt"

	"bandar/guard"
	"bandar/ledger"
	"bandar/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tables owns per-table round state. The banker only changes between
// rounds, through RotateBanker.
type Tables struct {
	db    *gorm.DB
	guard *guard.Guard
	log   *zap.Logger
}

func NewTables(db *gorm.DB, g *guard.Guard, log *zap.Logger) *Tables {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tables{db: db, guard: g, log: log.Named("tables")}
}

// TableState is the effective view of a table: Banker is who banks the next
// round after the pin policy.
type TableState struct {
	TableID       string `json:"table_id"`
	AgentCode     string `json:"agent_code"`
	GameTypeID    int    `json:"game_type_id"`
	CurrentBanker string `json:"current_banker"`
	Banker        string `json:"banker"`
	Pinned        bool   `json:"pinned"`
}

func (t *Tables) State(ctx context.Context, agentCode, tableID string) (*TableState, error) {
	var table models.GameTable
	err := t.db.WithContext(ctx).Where("table_id = ? AND agent_code = ?", tableID, agentCode).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return t.stateOf(table), nil
}

// RotateBanker hands the bank of tableID to banker, creating the table on
// first use. It is refused while the sentinel is pinned as banker.
func (t *Tables) RotateBanker(ctx context.Context, agentCode, tableID, banker string, gameTypeID int) (*TableState, error) {
	if t.guard.PinSentinelBanker && banker != t.guard.Sentinel {
		return nil, ErrBankerPinned
	}

	var table models.GameTable
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ledger.Lock(tx, agentCode, []string{banker}); err != nil {
			return err
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("table_id = ? AND agent_code = ?", tableID, agentCode).
			First(&table).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			table = models.GameTable{
				TableID:       tableID,
				AgentCode:     agentCode,
				GameTypeID:    gameTypeID,
				CurrentBanker: banker,
			}
			return tx.Create(&table).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]any{"current_banker": banker}
		if gameTypeID != 0 {
			updates["game_type_id"] = gameTypeID
		}
		if err := tx.Model(&table).Updates(updates).Error; err != nil {
			return fmt.Errorf("rotate banker of %s: %w", tableID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.log.Info("banker rotated",
		zap.String("agent_code", agentCode),
		zap.String("table_id", tableID),
		zap.String("banker", banker),
	)
	return t.stateOf(table), nil
}

func (t *Tables) stateOf(table models.GameTable) *TableState {
	return &TableState{
		TableID:       table.TableID,
		AgentCode:     table.AgentCode,
		GameTypeID:    table.GameTypeID,
		CurrentBanker: table.CurrentBanker,
		Banker:        t.guard.ResolveBanker(table.CurrentBanker),
		Pinned:        t.guard.PinSentinelBanker,
	}
}
