// Package store is the idempotency gate of the settlement pipeline: one
// immutable row per wager_code, first writer wins.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Outcome int

const (
	Created Outcome = iota + 1
	AlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	}
	return "unknown"
}

var ErrEmptyWagerCode = errors.New("empty wager_code")

// Keyed is a record identified by its wager_code.
type Keyed interface {
	Key() string
}

// Record inserts rec unless a row with the same unique key already exists.
// AlreadyExists is a normal outcome, not an error. Run it inside the
// transaction that carries the ledger changes so that a rollback also
// releases the key.
func Record(tx *gorm.DB, rec Keyed) (Outcome, error) {
	if rec.Key() == "" {
		return 0, ErrEmptyWagerCode
	}

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		return 0, fmt.Errorf("record %s: %w", rec.Key(), res.Error)
	}
	if res.RowsAffected == 0 {
		return AlreadyExists, nil
	}
	return Created, nil
}

// Exists probes for a wager_code without taking locks.
func Exists(db *gorm.DB, model any, wagerCode string) (bool, error) {
	var count int64
	if err := db.Unscoped().Model(model).Where("wager_code = ?", wagerCode).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
