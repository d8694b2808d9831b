package ledger_test

import (
	"errors"
	"testing"

	"bandar/database/databasetest"
	"bandar/ledger"
	"bandar/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLockReportsFirstMissingAccount(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "ag1", "alice", 100)
	databasetest.SeedUser(t, db, "ag1", "carol", 100)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Lock(tx, "ag1", []string{"alice", "bob", "carol"})
		return err
	})

	var nf *ledger.AccountNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "bob", nf.PlayerID)
}

func TestLockIsScopedToAgent(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "ag2", "alice", 100)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Lock(tx, "ag1", []string{"alice"})
		return err
	})

	var nf *ledger.AccountNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestLockScopesSameCodeAcrossAgents(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "ag1", "default_player", 100)
	databasetest.SeedUser(t, db, "ag2", "default_player", 250)

	err := db.Transaction(func(tx *gorm.DB) error {
		accounts, err := ledger.Lock(tx, "ag2", []string{"default_player"})
		require.NoError(t, err)
		assert.Equal(t, 250.0, accounts["default_player"].Balance)

		_, err = ledger.Lock(tx, "", []string{"default_player"})
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrAmbiguousAccount)
}

func TestApplyMovesBalanceAndAudits(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "ag1", "alice", 1000)

	err := db.Transaction(func(tx *gorm.DB) error {
		accounts, err := ledger.Lock(tx, "", []string{"alice"})
		if err != nil {
			return err
		}
		if err := ledger.Apply(tx, accounts["alice"], 150, ledger.Entry{RefID: "w1"}); err != nil {
			return err
		}
		return ledger.Apply(tx, accounts["alice"], -50.25, ledger.Entry{RefID: "w2"})
	})
	require.NoError(t, err)

	assert.Equal(t, 1099.75, databasetest.Balance(t, db, "alice"))

	var audits []models.UserTransaction
	require.NoError(t, db.Order("id").Find(&audits).Error)
	require.Len(t, audits, 2)
	assert.Equal(t, ledger.TrxDeposit, audits[0].TrxType)
	assert.Equal(t, 1000.0, audits[0].BalanceBefore)
	assert.Equal(t, 1150.0, audits[0].BalanceAfter)
	assert.Equal(t, ledger.TrxWithdraw, audits[1].TrxType)
	assert.Equal(t, 50.25, audits[1].Amount)
	assert.Equal(t, "w2", audits[1].RefID)
}

func TestApplyZeroIsNoop(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "ag1", "alice", 10)

	err := db.Transaction(func(tx *gorm.DB) error {
		accounts, err := ledger.Lock(tx, "", []string{"alice"})
		if err != nil {
			return err
		}
		return ledger.Apply(tx, accounts["alice"], 0.001, ledger.Entry{})
	})
	require.NoError(t, err)

	var count int64
	db.Model(&models.UserTransaction{}).Count(&count)
	assert.Zero(t, count)
}

func TestWithdrawGuardsButForceWithdrawGoesNegative(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "ag1", "alice", 30)

	err := db.Transaction(func(tx *gorm.DB) error {
		accounts, err := ledger.Lock(tx, "", []string{"alice"})
		if err != nil {
			return err
		}
		if err := ledger.Withdraw(tx, accounts["alice"], 50, ledger.Entry{}); !errors.Is(err, ledger.ErrInsufficientFunds) {
			t.Errorf("expected insufficient funds, got %v", err)
		}
		return ledger.ForceWithdraw(tx, accounts["alice"], 50, ledger.Entry{})
	})
	require.NoError(t, err)

	assert.Equal(t, -20.0, databasetest.Balance(t, db, "alice"))
}

func TestRollbackUndoesEveryMovement(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "ag1", "alice", 100)
	databasetest.SeedUser(t, db, "ag1", "bob", 100)

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		accounts, err := ledger.Lock(tx, "", []string{"alice", "bob"})
		if err != nil {
			return err
		}
		if err := ledger.Apply(tx, accounts["alice"], 40, ledger.Entry{}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 100.0, databasetest.Balance(t, db, "alice"))
	assert.Equal(t, 100.0, databasetest.Balance(t, db, "bob"))
}

func TestBalancesSkipsMissing(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "ag1", "alice", 12.5)

	got, err := ledger.Balances(db, "", []string{"alice", "ghost"})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"alice": 12.5}, got)
}
