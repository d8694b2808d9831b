package services_test

import (
	"context"
	"sync"
	"testing"

	"bandar/callback"
	"bandar/database/databasetest"
	"bandar/guard"
	"bandar/helpers"
	"bandar/models"
	"bandar/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balance(v float64) *float64 { return &v }

func received(wagerCode string, players ...callback.ReceivedPlayer) callback.ReceivedPayload {
	return callback.ReceivedPayload{
		WagerCode:  wagerCode,
		GameTypeID: 7,
		Players:    players,
		Timestamp:  "2026-10-18T10:00:00Z",
	}
}

func player(id string, b float64) callback.ReceivedPlayer {
	return callback.ReceivedPlayer{PlayerID: models.FlexibleString(id), Balance: balance(b)}
}

func TestReceiveCreditsOnceAndDetectsReplay(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "AG1", "abc123", 1000)

	r := services.NewReceiver(db, guard.New(false, nil), nil)
	p := received("W-1", player("abc123", 1150))

	code, err := r.Receive(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, helpers.CodeSuccess, code)
	assert.Equal(t, 1150.0, databasetest.Balance(t, db, "abc123"))

	var audit models.UserTransaction
	require.NoError(t, db.Where("ref_id = ?", "W-1").First(&audit).Error)
	assert.Equal(t, 150.0, audit.Amount)

	code, err = r.Receive(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, helpers.CodeAlreadyProcessed, code)
	assert.Equal(t, 1150.0, databasetest.Balance(t, db, "abc123"))
}

func TestReceiveDebitsBelowZero(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "AG1", "alice", 20)
	databasetest.SeedUser(t, db, "AG1", "bob", 300)

	r := services.NewReceiver(db, guard.New(false, nil), nil)
	code, err := r.Receive(context.Background(), received("W-2", player("alice", -15.25), player("bob", 300)))
	require.NoError(t, err)
	assert.Equal(t, helpers.CodeSuccess, code)

	assert.Equal(t, -15.25, databasetest.Balance(t, db, "alice"))
	assert.Equal(t, 300.0, databasetest.Balance(t, db, "bob"))

	var audits int64
	require.NoError(t, db.Model(&models.UserTransaction{}).Where("ref_id = ?", "W-2").Count(&audits).Error)
	assert.EqualValues(t, 1, audits)
}

func TestReceiveUnknownPlayerRollsBack(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "AG1", "alice", 100)
	databasetest.SeedUser(t, db, "AG1", "carol", 100)

	r := services.NewReceiver(db, guard.New(false, nil), nil)
	code, err := r.Receive(context.Background(), received("W-3",
		player("alice", 150),
		player("ghost", 10),
		player("carol", 50),
	))
	require.Error(t, err)
	assert.Equal(t, helpers.CodePlayerNotFound, code)
	assert.Contains(t, err.Error(), "ghost")

	assert.Equal(t, 100.0, databasetest.Balance(t, db, "alice"))
	assert.Equal(t, 100.0, databasetest.Balance(t, db, "carol"))

	var claimed int64
	require.NoError(t, db.Model(&models.ProcessedCallback{}).Count(&claimed).Error)
	assert.Zero(t, claimed)
}

func TestReceiveRejectsInvalidPayload(t *testing.T) {
	db := databasetest.Open(t)
	r := services.NewReceiver(db, guard.New(false, nil), nil)

	cases := map[string]callback.ReceivedPayload{
		"no wager code": received("", player("a", 1)),
		"no players":    received("W-4"),
		"no balance":    received("W-4", callback.ReceivedPlayer{PlayerID: "a"}),
		"no timestamp":  {WagerCode: "W-4", Players: []callback.ReceivedPlayer{player("a", 1)}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			code, err := r.Receive(context.Background(), p)
			require.Error(t, err)
			assert.Equal(t, helpers.CodeInvalidRequestData, code)
		})
	}
}

func TestReceiveAddsSentinelWithoutDelta(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "AG1", "alice", 100)
	databasetest.SeedUser(t, db, "AG1", guard.DefaultPlayerID, 777)

	r := services.NewReceiver(db, guard.New(false, nil), nil)
	_, err := r.Receive(context.Background(), received("W-5", player("alice", 90)))
	require.NoError(t, err)

	assert.Equal(t, 90.0, databasetest.Balance(t, db, "alice"))
	assert.Equal(t, 777.0, databasetest.Balance(t, db, guard.DefaultPlayerID))
}

func TestReceiveWithoutLocalSentinelAccount(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "AG1", "alice", 100)

	r := services.NewReceiver(db, guard.New(false, nil), nil)
	code, err := r.Receive(context.Background(), received("W-7", player("alice", 140)))
	require.NoError(t, err)
	assert.Equal(t, helpers.CodeSuccess, code)
	assert.Equal(t, 140.0, databasetest.Balance(t, db, "alice"))

	var rec models.ProcessedCallback
	require.NoError(t, db.Where("wager_code = ?", "W-7").First(&rec).Error)
	assert.Contains(t, string(rec.Players), guard.DefaultPlayerID)
}

func TestReceiveConcurrentDuplicatesApplyOnce(t *testing.T) {
	db := databasetest.Open(t)
	databasetest.SeedUser(t, db, "AG1", "abc123", 1000)

	r := services.NewReceiver(db, guard.New(false, nil), nil)
	p := received("W-6", player("abc123", 1150))

	const n = 8
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := r.Receive(context.Background(), p)
			assert.NoError(t, err)
			codes[i] = code
		}(i)
	}
	wg.Wait()

	success := 0
	for _, code := range codes {
		if code == helpers.CodeSuccess {
			success++
			continue
		}
		assert.Equal(t, helpers.CodeAlreadyProcessed, code)
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, 1150.0, databasetest.Balance(t, db, "abc123"))
}
