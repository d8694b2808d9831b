package services

import (
	"context"
	"encoding/json"
	"errors"

	"bandar/callback"
	"bandar/guard"
	"bandar/helpers"
	"bandar/ledger"
	"bandar/metrics"
	"bandar/models"
	"bandar/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errAlreadyProcessed = errors.New("wager already processed")

// Receiver applies settlement callbacks to the local ledger of a client site.
type Receiver struct {
	db    *gorm.DB
	guard *guard.Guard
	log   *zap.Logger
}

func NewReceiver(db *gorm.DB, g *guard.Guard, log *zap.Logger) *Receiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Receiver{db: db, guard: g, log: log.Named("receiver")}
}

// Receive applies p exactly once per wager_code. The returned code is
// SUCCESS or ALREADY_PROCESSED when err is nil; otherwise Classify(err)
// gives the code.
func (r *Receiver) Receive(ctx context.Context, p callback.ReceivedPayload) (string, error) {
	code, err := r.receive(ctx, p)
	if err != nil {
		code = codeFor(err)
	}
	metrics.CallbacksReceived.WithLabelValues(code).Inc()
	return code, err
}

func (r *Receiver) receive(ctx context.Context, p callback.ReceivedPayload) (string, error) {
	entries, err := p.Validate()
	if err != nil {
		return "", err
	}
	log := r.log.With(zap.String("wager_code", p.WagerCode))

	done, err := store.Exists(r.db.WithContext(ctx), &models.ProcessedCallback{}, p.WagerCode)
	if err != nil {
		return "", err
	}
	if done {
		log.Info("callback already processed")
		return helpers.CodeAlreadyProcessed, nil
	}

	var players []guard.Entry
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Identities the guard adds carry no delta; only reported entries move.
		players = r.guard.Ensure(entries, "", func(id string) (float64, bool) {
			balances, err := ledger.Balances(tx, "", []string{id})
			if err != nil {
				log.Error("guard balance lookup", zap.String("player_id", id), zap.Error(err))
				return 0, false
			}
			b, ok := balances[id]
			return b, ok
		})

		raw, err := json.Marshal(players)
		if err != nil {
			return err
		}
		outcome, err := store.Record(tx, &models.ProcessedCallback{
			WagerCode:          p.WagerCode,
			GameTypeID:         p.GameTypeID,
			Players:            raw,
			BankerBalance:      p.BankerBalance,
			AgentBalance:       p.AgentBalance,
			Timestamp:          p.Timestamp,
			TotalPlayerNet:     p.TotalPlayerNet,
			BankerAmountChange: p.BankerAmountChange,
		})
		if err != nil {
			return err
		}
		if outcome == store.AlreadyExists {
			return errAlreadyProcessed
		}

		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.PlayerID)
		}
		accounts, err := ledger.Lock(tx, "", ids)
		if err != nil {
			return err
		}

		entry := ledger.Entry{RefID: p.WagerCode, Note: "settlement " + p.WagerCode}
		for _, e := range entries {
			acc := accounts[e.PlayerID]
			delta := helpers.Money(e.Balance).Sub(helpers.Money(acc.Balance))
			if err := ledger.Apply(tx, acc, delta.InexactFloat64(), entry); err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, errAlreadyProcessed) {
		log.Info("callback already processed")
		return helpers.CodeAlreadyProcessed, nil
	}
	if err != nil {
		log.Warn("callback rejected", zap.Error(err))
		return "", err
	}

	log.Info("callback applied", zap.Int("players", len(players)))
	return helpers.CodeSuccess, nil
}
