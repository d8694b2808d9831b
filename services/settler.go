package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bandar/callback"
	"bandar/events"
	"bandar/guard"
	"bandar/helpers"
	"bandar/ledger"
	"bandar/metrics"
	"bandar/models"
	"bandar/settlement"
	"bandar/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const trxRoundMirror = "ROUND_MIRROR"

var errDuplicateRound = errors.New("round already recorded")

// RoundRequest is the inbound settlement trigger.
type RoundRequest struct {
	TableID     string              `json:"table_id"`
	RoundRef    string              `json:"round_ref"`
	GameTypeID  int                 `json:"game_type_id"`
	CallbackURL string              `json:"callback_url"`
	Banker      RoundBanker         `json:"banker"`
	Players     []RoundPlayerRecord `json:"players"`
}

type RoundBanker struct {
	PlayerID models.FlexibleString `json:"player_id"`
}

type RoundPlayerRecord struct {
	PlayerID      models.FlexibleString `json:"player_id"`
	BetAmount     float64               `json:"bet_amount"`
	WinLoseStatus string                `json:"win_lose_status"`
	AmountChanged float64               `json:"amount_changed"`
}

// SettleOutcome is what the trigger caller gets back. Code is SUCCESS for a
// freshly settled round and ALREADY_PROCESSED for a replayed round_ref.
type SettleOutcome struct {
	Code     string             `json:"code"`
	Result   *settlement.Result `json:"result"`
	Payload  *callback.Payload  `json:"-"`
	Delivery *callback.Delivery `json:"callback,omitempty"`
}

// Settler runs the provider side of a round: compute, persist once, then
// notify the client site.
type Settler struct {
	db         *gorm.DB
	guard      *guard.Guard
	dispatcher *callback.Dispatcher
	rounds     events.RoundPublisher
	defaultURL string
	computer   settlement.Computer
	log        *zap.Logger
}

type SettlerOptions struct {
	DefaultCallbackURL string
	Rounds             events.RoundPublisher
	// Computer overrides the clock and wager code source.
	Computer *settlement.Computer
}

func NewSettler(db *gorm.DB, g *guard.Guard, d *callback.Dispatcher, opts SettlerOptions, log *zap.Logger) *Settler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Settler{
		db:         db,
		guard:      g,
		dispatcher: d,
		rounds:     opts.Rounds,
		defaultURL: opts.DefaultCallbackURL,
		log:        log.Named("settler"),
		computer: settlement.Computer{
			Now:          func() time.Time { return time.Now().UTC() },
			NewWagerCode: helpers.GenerateWagerCode,
		},
	}
	if opts.Computer != nil {
		s.computer = *opts.Computer
	}
	if s.rounds == nil {
		s.rounds = events.Nop{}
	}
	return s
}

func (s *Settler) Settle(ctx context.Context, agent models.Agent, req RoundRequest) (*SettleOutcome, error) {
	log := s.log.With(zap.String("agent_code", agent.AgentCode), zap.String("round_ref", req.RoundRef))

	roundRef := strings.TrimSpace(req.RoundRef)
	if roundRef != "" {
		if existing, err := s.findByRoundRef(ctx, agent.AgentCode, roundRef); err != nil {
			return nil, err
		} else if existing != nil {
			log.Info("round replayed", zap.String("wager_code", existing.WagerCode))
			metrics.Settlements.WithLabelValues(helpers.CodeAlreadyProcessed).Inc()
			return &SettleOutcome{Code: helpers.CodeAlreadyProcessed, Result: existing}, nil
		}
	}

	table, err := s.table(ctx, agent.AgentCode, req.TableID)
	if err != nil {
		return nil, err
	}

	in := settlement.RoundInput{
		BankerID:  req.Banker.PlayerID.String(),
		AgentCode: agent.AgentCode,
	}
	gameTypeID := req.GameTypeID
	if table != nil {
		if in.BankerID == "" {
			in.BankerID = table.CurrentBanker
		}
		if gameTypeID == 0 {
			gameTypeID = table.GameTypeID
		}
	}
	if in.BankerID != "" {
		in.BankerID = s.guard.ResolveBanker(in.BankerID)
	}
	for _, p := range req.Players {
		in.Players = append(in.Players, settlement.PlayerBet{
			PlayerID:      p.PlayerID.String(),
			BetAmount:     p.BetAmount,
			WinLoseStatus: settlement.Status(strings.ToLower(strings.TrimSpace(p.WinLoseStatus))),
			AmountChanged: p.AmountChanged,
		})
	}

	if err := settlement.Validate(in); err != nil {
		metrics.Settlements.WithLabelValues(helpers.CodeInvalidRequestData).Inc()
		return nil, err
	}

	var result *settlement.Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(in.Players)+1)
		for _, p := range in.Players {
			ids = append(ids, p.PlayerID)
		}
		ids = append(ids, in.BankerID)

		accounts, err := ledger.Lock(tx, agent.AgentCode, ids)
		if err != nil {
			return err
		}

		result, err = s.computer.Compute(in, func(id string) (float64, error) {
			acc, ok := accounts[id]
			if !ok {
				return 0, &ledger.AccountNotFoundError{PlayerID: id}
			}
			return acc.Balance, nil
		})
		if err != nil {
			return err
		}

		entry := ledger.Entry{RefID: result.WagerCode, Note: "round " + result.WagerCode}
		for _, p := range result.Players {
			if err := ledger.Apply(tx, accounts[p.PlayerID], p.AmountChanged, entry); err != nil {
				return err
			}
		}
		if err := ledger.Apply(tx, accounts[in.BankerID], result.BankerAmountChange, entry); err != nil {
			return err
		}

		if err := mirrorAgent(tx, agent, result); err != nil {
			return err
		}

		players, err := json.Marshal(result.Players)
		if err != nil {
			return err
		}
		rec := &models.WagerTransaction{
			WagerCode:           result.WagerCode,
			AgentCode:           agent.AgentCode,
			TableID:             req.TableID,
			GameTypeID:          gameTypeID,
			BankerCode:          in.BankerID,
			BankerBalanceBefore: result.Banker.BalanceBefore,
			BankerBalanceAfter:  result.Banker.BalanceAfter,
			AgentBalanceAfter:   result.Agent.BalanceAfter,
			Players:             players,
			TotalPlayerNet:      result.TotalPlayerNet,
			BankerAmountChange:  result.BankerAmountChange,
			SettledAt:           result.Timestamp,
		}
		if roundRef != "" {
			rec.RoundRef = &roundRef
		}

		outcome, err := store.Record(tx, rec)
		if err != nil {
			return err
		}
		if outcome == store.AlreadyExists {
			return errDuplicateRound
		}
		return nil
	})

	if errors.Is(err, errDuplicateRound) && roundRef != "" {
		existing, ferr := s.findByRoundRef(ctx, agent.AgentCode, roundRef)
		if ferr != nil {
			return nil, ferr
		}
		if existing != nil {
			metrics.Settlements.WithLabelValues(helpers.CodeAlreadyProcessed).Inc()
			return &SettleOutcome{Code: helpers.CodeAlreadyProcessed, Result: existing}, nil
		}
	}
	if err != nil {
		metrics.Settlements.WithLabelValues(codeFor(err)).Inc()
		log.Warn("settlement rejected", zap.Error(err))
		return nil, err
	}

	metrics.Settlements.WithLabelValues(helpers.CodeSuccess).Inc()
	log = log.With(zap.String("wager_code", result.WagerCode))
	log.Info("round settled",
		zap.String("banker", result.Banker.PlayerID),
		zap.Float64("total_player_net", result.TotalPlayerNet),
		zap.Float64("banker_amount_change", result.BankerAmountChange),
	)

	s.publish(ctx, agent, req.TableID, gameTypeID, result, log)

	payload := s.payload(ctx, agent, gameTypeID, result)
	url, err := callback.ResolveURL(
		callback.Static(req.CallbackURL),
		callback.Static(agent.CallbackURL),
		s.operatorURL(ctx, agent.OperatorCode),
		callback.Static(s.defaultURL),
	)
	if err != nil {
		log.Warn("no callback url", zap.Error(err))
	}
	delivery := s.dispatcher.Dispatch(ctx, agent.AgentCode, url, payload, agent.SecretKey)

	return &SettleOutcome{
		Code:     helpers.CodeSuccess,
		Result:   result,
		Payload:  &payload,
		Delivery: &delivery,
	}, nil
}

// payload shapes the callback body; balances of identities the guard adds
// are read after commit.
func (s *Settler) payload(ctx context.Context, agent models.Agent, gameTypeID int, result *settlement.Result) callback.Payload {
	var extra map[string]float64
	lookup := func(id string) (float64, bool) {
		if extra == nil {
			var err error
			extra, err = ledger.Balances(s.db.WithContext(ctx), agent.AgentCode, []string{s.guard.Sentinel, result.Banker.PlayerID})
			if err != nil {
				s.log.Error("load guard balances", zap.String("wager_code", result.WagerCode), zap.Error(err))
				extra = map[string]float64{}
			}
		}
		b, ok := extra[id]
		return b, ok
	}

	players := s.guard.Ensure(callback.PlayersOf(result), result.Banker.PlayerID, lookup)
	return callback.NewPayload(result, gameTypeID, players)
}

func (s *Settler) operatorURL(ctx context.Context, operatorCode string) callback.Source {
	return func() string {
		if operatorCode == "" {
			return ""
		}
		var op models.Operator
		err := s.db.WithContext(ctx).
			Where("operator_code = ? AND is_active = ?", operatorCode, true).
			First(&op).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Error("load operator", zap.String("operator_code", operatorCode), zap.Error(err))
			}
			return ""
		}
		return op.CallbackURL
	}
}

func (s *Settler) publish(ctx context.Context, agent models.Agent, tableID string, gameTypeID int, result *settlement.Result, log *zap.Logger) {
	ev := events.RoundSettled{
		WagerCode:          result.WagerCode,
		AgentCode:          agent.AgentCode,
		TableID:            tableID,
		GameTypeID:         gameTypeID,
		Players:            result.Players,
		Banker:             result.Banker,
		AgentBalance:       result.Agent.BalanceAfter,
		TotalPlayerNet:     result.TotalPlayerNet,
		BankerAmountChange: result.BankerAmountChange,
		SettledAt:          result.Timestamp,
	}
	if err := s.rounds.PublishRoundSettled(ctx, ev); err != nil {
		log.Warn("publish round event", zap.Error(err))
	}
}

func (s *Settler) table(ctx context.Context, agentCode, tableID string) (*models.GameTable, error) {
	if tableID == "" {
		return nil, nil
	}
	var table models.GameTable
	err := s.db.WithContext(ctx).Where("table_id = ? AND agent_code = ?", tableID, agentCode).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &settlement.ValidationError{Field: "table_id", Reason: "unknown table " + tableID}
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (s *Settler) findByRoundRef(ctx context.Context, agentCode, roundRef string) (*settlement.Result, error) {
	var rec models.WagerTransaction
	err := s.db.WithContext(ctx).Where("agent_code = ? AND round_ref = ?", agentCode, roundRef).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resultOf(rec)
}

func resultOf(rec models.WagerTransaction) (*settlement.Result, error) {
	var players []settlement.PlayerBalance
	if len(rec.Players) > 0 {
		if err := json.Unmarshal(rec.Players, &players); err != nil {
			return nil, fmt.Errorf("decode players of %s: %w", rec.WagerCode, err)
		}
	}
	return &settlement.Result{
		WagerCode: rec.WagerCode,
		Players:   players,
		Banker: settlement.PlayerBalance{
			PlayerID:      rec.BankerCode,
			BalanceBefore: rec.BankerBalanceBefore,
			BalanceAfter:  rec.BankerBalanceAfter,
			AmountChanged: rec.BankerAmountChange,
		},
		Agent: settlement.AgentBalance{
			PlayerID:     rec.AgentCode,
			BalanceAfter: rec.AgentBalanceAfter,
		},
		TotalPlayerNet:     rec.TotalPlayerNet,
		BankerAmountChange: rec.BankerAmountChange,
		Timestamp:          rec.SettledAt,
	}, nil
}

// mirrorAgent books the house-side view of the round: the agent balance
// follows the banker balance.
func mirrorAgent(tx *gorm.DB, agent models.Agent, result *settlement.Result) error {
	var locked models.Agent
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, agent.ID).Error; err != nil {
		return fmt.Errorf("lock agent %s: %w", agent.AgentCode, err)
	}

	before := locked.Balance
	if err := tx.Model(&locked).Update("balance", result.Agent.BalanceAfter).Error; err != nil {
		return fmt.Errorf("mirror agent %s: %w", agent.AgentCode, err)
	}

	return tx.Create(&models.AgentTransaction{
		AgentID:       locked.ID,
		AgentCode:     locked.AgentCode,
		TrxType:       trxRoundMirror,
		Amount:        result.BankerAmountChange,
		BalanceBefore: before,
		BalanceAfter:  result.Agent.BalanceAfter,
		Currency:      locked.Currency,
		Note:          "banker " + result.Banker.PlayerID,
		RefID:         result.WagerCode,
	}).Error
}
