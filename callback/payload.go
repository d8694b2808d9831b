package callback

import (
	"fmt"
	"time"

	"bandar/guard"
	"bandar/models"
	"bandar/settlement"
)

// Payload is the body POSTed to client sites.
type Payload struct {
	WagerCode          string        `json:"wager_code"`
	GameTypeID         int           `json:"game_type_id"`
	Players            []guard.Entry `json:"players"`
	BankerBalance      float64       `json:"banker_balance"`
	AgentBalance       float64       `json:"agent_balance"`
	Timestamp          string        `json:"timestamp"`
	TotalPlayerNet     float64       `json:"total_player_net"`
	BankerAmountChange float64       `json:"banker_amount_change"`
	Signature          string        `json:"signature,omitempty"`
}

// Response is what client sites answer with.
type Response struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PlayersOf lists the balance after settlement of every player and the
// banker, in round order.
func PlayersOf(res *settlement.Result) []guard.Entry {
	entries := make([]guard.Entry, 0, len(res.Players)+1)
	for _, p := range res.Players {
		entries = append(entries, guard.Entry{PlayerID: p.PlayerID, Balance: p.BalanceAfter})
	}
	return append(entries, guard.Entry{PlayerID: res.Banker.PlayerID, Balance: res.Banker.BalanceAfter})
}

func NewPayload(res *settlement.Result, gameTypeID int, players []guard.Entry) Payload {
	return Payload{
		WagerCode:          res.WagerCode,
		GameTypeID:         gameTypeID,
		Players:            players,
		BankerBalance:      res.Banker.BalanceAfter,
		AgentBalance:       res.Agent.BalanceAfter,
		Timestamp:          res.Timestamp.UTC().Format(time.RFC3339),
		TotalPlayerNet:     res.TotalPlayerNet,
		BankerAmountChange: res.BankerAmountChange,
	}
}

// ReceivedPlayer keeps balance optional so a missing value is detectable.
type ReceivedPlayer struct {
	PlayerID models.FlexibleString `json:"player_id"`
	Balance  *float64              `json:"balance"`
}

// ReceivedPayload is the inbound form of Payload on the client site.
type ReceivedPayload struct {
	WagerCode          string           `json:"wager_code"`
	GameTypeID         int              `json:"game_type_id"`
	Players            []ReceivedPlayer `json:"players"`
	BankerBalance      float64          `json:"banker_balance"`
	AgentBalance       float64          `json:"agent_balance"`
	Timestamp          string           `json:"timestamp"`
	TotalPlayerNet     float64          `json:"total_player_net"`
	BankerAmountChange float64          `json:"banker_amount_change"`
	Signature          string           `json:"signature"`
}

// Validate checks the required fields and returns the player entries.
func (p ReceivedPayload) Validate() ([]guard.Entry, error) {
	if p.WagerCode == "" {
		return nil, &settlement.ValidationError{Field: "wager_code", Reason: "required"}
	}
	if p.Timestamp == "" {
		return nil, &settlement.ValidationError{Field: "timestamp", Reason: "required"}
	}
	if len(p.Players) == 0 {
		return nil, &settlement.ValidationError{Field: "players", Reason: "must not be empty"}
	}

	seen := make(map[string]struct{}, len(p.Players))
	entries := make([]guard.Entry, 0, len(p.Players))
	for i, pl := range p.Players {
		id := pl.PlayerID.String()
		if id == "" {
			return nil, &settlement.ValidationError{Field: fmt.Sprintf("players[%d].player_id", i), Reason: "required"}
		}
		if pl.Balance == nil {
			return nil, &settlement.ValidationError{Field: fmt.Sprintf("players[%d].balance", i), Reason: "required"}
		}
		if _, dup := seen[id]; dup {
			return nil, &settlement.ValidationError{Field: fmt.Sprintf("players[%d].player_id", i), Reason: "duplicate player " + id}
		}
		seen[id] = struct{}{}
		entries = append(entries, guard.Entry{PlayerID: id, Balance: *pl.Balance})
	}
	return entries, nil
}
