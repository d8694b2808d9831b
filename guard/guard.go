// Package guard shapes settlement payloads for the external game server,
// which crashes when the default player or the active banker is missing
// from a callback's players list. It never changes balances.
package guard

import (
	"go.uber.org/zap"
)

// DefaultPlayerID is the reserved sentinel account.
const DefaultPlayerID = "default_player"

type Entry struct {
	PlayerID string  `json:"player_id"`
	Balance  float64 `json:"balance"`
}

// Lookup returns the current ledger balance of an identity.
type Lookup func(playerID string) (balance float64, found bool)

type Guard struct {
	Sentinel string
	// PinSentinelBanker works around the game server's broken banker
	// rotation: the sentinel banks every round. Turn it off once fixed.
	PinSentinelBanker bool

	log *zap.Logger
}

func New(pinSentinelBanker bool, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{
		Sentinel:          DefaultPlayerID,
		PinSentinelBanker: pinSentinelBanker,
		log:               log.Named("guard"),
	}
}

// ResolveBanker applies the pin policy to the banker reported for a round.
func (g *Guard) ResolveBanker(reported string) string {
	if !g.PinSentinelBanker || reported == g.Sentinel {
		return reported
	}
	g.log.Info("banker pinned to sentinel",
		zap.String("reported_banker", reported),
		zap.String("banker", g.Sentinel),
	)
	return g.Sentinel
}

// Ensure returns players with the sentinel and banker appended when absent.
// Appended entries carry their current balance. An identity the lookup cannot
// resolve is still appended, with a zero balance, and logged as an error: the
// game server cannot cope with a payload that lacks it.
func (g *Guard) Ensure(players []Entry, banker string, lookup Lookup) []Entry {
	out := make([]Entry, len(players), len(players)+2)
	copy(out, players)

	present := make(map[string]struct{}, len(players)+2)
	for _, p := range players {
		present[p.PlayerID] = struct{}{}
	}

	for _, id := range []string{g.Sentinel, banker} {
		if id == "" {
			continue
		}
		if _, ok := present[id]; ok {
			continue
		}
		balance, found := lookup(id)
		if !found {
			g.log.Error("required identity has no account, sent with zero balance",
				zap.String("player_id", id),
			)
		}
		out = append(out, Entry{PlayerID: id, Balance: balance})
		present[id] = struct{}{}
	}
	return out
}
