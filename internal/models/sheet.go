package models

import (
	"fmt"
	"strings"
)

// CharacterSheet maps a currency name to its current amount. It is owned by
// exactly one (game, owner) pair and lives in the body of a single forum
// post, the sheet-head post.
type CharacterSheet map[string]int

// Clone returns a copy so callers can mutate freely.
func (s CharacterSheet) Clone() CharacterSheet {
	out := make(CharacterSheet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// GameActionEvent is a queued currency delta. Amount may be negative. The
// event is applied as sheet[currency] += amount at publish time.
type GameActionEvent struct {
	Game     string `json:"game"`
	Currency string `json:"currency"`
	Amount   int    `json:"amount"`
	Reason   string `json:"reason"`
}

// Validate checks the fields a forum write would need.
func (e GameActionEvent) Validate() error {
	if strings.TrimSpace(e.Game) == "" {
		return fmt.Errorf("game is required")
	}
	if strings.TrimSpace(e.Currency) == "" {
		return fmt.Errorf("currency is required")
	}
	return nil
}

// SheetTag derives the deterministic tag used as the lookup key for a
// character sheet topic. The forum's tag search acts as a weakly consistent
// index over topics, so the tag must resolve to zero or one topics.
func SheetTag(game string, ownerID int) string {
	return fmt.Sprintf("char-sheet-%s-uid-%d", strings.ToLower(game), ownerID)
}
