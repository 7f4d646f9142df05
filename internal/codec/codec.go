// Package codec maps between the in-memory message model and the forum's
// textual post formats. Everything in here is pure; no I/O happens.
package codec

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"forum-session-demo/backend/internal/models"
	"forum-session-demo/backend/pkg/errors"
)

// Role labels embedded in post bodies. These are the only place a message's
// role survives the forum round-trip, so they must stay bit-exact.
const (
	GameMasterLabel = "**Game Master:**"
	PlayerLabel     = "**Player:**"
)

// SheetPreamble introduces the sheet-head post. DecodeSheet only looks at
// the fenced block, so the preamble is free prose, but EncodeSheet must emit
// it verbatim for the no-op idempotence of read-modify-write updates.
const SheetPreamble = "Character sheet. This post is maintained automatically; do not edit it by hand."

// EncodeMessage renders a message as a forum post body. Dialogue from the
// game master gets the bolded label prefix, a player's turn is posted as
// plain text, and a game event becomes a signed audit line with no role
// prefix. System messages are never sent to the forum; callers skip them
// before encoding.
func EncodeMessage(msg models.Message) string {
	if msg.IsGameEvent() {
		return AuditLine(*msg.GameEvent)
	}
	if msg.Role == models.RoleLLM {
		return GameMasterLabel + "\n\n" + msg.Text
	}
	return msg.Text
}

// AuditLine renders the human-readable audit entry for one applied event,
// e.g. "+10 gold. Reason: quest".
func AuditLine(event models.GameActionEvent) string {
	return fmt.Sprintf("%+d %s. Reason: %s", event.Amount, event.Currency, event.Reason)
}

// EncodeSheet renders a character sheet as the sheet-head post body: fixed
// preamble followed by a fenced block holding the sheet as indented JSON.
// DecodeSheet is its exact inverse.
func EncodeSheet(sheet models.CharacterSheet) string {
	if sheet == nil {
		sheet = models.CharacterSheet{}
	}
	data, _ := json.MarshalIndent(sheet, "", "  ")
	return SheetPreamble + "\n\n```json\n" + string(data) + "\n```"
}

var sheetBlockRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// DecodeSheet extracts the sheet from a sheet-head post body. A body with no
// fenced block decodes to an empty sheet, not an error: the head post of a
// fresh topic may not carry one yet. A fenced block with invalid JSON is a
// recoverable decode failure.
func DecodeSheet(postBody string) (models.CharacterSheet, error) {
	m := sheetBlockRe.FindStringSubmatch(postBody)
	if m == nil {
		return models.CharacterSheet{}, nil
	}

	var sheet models.CharacterSheet
	if err := json.Unmarshal([]byte(m[1]), &sheet); err != nil {
		return models.CharacterSheet{}, errors.New(http.StatusUnprocessableEntity,
			errors.CodeSheetDecode, "character sheet block contains invalid JSON")
	}
	return sheet, nil
}

// DecodeRoleFromBody infers a message role from a post body's label prefix.
// Feeds deliver bodies with the markdown already rendered, so both the raw
// label and its tag-stripped form are recognized. A body with neither label
// defaults to the player: this is a deliberate heuristic, not a guarantee,
// and it is the single place the heuristic lives.
func DecodeRoleFromBody(postBody string) string {
	trimmed := strings.TrimSpace(postBody)
	switch {
	case strings.HasPrefix(trimmed, GameMasterLabel),
		strings.HasPrefix(trimmed, "Game Master:"):
		return models.RoleLLM
	case strings.HasPrefix(trimmed, PlayerLabel),
		strings.HasPrefix(trimmed, "Player:"):
		return models.RoleUser
	}
	return models.RoleUser
}

// StripRoleLabel removes a recognized label prefix and surrounding
// whitespace, leaving the plain text content.
func StripRoleLabel(postBody string) string {
	trimmed := strings.TrimSpace(postBody)
	for _, label := range []string{GameMasterLabel, "Game Master:", PlayerLabel, "Player:"} {
		if strings.HasPrefix(trimmed, label) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, label))
		}
	}
	return trimmed
}
