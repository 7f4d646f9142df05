package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSheetTag(t *testing.T) {
	assert.Equal(t, "char-sheet-dragon-quest-uid-1", SheetTag("Dragon-Quest", 1))
	assert.Equal(t, "char-sheet-dq-uid-42", SheetTag("dq", 42))
}

func TestCloneIsIndependent(t *testing.T) {
	original := CharacterSheet{"gold": 10}
	copied := original.Clone()
	copied["gold"] = 99

	assert.Equal(t, 10, original["gold"])
}

func TestGameActionEventValidate(t *testing.T) {
	assert.Error(t, GameActionEvent{Currency: "gold"}.Validate())
	assert.Error(t, GameActionEvent{Game: "dq"}.Validate())
	assert.NoError(t, GameActionEvent{Game: "dq", Currency: "gold", Amount: -5}.Validate())
}

func TestMessageKindPredicates(t *testing.T) {
	assert.True(t, Message{Role: RoleUser, Text: "hi"}.IsDialogue())
	assert.True(t, Message{Kind: KindDialogue}.IsDialogue())
	assert.False(t, Message{Kind: KindGameEvent}.IsDialogue())

	event := &GameActionEvent{Game: "dq", Currency: "gold"}
	assert.True(t, Message{Kind: KindGameEvent, GameEvent: event}.IsGameEvent())
	assert.False(t, Message{Kind: KindGameEvent}.IsGameEvent())
}
