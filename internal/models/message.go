package models

import (
	"time"
)

// Message roles. The forum stores post bodies as opaque prose, so a role
// survives publishing only through the codec's label prefix.
const (
	RoleUser   = "user"
	RoleLLM    = "llm"
	RoleSystem = "system"
)

// Message kinds.
const (
	KindDialogue  = "dialogue"
	KindGameEvent = "game_event"
)

// Message is a single conversational turn. LocalID is assigned client-side
// before publishing; RemotePostID is the forum's post identifier, set only
// once the message has been exported. The two identifier spaces are never
// mixed.
type Message struct {
	LocalID      string           `json:"id"`
	RemotePostID string           `json:"remote_post_id,omitempty"`
	Role         string           `json:"role"`
	Text         string           `json:"text"`
	Kind         string           `json:"kind,omitempty"`
	GameEvent    *GameActionEvent `json:"game_event,omitempty"`
	Timestamp    time.Time        `json:"timestamp,omitempty"`
}

// IsDialogue reports whether the message is a plain chat turn. An empty kind
// is treated as dialogue so that histories sent by older clients still load.
func (m Message) IsDialogue() bool {
	return m.Kind == "" || m.Kind == KindDialogue
}

// IsGameEvent reports whether the message carries a queued currency delta.
func (m Message) IsGameEvent() bool {
	return m.Kind == KindGameEvent && m.GameEvent != nil
}
