package models

// Session is an ordered run of messages belonging to one active game. It is
// created empty in memory, appended to by user input and generated replies,
// and exported to the forum exactly once. After publishing, RemoteTopicID is
// set and messages that reached the forum carry their RemotePostID.
type Session struct {
	Messages      []Message      `json:"messages"`
	RemoteTopicID string         `json:"remote_topic_id,omitempty"`
	Game          string         `json:"game,omitempty"`
	OwnerID       int            `json:"owner_id,omitempty"`
	Sheet         CharacterSheet `json:"sheet,omitempty"`
}

// PublishResult is what a successful one-shot export returns. PostIDs lists
// the forum post ids of the session's dialogue messages in the order they
// were created, head post first. Audit and cross-reference posts created on
// behalf of game events are not session messages and are not listed here.
type PublishResult struct {
	TopicID    string         `json:"topic_id"`
	HeadPostID string         `json:"head_post_id"`
	PostIDs    []string       `json:"post_ids"`
	FeedURL    string         `json:"feed_url"`
	TopicURL   string         `json:"url"`
	FinalSheet CharacterSheet `json:"final_sheet"`
}

// LoadResult is a session reconstructed from a topic's feed. Game events are
// not reconstructed as structured messages; they survive only as the
// cross-reference prose appended at publish time.
type LoadResult struct {
	Messages []Message      `json:"messages"`
	Sheet    CharacterSheet `json:"sheet"`
}

// SessionIndexEntry is one row of the published-session index kept as a
// best-effort convenience for the browser client.
type SessionIndexEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
