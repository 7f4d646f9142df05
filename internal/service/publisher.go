package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forum-session-demo/backend/internal/codec"
	"forum-session-demo/backend/internal/models"
	"forum-session-demo/backend/pkg/errors"
	"forum-session-demo/backend/pkg/logger"
)

const sessionIndexKey = "session-index"

// PublisherConfig holds the forum coordinates for session topics.
type PublisherConfig struct {
	// CategoryID is the forum category session topics are created in.
	CategoryID int
	// Tags is the fixed tag set applied to every session topic.
	Tags []string
	// TitlePrefix leads the generated, timestamped topic title.
	TitlePrefix string
}

// Publisher turns a full in-memory session into a sequence of forum calls in
// causal order. Publishing is a one-shot batch export with no rollback:
// calls are sequential, each depending on identifiers returned by earlier
// ones, and a failure partway leaves the topic and posts created so far on
// the forum. The partial progress is attached to the returned error.
type Publisher struct {
	gateway Gateway
	sheets  *SheetStore
	cfg     PublisherConfig
	cache   KeyValue
	log     *logger.Logger
	now     func() time.Time
}

// NewPublisher creates a publisher.
func NewPublisher(gateway Gateway, sheets *SheetStore, cfg PublisherConfig, kv KeyValue, log *logger.Logger) *Publisher {
	if cfg.TitlePrefix == "" {
		cfg.TitlePrefix = "Game Session"
	}
	return &Publisher{
		gateway: gateway,
		sheets:  sheets,
		cfg:     cfg,
		cache:   kv,
		log:     log.WithComponent("publisher"),
		now:     time.Now,
	}
}

// Publish exports a session. The head post is the first dialogue message
// from the player; everything before it (the synthetic welcome line, system
// preamble) is never sent to the forum. The remaining messages are walked in
// their original order: dialogue becomes a reply, a game event is applied to
// the character sheet at exactly that point, so its audit and
// cross-reference posts interleave at the event's causal position.
func (p *Publisher) Publish(ctx context.Context, session *models.Session) (*models.PublishResult, error) {
	head := -1
	for i, msg := range session.Messages {
		if msg.IsDialogue() && msg.Role == models.RoleUser && msg.Text != "" {
			head = i
			break
		}
	}
	if head < 0 {
		return nil, errors.BadRequest(errors.CodeEmptySession,
			"session has no publishable content")
	}

	title := fmt.Sprintf("%s — %s", p.cfg.TitlePrefix, p.now().Format("2006-01-02 15:04"))
	ref, err := p.gateway.CreateTopic(ctx, p.cfg.CategoryID, title,
		codec.EncodeMessage(session.Messages[head]), p.cfg.Tags)
	if err != nil {
		return nil, err
	}

	session.RemoteTopicID = ref.TopicID
	session.Messages[head].RemotePostID = ref.HeadPostID

	result := &models.PublishResult{
		TopicID:    ref.TopicID,
		HeadPostID: ref.HeadPostID,
		PostIDs:    []string{ref.HeadPostID},
		FinalSheet: models.CharacterSheet{},
	}

	for i := head + 1; i < len(session.Messages); i++ {
		msg := &session.Messages[i]
		switch {
		case msg.IsGameEvent():
			sheet, err := p.sheets.ApplyEvent(ctx, *msg.GameEvent, session.OwnerID, ref.TopicID)
			if err != nil {
				return nil, p.partial(err, result)
			}
			result.FinalSheet = sheet

		case msg.IsDialogue() && msg.Role != models.RoleSystem && msg.Text != "":
			postID, err := p.gateway.CreateReply(ctx, ref.TopicID, codec.EncodeMessage(*msg))
			if err != nil {
				return nil, p.partial(err, result)
			}
			msg.RemotePostID = postID
			result.PostIDs = append(result.PostIDs, postID)
		}
	}

	result.FeedURL = p.gateway.FeedURL(ref.TopicID)
	result.TopicURL = p.gateway.TopicURL(ref.TopicID)
	session.Sheet = result.FinalSheet

	p.indexSession(ctx, title, result.TopicURL)
	p.log.Info("session published",
		"topic_id", ref.TopicID,
		"posts", len(result.PostIDs),
		"feed_url", result.FeedURL,
	)
	return result, nil
}

// SessionIndex returns the published-session index. The index is a
// best-effort convenience kept in the advisory cache; an empty list never
// means no sessions exist on the forum.
func (p *Publisher) SessionIndex(ctx context.Context) []models.SessionIndexEntry {
	raw, ok := p.cache.Get(ctx, sessionIndexKey)
	if !ok {
		return nil
	}
	var entries []models.SessionIndexEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	return entries
}

// partial attaches the progress made so far, so the caller sees which posts
// already exist on the forum. Nothing is rolled back.
func (p *Publisher) partial(err error, result *models.PublishResult) error {
	p.log.LogError(err, "publish aborted with partial progress",
		"topic_id", result.TopicID,
		"posts_created", len(result.PostIDs),
	)
	return errors.FromError(err).WithDetails(result)
}

func (p *Publisher) indexSession(ctx context.Context, title, url string) {
	entries := p.SessionIndex(ctx)
	entries = append(entries, models.SessionIndexEntry{Title: title, URL: url})
	if data, err := json.Marshal(entries); err == nil {
		p.cache.Set(ctx, sessionIndexKey, string(data), 0)
	}
}
