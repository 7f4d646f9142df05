package service

import (
	"context"
	"fmt"
	"time"

	"forum-session-demo/backend/internal/codec"
	"forum-session-demo/backend/internal/models"
	"forum-session-demo/backend/pkg/errors"
	"forum-session-demo/backend/pkg/logger"
)

const tagCacheTTL = 10 * time.Minute

// SheetStoreConfig holds the forum coordinates for character sheet topics.
type SheetStoreConfig struct {
	// CategoryID is the forum category sheet topics are created in.
	CategoryID int
}

// SheetStore owns every character sheet. It is the only writer: it resolves
// a (game, owner) pair to a forum topic through the deterministic sheet tag,
// creates the topic on first use and performs read-modify-write currency
// updates with an audit trail. The forum offers no locking primitive, so
// updates carry a lost-update check instead of a true lock.
type SheetStore struct {
	gateway Gateway
	cfg     SheetStoreConfig
	cache   KeyValue
	log     *logger.Logger
}

// SheetTopic is a resolved sheet topic together with its decoded state.
type SheetTopic struct {
	TopicID    string
	HeadPostID string
	Sheet      models.CharacterSheet
	// headBody is the raw body the sheet was decoded from, kept for the
	// pre-edit lost-update comparison.
	headBody string
	// created is true when this call created the topic.
	created bool
}

// NewSheetStore creates a sheet store.
func NewSheetStore(gateway Gateway, cfg SheetStoreConfig, kv KeyValue, log *logger.Logger) *SheetStore {
	return &SheetStore{
		gateway: gateway,
		cfg:     cfg,
		cache:   kv,
		log:     log.WithComponent("sheet-store"),
	}
}

// GetOrCreateSheetTopic resolves the sheet topic for (game, ownerID),
// creating it seeded with seed (nil means empty) when no topic carries the
// tag yet. More than one matching topic is a data-integrity violation and is
// surfaced, never silently resolved.
func (s *SheetStore) GetOrCreateSheetTopic(ctx context.Context, game string, ownerID int, seed models.CharacterSheet) (*SheetTopic, error) {
	tag := models.SheetTag(game, ownerID)

	// The cache is advisory: a hit is still verified by reading the topic.
	if topicID, ok := s.cache.Get(ctx, "sheet-topic:"+tag); ok {
		if st, err := s.readTopic(ctx, topicID); err == nil {
			return st, nil
		}
		s.log.Warn("cached sheet topic no longer readable, re-resolving", "tag", tag, "topic_id", topicID)
	}

	ids, err := s.gateway.FindTopicsByTag(ctx, tag)
	if err != nil {
		return nil, err
	}

	switch len(ids) {
	case 0:
		return s.createTopic(ctx, game, ownerID, tag, seed)
	case 1:
		st, err := s.readTopic(ctx, ids[0])
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, "sheet-topic:"+tag, st.TopicID, tagCacheTTL)
		return st, nil
	default:
		return nil, errors.Conflict(errors.CodeTagCollision,
			fmt.Sprintf("tag %q resolves to %d topics; refusing to pick one", tag, len(ids)))
	}
}

// ReadSheet returns the current sheet for (game, ownerID). A missing sheet
// topic is a valid "no progress yet" state and decodes to an empty sheet.
func (s *SheetStore) ReadSheet(ctx context.Context, game string, ownerID int) (models.CharacterSheet, error) {
	tag := models.SheetTag(game, ownerID)

	ids, err := s.gateway.FindTopicsByTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	switch len(ids) {
	case 0:
		return models.CharacterSheet{}, nil
	case 1:
		st, err := s.readTopic(ctx, ids[0])
		if err != nil {
			return nil, err
		}
		return st.Sheet, nil
	default:
		return nil, errors.Conflict(errors.CodeTagCollision,
			fmt.Sprintf("tag %q resolves to %d topics; refusing to pick one", tag, len(ids)))
	}
}

// ApplyEvent applies one currency delta: fetch-or-create the sheet topic,
// recompute the amount, edit the head post, append an audit reply and, when
// a game topic id is supplied, a cross-reference reply in that topic. The
// returned sheet is the full updated state.
//
// There is no transaction across these forum calls. A failure partway leaves
// the earlier writes in place; the caller gets the error and tolerates the
// partial outcome.
func (s *SheetStore) ApplyEvent(ctx context.Context, event models.GameActionEvent, ownerID int, gameTopicID string) (models.CharacterSheet, error) {
	if err := event.Validate(); err != nil {
		return nil, errors.BadRequest(errors.CodeBadRequest, err.Error())
	}

	seed := models.CharacterSheet{event.Currency: event.Amount}
	st, err := s.GetOrCreateSheetTopic(ctx, event.Game, ownerID, seed)
	if err != nil {
		return nil, err
	}

	updated := st.Sheet
	if !st.created {
		updated = st.Sheet.Clone()
		updated[event.Currency] += event.Amount

		// Lost-update check: re-read the head immediately before editing and
		// fail rather than silently discard a concurrent writer's update.
		current, err := s.gateway.GetPost(ctx, st.HeadPostID)
		if err != nil {
			return nil, err
		}
		if current != st.headBody {
			return nil, errors.Conflict(errors.CodeSheetConflict,
				"character sheet changed concurrently; event not applied")
		}

		if err := s.gateway.EditPost(ctx, st.HeadPostID, codec.EncodeSheet(updated)); err != nil {
			return nil, err
		}
	}

	audit := codec.AuditLine(event)
	if _, err := s.gateway.CreateReply(ctx, st.TopicID, audit); err != nil {
		return nil, err
	}

	if gameTopicID != "" {
		crossRef := fmt.Sprintf("Character sheet updated: %s (sheet topic %s)", audit, st.TopicID)
		if _, err := s.gateway.CreateReply(ctx, gameTopicID, crossRef); err != nil {
			return nil, err
		}
	}

	s.log.Info("applied game event",
		"game", event.Game,
		"currency", event.Currency,
		"amount", event.Amount,
		"topic_id", st.TopicID,
	)
	return updated, nil
}

// createTopic creates a fresh sheet topic seeded with the given sheet.
func (s *SheetStore) createTopic(ctx context.Context, game string, ownerID int, tag string, seed models.CharacterSheet) (*SheetTopic, error) {
	if seed == nil {
		seed = models.CharacterSheet{}
	}
	body := codec.EncodeSheet(seed)
	title := fmt.Sprintf("Character Sheet — %s (uid %d)", game, ownerID)

	ref, err := s.gateway.CreateTopic(ctx, s.cfg.CategoryID, title, body, []string{tag})
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, "sheet-topic:"+tag, ref.TopicID, tagCacheTTL)

	s.log.Info("created sheet topic", "tag", tag, "topic_id", ref.TopicID)
	return &SheetTopic{
		TopicID:    ref.TopicID,
		HeadPostID: ref.HeadPostID,
		Sheet:      seed,
		headBody:   body,
		created:    true,
	}, nil
}

// readTopic reads a sheet topic's head post and decodes its sheet. A head
// with a corrupt sheet block degrades to an empty sheet; history in the
// audit replies is untouched either way.
func (s *SheetStore) readTopic(ctx context.Context, topicID string) (*SheetTopic, error) {
	topic, err := s.gateway.GetTopic(ctx, topicID, 0)
	if err != nil {
		return nil, err
	}
	body, err := s.gateway.GetPost(ctx, topic.HeadPostID)
	if err != nil {
		return nil, err
	}

	sheet, err := codec.DecodeSheet(body)
	if err != nil {
		s.log.Warn("sheet block unreadable, treating as empty", "topic_id", topicID, "error", err.Error())
		sheet = models.CharacterSheet{}
	}

	return &SheetTopic{
		TopicID:    topicID,
		HeadPostID: topic.HeadPostID,
		Sheet:      sheet,
		headBody:   body,
	}, nil
}
