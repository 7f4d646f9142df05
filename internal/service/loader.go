package service

import (
	"context"
	"strings"

	"forum-session-demo/backend/internal/codec"
	"forum-session-demo/backend/internal/models"
	"forum-session-demo/backend/pkg/errors"
	"forum-session-demo/backend/pkg/logger"
)

// Loader reconstructs a session from a topic's syndication feed so play can
// continue. The feed carries no reference to the session's character sheet,
// so the sheet is resolved separately from the caller-supplied game
// identifier; a caller that supplies none gets the messages with an empty
// sheet.
type Loader struct {
	gateway Gateway
	sheets  *SheetStore
	log     *logger.Logger
}

// NewLoader creates a loader.
func NewLoader(gateway Gateway, sheets *SheetStore, log *logger.Logger) *Loader {
	return &Loader{
		gateway: gateway,
		sheets:  sheets,
		log:     log.WithComponent("loader"),
	}
}

// Load fetches and decodes the feed at feedURL and, when game is non-empty,
// reads the owner's character sheet for it. Game events published into the
// topic come back as the plain cross-reference prose, not as structured
// events.
func (l *Loader) Load(ctx context.Context, feedURL, game string, ownerID int) (*models.LoadResult, error) {
	if strings.TrimSpace(feedURL) == "" {
		return nil, errors.BadRequest(errors.CodeBadRequest, "feed url is required")
	}

	raw, err := l.gateway.GetFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	messages, err := codec.DecodeFeed(raw)
	if err != nil {
		return nil, err
	}

	sheet := models.CharacterSheet{}
	if game != "" {
		sheet, err = l.sheets.ReadSheet(ctx, game, ownerID)
		if err != nil {
			return nil, err
		}
	}

	l.log.Info("session loaded", "messages", len(messages), "game", game)
	return &models.LoadResult{Messages: messages, Sheet: sheet}, nil
}
