package codec

import (
	"html"
	"net/http"
	"regexp"
	"strings"

	"forum-session-demo/backend/internal/models"
	"forum-session-demo/backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
)

// DecodeFeed rebuilds a message sequence from a topic's syndication feed.
//
// The channel description carries the topic's head post and becomes the
// first message; it never carries a remote post id and is always attributed
// to the player, matching the encode side where the head post is written
// without a label. The items are the replies, delivered newest-first by the
// forum, so they are reversed into chronological order. Each item's remote
// post id is the suffix after the final "/" of its GUID.
//
// One malformed reply must not block loading the rest of the history, so a
// reply whose role cannot be inferred falls back to the player role instead
// of failing the decode. Only a document that does not parse as a feed at
// all is an error.
func DecodeFeed(raw string) ([]models.Message, error) {
	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil || feed == nil {
		return nil, errors.New(http.StatusBadGateway, errors.CodeFeedFormat,
			"document is not a valid syndication feed")
	}

	messages := make([]models.Message, 0, len(feed.Items)+1)
	messages = append(messages, models.Message{
		LocalID: uuid.New().String(),
		Role:    models.RoleUser,
		Text:    UnwrapHTML(feed.Description),
		Kind:    models.KindDialogue,
	})

	// Items arrive newest-first; walk them back to front.
	for i := len(feed.Items) - 1; i >= 0; i-- {
		item := feed.Items[i]
		body := UnwrapHTML(item.Description)

		msg := models.Message{
			LocalID:      uuid.New().String(),
			RemotePostID: postIDFromGUID(item.GUID),
			Role:         DecodeRoleFromBody(body),
			Text:         StripRoleLabel(body),
			Kind:         models.KindDialogue,
		}
		if item.PublishedParsed != nil {
			msg.Timestamp = *item.PublishedParsed
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// postIDFromGUID extracts the post id from an item's globally unique
// identifier, the suffix after the final "/".
func postIDFromGUID(guid string) string {
	if guid == "" {
		return ""
	}
	if i := strings.LastIndex(guid, "/"); i >= 0 {
		return guid[i+1:]
	}
	return guid
}

var (
	paragraphRe = regexp.MustCompile(`(?i)</p>\s*<p[^>]*>`)
	lineBreakRe = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRe       = regexp.MustCompile(`<[^>]+>`)
)

// UnwrapHTML flattens the fixed post template's HTML rendering back to plain
// text: paragraph and line-break markup become newlines, remaining tags are
// dropped and entities are unescaped. It is deliberately tolerant and lossy
// for any markup beyond the template.
func UnwrapHTML(s string) string {
	s = paragraphRe.ReplaceAllString(s, "\n\n")
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}
