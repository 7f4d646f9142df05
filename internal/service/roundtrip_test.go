package service

import (
	"context"
	"fmt"
	"html"
	"testing"

	"forum-session-demo/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// renderFeed builds the syndication document the forum would serve for a
// topic: head post as the channel description, replies as items newest first.
func renderFeed(g *fakeGateway, topicID string) string {
	posts := g.topics[topicID]
	items := ""
	for i := len(posts) - 1; i >= 1; i-- {
		items += fmt.Sprintf("<item><guid>http://forum/post/%s</guid><description>%s</description></item>",
			posts[i].PostID, html.EscapeString(posts[i].Content))
	}
	return fmt.Sprintf(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title><description>%s</description>%s</channel></rss>`,
		html.EscapeString(posts[0].Content), items)
}

func TestPublishThenReload(t *testing.T) {
	g := newFakeGateway()
	p := newTestPublisher(g)
	ctx := context.Background()

	result, err := p.Publish(ctx, demoSession())
	require.NoError(t, err)

	g.feed = renderFeed(g, result.TopicID)
	loader, _ := newTestLoader(g)

	loaded, err := loader.Load(ctx, result.FeedURL, "dragon-quest", 1)
	require.NoError(t, err)

	// Head, game master reply, the event's cross-reference prose, and the
	// final player turn, in chronological order.
	require.Len(t, loaded.Messages, 4)
	assert.Equal(t, "hello there", loaded.Messages[0].Text)
	assert.Equal(t, models.RoleUser, loaded.Messages[0].Role)

	assert.Equal(t, models.RoleLLM, loaded.Messages[1].Role)
	assert.Equal(t, "You enter the cave.", loaded.Messages[1].Text)

	// The game event survives only as prose, attributed to the player by the
	// label fallback.
	assert.Equal(t, models.RoleUser, loaded.Messages[2].Role)
	assert.Contains(t, loaded.Messages[2].Text, "Character sheet updated: +10 gold")

	assert.Equal(t, "I attack", loaded.Messages[3].Text)

	// The sheet state written during publish is resolved alongside.
	assert.Equal(t, models.CharacterSheet{"gold": 10}, loaded.Sheet)
}
