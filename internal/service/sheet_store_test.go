package service

import (
	"context"
	"net/http"
	"testing"

	"forum-session-demo/backend/internal/codec"
	"forum-session-demo/backend/internal/forum"
	"forum-session-demo/backend/internal/models"
	"forum-session-demo/backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEventCreatesSheetTopicOnFirstUse(t *testing.T) {
	g := newFakeGateway()
	store := newTestSheetStore(g)

	sheet, err := store.ApplyEvent(context.Background(), models.GameActionEvent{
		Game:     "dragon-quest",
		Currency: "gold",
		Amount:   10,
		Reason:   "quest",
	}, 1, "")
	require.NoError(t, err)
	assert.Equal(t, models.CharacterSheet{"gold": 10}, sheet)

	// Exactly one topic tagged with the deterministic sheet tag.
	tag := models.SheetTag("dragon-quest", 1)
	require.Len(t, g.tags[tag], 1)

	topicID := g.tags[tag][0]
	posts := g.topics[topicID]
	require.Len(t, posts, 2)
	assert.Equal(t, codec.EncodeSheet(models.CharacterSheet{"gold": 10}), posts[0].Content)
	assert.Equal(t, "+10 gold. Reason: quest", posts[1].Content)

	// The topic was created already seeded, so no head edit happened.
	assert.NotContains(t, g.calls, "edit-post "+posts[0].PostID)
}

func TestApplyEventUpdatesExistingSheet(t *testing.T) {
	g := newFakeGateway()
	store := newTestSheetStore(g)
	ctx := context.Background()

	seeded, err := store.GetOrCreateSheetTopic(ctx, "dragon-quest", 1, models.CharacterSheet{"gold": 10})
	require.NoError(t, err)

	sheet, err := store.ApplyEvent(ctx, models.GameActionEvent{
		Game:     "dragon-quest",
		Currency: "gold",
		Amount:   -5,
		Reason:   "trap",
	}, 1, "")
	require.NoError(t, err)
	assert.Equal(t, models.CharacterSheet{"gold": 5}, sheet)

	// The head post was rewritten in place and the audit reply appended.
	head, err := codec.DecodeSheet(g.posts[seeded.HeadPostID])
	require.NoError(t, err)
	assert.Equal(t, models.CharacterSheet{"gold": 5}, head)

	posts := g.topics[seeded.TopicID]
	assert.Equal(t, "-5 gold. Reason: trap", posts[len(posts)-1].Content)
}

func TestApplyEventZeroDeltaKeepsHeadByteIdentical(t *testing.T) {
	g := newFakeGateway()
	store := newTestSheetStore(g)
	ctx := context.Background()

	seeded, err := store.GetOrCreateSheetTopic(ctx, "dragon-quest", 1, models.CharacterSheet{"gold": 10})
	require.NoError(t, err)
	before := g.posts[seeded.HeadPostID]

	_, err = store.ApplyEvent(ctx, models.GameActionEvent{
		Game:     "dragon-quest",
		Currency: "gold",
		Amount:   0,
		Reason:   "inventory check",
	}, 1, "")
	require.NoError(t, err)

	assert.Equal(t, before, g.posts[seeded.HeadPostID],
		"a no-op update must rewrite the head to the same bytes")
}

func TestApplyEventDetectsConcurrentEdit(t *testing.T) {
	g := newFakeGateway()
	store := newTestSheetStore(g)
	ctx := context.Background()

	seeded, err := store.GetOrCreateSheetTopic(ctx, "dragon-quest", 1, models.CharacterSheet{"gold": 10})
	require.NoError(t, err)

	// Tamper with the head between the resolve read and the pre-edit check.
	getPosts := 0
	g.prepare = func(op string) {
		if op == "get-post" {
			getPosts++
			if getPosts == 2 {
				g.posts[seeded.HeadPostID] = codec.EncodeSheet(models.CharacterSheet{"gold": 99})
			}
		}
	}

	_, err = store.ApplyEvent(ctx, models.GameActionEvent{
		Game:     "dragon-quest",
		Currency: "gold",
		Amount:   -5,
		Reason:   "trap",
	}, 1, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeSheetConflict))
	assert.Equal(t, http.StatusConflict, errors.StatusCode(err))

	// The concurrent writer's state survived untouched.
	current, decodeErr := codec.DecodeSheet(g.posts[seeded.HeadPostID])
	require.NoError(t, decodeErr)
	assert.Equal(t, models.CharacterSheet{"gold": 99}, current)
}

func TestApplyEventCrossReferencesGameTopic(t *testing.T) {
	g := newFakeGateway()
	store := newTestSheetStore(g)
	ctx := context.Background()

	gameTopic, err := g.CreateTopic(ctx, 1, "Game Session", "hello", nil)
	require.NoError(t, err)

	_, err = store.ApplyEvent(ctx, models.GameActionEvent{
		Game:     "dragon-quest",
		Currency: "gold",
		Amount:   10,
		Reason:   "quest",
	}, 1, gameTopic.TopicID)
	require.NoError(t, err)

	posts := g.topics[gameTopic.TopicID]
	require.Len(t, posts, 2)
	assert.Contains(t, posts[1].Content, "Character sheet updated: +10 gold. Reason: quest")
}

func TestTagCollisionIsSurfaced(t *testing.T) {
	g := newFakeGateway()
	store := newTestSheetStore(g)
	tag := models.SheetTag("dragon-quest", 1)
	g.tags[tag] = []string{"1", "2"}

	_, err := store.ReadSheet(context.Background(), "dragon-quest", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeTagCollision))
	assert.Equal(t, http.StatusConflict, errors.StatusCode(err))

	_, err = store.GetOrCreateSheetTopic(context.Background(), "dragon-quest", 1, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeTagCollision))

	// A collision never creates a third topic.
	assert.NotContains(t, g.calls, "create-topic")
}

func TestReadSheetMissingTopicIsEmptySheet(t *testing.T) {
	g := newFakeGateway()
	store := newTestSheetStore(g)

	sheet, err := store.ReadSheet(context.Background(), "dragon-quest", 1)
	require.NoError(t, err)
	assert.Equal(t, models.CharacterSheet{}, sheet)
	assert.Empty(t, g.tags)
}

func TestReadSheetCorruptBlockDegradesToEmpty(t *testing.T) {
	g := newFakeGateway()
	store := newTestSheetStore(g)

	body := "```json\n{not json}\n```"
	g.topics["7"] = []forum.Post{{PostID: "8", Content: body}}
	g.posts["8"] = body
	g.tags[models.SheetTag("dragon-quest", 1)] = []string{"7"}

	sheet, err := store.ReadSheet(context.Background(), "dragon-quest", 1)
	require.NoError(t, err)
	assert.Equal(t, models.CharacterSheet{}, sheet)
}

func TestSheetTopicResolutionIsCached(t *testing.T) {
	g := newFakeGateway()
	store := newTestSheetStore(g)
	ctx := context.Background()

	_, err := store.GetOrCreateSheetTopic(ctx, "dragon-quest", 1, nil)
	require.NoError(t, err)
	_, err = store.GetOrCreateSheetTopic(ctx, "dragon-quest", 1, nil)
	require.NoError(t, err)

	finds := 0
	for _, call := range g.calls {
		if call == "find-tag "+models.SheetTag("dragon-quest", 1) {
			finds++
		}
	}
	assert.Equal(t, 1, finds, "second resolve should come from the advisory cache")
}

func TestApplyEventRejectsInvalidEvent(t *testing.T) {
	store := newTestSheetStore(newFakeGateway())

	_, err := store.ApplyEvent(context.Background(), models.GameActionEvent{Currency: "gold"}, 1, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}
