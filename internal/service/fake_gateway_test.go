package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"forum-session-demo/backend/internal/forum"
	"forum-session-demo/backend/pkg/cache"
	"forum-session-demo/backend/pkg/errors"
	"forum-session-demo/backend/pkg/logger"
)

// fakeGateway is an in-memory forum. Every call is appended to calls so tests
// can assert the exact order of outbound operations.
type fakeGateway struct {
	calls  []string
	topics map[string][]forum.Post
	posts  map[string]string
	tags   map[string][]string
	feed   string
	nextID int

	// prepare runs at the start of every call; tests use it to simulate
	// concurrent writers.
	prepare func(op string)
	// failOn can abort a call with an injected error.
	failOn func(op string) error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		topics: map[string][]forum.Post{},
		posts:  map[string]string{},
		tags:   map[string][]string{},
	}
}

func (g *fakeGateway) enter(op string) error {
	if g.prepare != nil {
		g.prepare(op)
	}
	if g.failOn != nil {
		return g.failOn(op)
	}
	return nil
}

func (g *fakeGateway) id() string {
	g.nextID++
	return strconv.Itoa(g.nextID)
}

func (g *fakeGateway) CreateTopic(_ context.Context, _ int, title, body string, tags []string) (forum.TopicRef, error) {
	if err := g.enter("create-topic"); err != nil {
		return forum.TopicRef{}, err
	}
	topicID, postID := g.id(), g.id()
	g.posts[postID] = body
	g.topics[topicID] = []forum.Post{{PostID: postID, Content: body}}
	for _, tag := range tags {
		g.tags[tag] = append(g.tags[tag], topicID)
	}
	g.calls = append(g.calls, fmt.Sprintf("create-topic %s %q", topicID, title))
	return forum.TopicRef{TopicID: topicID, HeadPostID: postID}, nil
}

func (g *fakeGateway) CreateReply(_ context.Context, topicID, body string) (string, error) {
	if err := g.enter("create-reply"); err != nil {
		return "", err
	}
	if _, ok := g.topics[topicID]; !ok {
		return "", errors.NotFound(errors.CodeForumAPI, "no such topic")
	}
	postID := g.id()
	g.posts[postID] = body
	g.topics[topicID] = append(g.topics[topicID], forum.Post{PostID: postID, Content: body})
	g.calls = append(g.calls, fmt.Sprintf("reply %s %q", topicID, body))
	return postID, nil
}

func (g *fakeGateway) EditPost(_ context.Context, postID, body string) error {
	if err := g.enter("edit-post"); err != nil {
		return err
	}
	if _, ok := g.posts[postID]; !ok {
		return errors.NotFound(errors.CodeForumAPI, "no such post")
	}
	g.posts[postID] = body
	for topicID, posts := range g.topics {
		for i := range posts {
			if posts[i].PostID == postID {
				g.topics[topicID][i].Content = body
			}
		}
	}
	g.calls = append(g.calls, "edit-post "+postID)
	return nil
}

func (g *fakeGateway) GetPost(_ context.Context, postID string) (string, error) {
	if err := g.enter("get-post"); err != nil {
		return "", err
	}
	body, ok := g.posts[postID]
	if !ok {
		return "", errors.NotFound(errors.CodeForumAPI, "no such post")
	}
	g.calls = append(g.calls, "get-post "+postID)
	return body, nil
}

func (g *fakeGateway) GetTopic(_ context.Context, topicID string, _ int) (forum.Topic, error) {
	if err := g.enter("get-topic"); err != nil {
		return forum.Topic{}, err
	}
	posts, ok := g.topics[topicID]
	if !ok {
		return forum.Topic{}, errors.NotFound(errors.CodeForumAPI, "no such topic")
	}
	g.calls = append(g.calls, "get-topic "+topicID)
	return forum.Topic{HeadPostID: posts[0].PostID, Posts: posts}, nil
}

func (g *fakeGateway) GetFeed(_ context.Context, _ string) (string, error) {
	if err := g.enter("get-feed"); err != nil {
		return "", err
	}
	g.calls = append(g.calls, "get-feed")
	return g.feed, nil
}

func (g *fakeGateway) FindTopicsByTag(_ context.Context, tag string) ([]string, error) {
	if err := g.enter("find-tag"); err != nil {
		return nil, err
	}
	g.calls = append(g.calls, "find-tag "+tag)
	return g.tags[tag], nil
}

func (g *fakeGateway) FeedURL(topicID string) string {
	return "http://forum/topics/" + topicID + ".rss"
}

func (g *fakeGateway) TopicURL(topicID string) string {
	return "http://forum/topics/" + topicID
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Output: io.Discard})
}

func newTestSheetStore(g *fakeGateway) *SheetStore {
	kv := NewMemoryKV(cache.New(time.Minute, 0))
	return NewSheetStore(g, SheetStoreConfig{CategoryID: 2}, kv, testLogger())
}
