package forum

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"forum-session-demo/backend/pkg/errors"
	"forum-session-demo/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		ActingUserID: 1,
		Timeout:      2 * time.Second,
	}, logger.New(logger.Config{Output: io.Discard}))
}

func TestCreateTopicSendsFormAndDecodesIDs(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/topics", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1", r.PostForm.Get("uid"))
		assert.Equal(t, "Game Session", r.PostForm.Get("title"))
		assert.Equal(t, "hello there", r.PostForm.Get("content"))
		assert.Equal(t, "5", r.PostForm.Get("category"))
		assert.Equal(t, []string{"game-session", "demo"}, r.PostForm["tags[]"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"topicId": 42, "headPostId": 100}`))
	})

	ref, err := client.CreateTopic(context.Background(), 5, "Game Session", "hello there",
		[]string{"game-session", "demo"})
	require.NoError(t, err)
	assert.Equal(t, TopicRef{TopicID: "42", HeadPostID: "100"}, ref)
}

func TestCreateReplyReturnsPostID(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/topics/42", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "a reply", r.PostForm.Get("content"))
		w.Write([]byte(`{"postId": 101}`))
	})

	postID, err := client.CreateReply(context.Background(), "42", "a reply")
	require.NoError(t, err)
	assert.Equal(t, "101", postID)
}

func TestEditPostSendsContent(t *testing.T) {
	var edited bool
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		edited = true
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/posts/100", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "new body", r.PostForm.Get("content"))
		assert.NotEmpty(t, r.PostForm.Get("editedTimestamp"))
		w.Write([]byte(`{}`))
	})

	require.NoError(t, client.EditPost(context.Background(), "100", "new body"))
	assert.True(t, edited)
}

func TestGetTopicPagination(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/topics/42", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Write([]byte(`{"headPostId": 100, "posts": [{"postId": 100, "content": "head"}, {"postId": 101, "content": "reply"}]}`))
	})

	topic, err := client.GetTopic(context.Background(), "42", 2)
	require.NoError(t, err)
	assert.Equal(t, "100", topic.HeadPostID)
	require.Len(t, topic.Posts, 2)
	assert.Equal(t, Post{PostID: "101", Content: "reply"}, topic.Posts[1])
}

func TestFindTopicsByTag(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tags/char-sheet-dragon-quest-uid-1", r.URL.Path)
		w.Write([]byte(`{"topicIds": [3, 4]}`))
	})

	ids, err := client.FindTopicsByTag(context.Background(), "char-sheet-dragon-quest-uid-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4"}, ids)
}

func TestServiceErrorWithParseableBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid tag"}`))
	})

	_, err := client.CreateReply(context.Background(), "42", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeForumAPI))
	assert.Equal(t, http.StatusBadRequest, errors.StatusCode(err))
	assert.Equal(t, "invalid tag", errors.Message(err))
}

func TestServiceErrorWithStatusEnvelope(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"status": {"message": "not allowed"}}`))
	})

	_, err := client.GetPost(context.Background(), "100")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeForumAPI))
	assert.Equal(t, "not allowed", errors.Message(err))
}

func TestServiceErrorWithOpaqueBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>gateway timeout</html>"))
	})

	_, err := client.GetPost(context.Background(), "100")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeTransport))
	assert.Equal(t, http.StatusBadGateway, errors.StatusCode(err))
}

func TestUnreachableForumIsTransportError(t *testing.T) {
	client := NewClient(Config{
		BaseURL:      "http://127.0.0.1:1",
		ActingUserID: 1,
		Timeout:      200 * time.Millisecond,
	}, logger.New(logger.Config{Output: io.Discard}))

	_, err := client.GetPost(context.Background(), "100")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeTransport))
}

func TestURLHelpers(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://forum/api/"},
		logger.New(logger.Config{Output: io.Discard}))

	assert.Equal(t, "http://forum/api/topics/42.rss", client.FeedURL("42"))
	assert.Equal(t, "http://forum/api/topics/42", client.TopicURL("42"))
}

func TestGetFeedResolvesRelativeURL(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/topics/42.rss", r.URL.Path)
		w.Write([]byte("<rss/>"))
	})

	raw, err := client.GetFeed(context.Background(), "/topics/42.rss")
	require.NoError(t, err)
	assert.Equal(t, "<rss/>", raw)
}
