// Package forum is the only component that talks to the forum service. Every
// exported method issues exactly one outbound HTTP request; retry policy
// belongs to the callers, who know which of their steps are safe to repeat.
package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"forum-session-demo/backend/pkg/errors"
	"forum-session-demo/backend/pkg/logger"
	"forum-session-demo/backend/pkg/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds the forum connection settings. Credentials are injected at
// construction, never read from ambient process state, so tests substitute a
// fake service.
type Config struct {
	BaseURL      string
	APIKey       string
	ActingUserID int
	Timeout      time.Duration
}

// TopicRef identifies a freshly created topic together with its head post.
type TopicRef struct {
	TopicID    string
	HeadPostID string
}

// Post is one post of a topic as returned by GetTopic.
type Post struct {
	PostID  string
	Content string
}

// Topic is the paged view of a topic returned by GetTopic.
type Topic struct {
	HeadPostID string
	Posts      []Post
}

// Client is a thin typed wrapper over the forum's HTTP API. It owns error
// translation: transport and service failures are normalized into AppError
// values so upstream components never branch on the forum's raw response
// shape. A circuit breaker guards the service but no call is retried.
type Client struct {
	cfg     Config
	http    *http.Client
	log     *logger.Logger
	breaker *resilience.CircuitBreaker

	calls   metric.Int64Counter
	latency metric.Float64Histogram
}

// NewClient creates a forum client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	meter := otel.Meter("forum-client")
	calls, _ := meter.Int64Counter("forum_client_calls_total")
	latency, _ := meter.Float64Histogram("forum_client_call_seconds")

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.WithComponent("forum"),
		breaker: resilience.New(resilience.DefaultConfig("forum"), log),
		calls:   calls,
		latency: latency,
	}
}

// CreateTopic creates a new topic and returns its id and head post id.
func (c *Client) CreateTopic(ctx context.Context, categoryID int, title, body string, tags []string) (TopicRef, error) {
	form := c.baseForm()
	form.Set("title", title)
	form.Set("content", body)
	form.Set("category", fmt.Sprint(categoryID))
	for _, tag := range tags {
		form.Add("tags[]", tag)
	}

	var resp struct {
		TopicID    json.Number `json:"topicId"`
		HeadPostID json.Number `json:"headPostId"`
	}
	if err := c.call(ctx, "create-topic", http.MethodPost, "/topics", form, &resp); err != nil {
		return TopicRef{}, err
	}
	return TopicRef{TopicID: resp.TopicID.String(), HeadPostID: resp.HeadPostID.String()}, nil
}

// CreateReply appends a reply to a topic and returns the new post id.
func (c *Client) CreateReply(ctx context.Context, topicID, body string) (string, error) {
	form := c.baseForm()
	form.Set("content", body)

	var resp struct {
		PostID json.Number `json:"postId"`
	}
	if err := c.call(ctx, "create-reply", http.MethodPost, "/topics/"+url.PathEscape(topicID), form, &resp); err != nil {
		return "", err
	}
	return resp.PostID.String(), nil
}

// EditPost replaces a post's body.
func (c *Client) EditPost(ctx context.Context, postID, body string) error {
	form := c.baseForm()
	form.Set("content", body)
	form.Set("editedTimestamp", fmt.Sprint(time.Now().UnixMilli()))

	return c.call(ctx, "edit-post", http.MethodPut, "/posts/"+url.PathEscape(postID), form, nil)
}

// GetPost fetches a single post's body.
func (c *Client) GetPost(ctx context.Context, postID string) (string, error) {
	var resp struct {
		Content string `json:"content"`
	}
	if err := c.call(ctx, "get-post", http.MethodGet, "/posts/"+url.PathEscape(postID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GetTopic fetches a topic's head post id and posts. Page 0 means the first
// page.
func (c *Client) GetTopic(ctx context.Context, topicID string, page int) (Topic, error) {
	path := "/topics/" + url.PathEscape(topicID)
	if page > 0 {
		path += fmt.Sprintf("?page=%d", page)
	}

	var resp struct {
		HeadPostID json.Number `json:"headPostId"`
		Posts      []struct {
			PostID  json.Number `json:"postId"`
			Content string      `json:"content"`
		} `json:"posts"`
	}
	if err := c.call(ctx, "get-topic", http.MethodGet, path, nil, &resp); err != nil {
		return Topic{}, err
	}

	topic := Topic{HeadPostID: resp.HeadPostID.String()}
	for _, p := range resp.Posts {
		topic.Posts = append(topic.Posts, Post{PostID: p.PostID.String(), Content: p.Content})
	}
	return topic, nil
}

// FindTopicsByTag looks up topic ids carrying the given tag. The result is a
// weakly consistent index read: it may race with concurrent writers and
// return zero, one or several ids, so callers re-verify by reading the
// resolved topic before trusting it.
func (c *Client) FindTopicsByTag(ctx context.Context, tag string) ([]string, error) {
	var resp struct {
		TopicIDs []json.Number `json:"topicIds"`
	}
	if err := c.call(ctx, "find-by-tag", http.MethodGet, "/tags/"+url.PathEscape(tag), nil, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.TopicIDs))
	for _, id := range resp.TopicIDs {
		ids = append(ids, id.String())
	}
	return ids, nil
}

// FeedURL returns the syndication URL for a topic.
func (c *Client) FeedURL(topicID string) string {
	return c.cfg.BaseURL + "/topics/" + url.PathEscape(topicID) + ".rss"
}

// TopicURL returns the human-facing URL for a topic.
func (c *Client) TopicURL(topicID string) string {
	return c.cfg.BaseURL + "/topics/" + url.PathEscape(topicID)
}

// GetFeed fetches a raw syndication document. The URL may be relative to the
// forum base or absolute (a reload request carries the URL the publish
// returned).
func (c *Client) GetFeed(ctx context.Context, feedURL string) (string, error) {
	target := feedURL
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.cfg.BaseURL + "/" + strings.TrimLeft(target, "/")
	}

	var raw string
	err := c.breaker.Execute(func() error {
		start := time.Now()
		defer c.record(ctx, "get-feed", start)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return errors.BadGateway(errors.CodeTransport, err.Error())
		}
		c.authorize(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return errors.BadGateway(errors.CodeTransport, "forum unreachable: "+err.Error())
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.BadGateway(errors.CodeTransport, "reading feed: "+err.Error())
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return c.serviceError(resp.StatusCode, body)
		}
		raw = string(body)
		return nil
	})
	return raw, err
}

func (c *Client) baseForm() url.Values {
	form := url.Values{}
	form.Set("uid", fmt.Sprint(c.cfg.ActingUserID))
	return form
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

// call performs one request and decodes the JSON response into out (when out
// is non-nil). All failure shapes come back as AppError.
func (c *Client) call(ctx context.Context, op, method, path string, form url.Values, out any) error {
	return c.breaker.Execute(func() error {
		start := time.Now()
		defer c.record(ctx, op, start)

		var reqBody io.Reader
		if form != nil {
			reqBody = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
		if err != nil {
			return errors.BadGateway(errors.CodeTransport, err.Error())
		}
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		c.authorize(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return errors.BadGateway(errors.CodeTransport, "forum unreachable: "+err.Error())
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.BadGateway(errors.CodeTransport, "reading response: "+err.Error())
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return c.serviceError(resp.StatusCode, body)
		}

		if out == nil {
			return nil
		}
		dec := json.NewDecoder(strings.NewReader(string(body)))
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return errors.BadGateway(errors.CodeForumAPI, "unexpected response shape from forum")
		}
		return nil
	})
}

// serviceError translates a non-2xx response. A parseable error body becomes
// a FORUM_API error carrying the forum's own description; anything else is a
// transport failure.
func (c *Client) serviceError(status int, body []byte) error {
	var payload struct {
		Error  string `json:"error"`
		Status struct {
			Message string `json:"message"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		msg := payload.Error
		if msg == "" {
			msg = payload.Status.Message
		}
		if msg != "" {
			return errors.New(status, errors.CodeForumAPI, msg)
		}
	}
	return errors.New(status, errors.CodeTransport,
		fmt.Sprintf("forum returned status %d", status))
}

func (c *Client) record(ctx context.Context, op string, start time.Time) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("op", op))
	c.calls.Add(ctx, 1, attrs)
	c.latency.Record(ctx, elapsed, attrs)
	c.log.Debug("forum call", "op", op, "seconds", elapsed)
}
