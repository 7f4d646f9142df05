package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"forum-session-demo/backend/internal/models"
	"forum-session-demo/backend/internal/service"
	"forum-session-demo/backend/pkg/errors"
	"forum-session-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReplyGenerator is the outbound text-generation boundary.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, history []models.Message) (string, error)
}

// SessionController exposes the engine over HTTP: publish, load, game
// actions, sheet reads, post edits and chat. Every handler answers with a
// success payload or {"error": message} and a non-2xx status.
type SessionController struct {
	publisher  *service.Publisher
	loader     *service.Loader
	sheets     *service.SheetStore
	gateway    service.Gateway
	replies    ReplyGenerator
	defaultUID int
}

// NewSessionController creates the controller. defaultUID is the acting
// forum user, used when a request does not carry its own uid.
func NewSessionController(
	publisher *service.Publisher,
	loader *service.Loader,
	sheets *service.SheetStore,
	gateway service.Gateway,
	replies ReplyGenerator,
	defaultUID int,
) *SessionController {
	return &SessionController{
		publisher:  publisher,
		loader:     loader,
		sheets:     sheets,
		gateway:    gateway,
		replies:    replies,
		defaultUID: defaultUID,
	}
}

// RegisterRoutesV1 registers the versioned routes.
func (s *SessionController) RegisterRoutesV1(group *gin.RouterGroup) {
	sessions := group.Group("/sessions")
	{
		sessions.POST("/publish", s.PublishSession)
		sessions.GET("/load", s.LoadSession)
		sessions.GET("", s.ListSessions)
	}
	group.GET("/character-sheet/:game", s.GetCharacterSheet)
	group.POST("/game-action", s.ApplyGameAction)
	group.PUT("/posts/:pid", s.EditPost)
	group.POST("/chat", s.Chat)
}

// RegisterRoutes registers the legacy paths the browser client calls.
func (s *SessionController) RegisterRoutes(router *gin.Engine) {
	legacy := router.Group("/api")
	{
		legacy.POST("/publish-topic", s.PublishSession)
		legacy.GET("/load-session", s.LoadSession)
		legacy.GET("/character-sheet/:game", s.GetCharacterSheet)
		legacy.POST("/game-action", s.ApplyGameAction)
		legacy.PUT("/posts/:pid", s.EditPost)
		legacy.POST("/chat", s.Chat)
	}
}

// historyEntry is the browser's message shape. Older clients send numeric
// ids, so the id is accepted as any JSON scalar.
type historyEntry struct {
	ID        json.RawMessage         `json:"id"`
	Role      string                  `json:"role"`
	Text      string                  `json:"text"`
	Kind      string                  `json:"kind"`
	GameEvent *models.GameActionEvent `json:"game_event"`
}

func (e historyEntry) toMessage() models.Message {
	id := strings.Trim(string(e.ID), `"`)
	if id == "" || id == "null" {
		id = uuid.New().String()
	}
	kind := e.Kind
	if kind == "" && e.GameEvent != nil {
		kind = models.KindGameEvent
	}
	return models.Message{
		LocalID:   id,
		Role:      e.Role,
		Text:      e.Text,
		Kind:      kind,
		GameEvent: e.GameEvent,
	}
}

// PublishSession exports a chat history to the forum as a new topic.
func (s *SessionController) PublishSession(ctx *gin.Context) {
	var request struct {
		History []historyEntry `json:"history" binding:"required"`
		Game    string         `json:"game"`
		OwnerID int            `json:"owner_id"`
	}
	if err := ctx.BindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	session := &models.Session{
		Game:    request.Game,
		OwnerID: request.OwnerID,
	}
	if session.OwnerID == 0 {
		session.OwnerID = s.defaultUID
	}
	for _, entry := range request.History {
		session.Messages = append(session.Messages, entry.toMessage())
	}

	result, err := s.publisher.Publish(ctx.Request.Context(), session)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// LoadSession reconstructs a session from its feed URL. The optional game
// query selects which character sheet to resolve alongside; the feed itself
// has no field linking back to a sheet topic.
func (s *SessionController) LoadSession(ctx *gin.Context) {
	feedURL := ctx.Query("url")
	if feedURL == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}
	game := ctx.Query("game")
	uid := s.uidFrom(ctx)

	result, err := s.loader.Load(ctx.Request.Context(), feedURL, game, uid)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// ListSessions returns the best-effort index of published sessions.
func (s *SessionController) ListSessions(ctx *gin.Context) {
	entries := s.publisher.SessionIndex(ctx.Request.Context())
	if entries == nil {
		entries = []models.SessionIndexEntry{}
	}
	ctx.JSON(http.StatusOK, gin.H{"sessions": entries, "count": len(entries)})
}

// GetCharacterSheet returns the current sheet for a game. A player with no
// sheet topic yet gets an empty sheet, not an error.
func (s *SessionController) GetCharacterSheet(ctx *gin.Context) {
	game := ctx.Param("game")
	if game == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "game is required"})
		return
	}

	sheet, err := s.sheets.ReadSheet(ctx.Request.Context(), game, s.uidFrom(ctx))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"game": game, "sheet": sheet})
}

// ApplyGameAction applies one currency delta to the caller's sheet.
func (s *SessionController) ApplyGameAction(ctx *gin.Context) {
	var request struct {
		models.GameActionEvent
		GameTopicID string `json:"game_topic_id"`
		OwnerID     int    `json:"owner_id"`
	}
	if err := ctx.BindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	uid := request.OwnerID
	if uid == 0 {
		uid = s.defaultUID
	}

	sheet, err := s.sheets.ApplyEvent(ctx.Request.Context(), request.GameActionEvent, uid, request.GameTopicID)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sheet": sheet})
}

// EditPost replaces a post's body, the one mutation the engine allows on
// already-published content.
func (s *SessionController) EditPost(ctx *gin.Context) {
	postID := ctx.Param("pid")
	var request struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.BindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	if err := s.gateway.EditPost(ctx.Request.Context(), postID, request.Content); err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"post_id": postID})
}

// Chat generates the game master's next reply for the supplied history.
func (s *SessionController) Chat(ctx *gin.Context) {
	var request struct {
		History []historyEntry `json:"history" binding:"required"`
	}
	if err := ctx.BindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	history := make([]models.Message, 0, len(request.History))
	for _, entry := range request.History {
		history = append(history, entry.toMessage())
	}

	reply, err := s.replies.GenerateReply(ctx.Request.Context(), history)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reply": reply})
}

// fail maps an engine error to the single-message JSON contract. Partial
// publish progress rides along under "partial" so the caller can see which
// posts already exist.
func (s *SessionController) fail(ctx *gin.Context, err error) {
	appErr := errors.FromError(err)
	logger.FromContext(ctx).Error("operation failed",
		"code", appErr.Code,
		"message", appErr.Message,
	)

	payload := gin.H{"error": appErr.Message, "code": appErr.Code}
	if appErr.Details != nil {
		payload["partial"] = appErr.Details
	}
	ctx.JSON(appErr.StatusCode, payload)
}

func (s *SessionController) uidFrom(ctx *gin.Context) int {
	if raw := ctx.Query("uid"); raw != "" {
		if uid, err := strconv.Atoi(raw); err == nil {
			return uid
		}
	}
	return s.defaultUID
}
