package di

import (
	"context"
	"fmt"
	"time"

	"forum-session-demo/backend/ai"
	"forum-session-demo/backend/internal/forum"
	"forum-session-demo/backend/internal/service"
	"forum-session-demo/backend/pkg/cache"
	"forum-session-demo/backend/pkg/config"
	"forum-session-demo/backend/pkg/health"
	"forum-session-demo/backend/pkg/logger"
	"forum-session-demo/backend/pkg/secrets"
	"forum-session-demo/backend/shared/redis"
)

// Container holds the application's wired dependencies.
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	ForumClient  *forum.Client
	SheetStore   *service.SheetStore
	Publisher    *service.Publisher
	Loader       *service.Loader
	ReplyService *ai.ReplyService
	Health       *health.Checker
	KV           service.KeyValue
}

// New wires the container from configuration. Secrets (forum and AI keys)
// are resolved through the secrets manager, which falls back to the
// environment when Vault is disabled.
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	if err := secrets.Init(log); err != nil {
		return nil, fmt.Errorf("failed to initialize secrets manager: %w", err)
	}
	ctx := context.Background()

	forumKey := secrets.GetSecretWithDefault(ctx, "forum-api-key", cfg.Forum.APIKey)
	forumClient := forum.NewClient(forum.Config{
		BaseURL:      cfg.Forum.BaseURL,
		APIKey:       forumKey,
		ActingUserID: cfg.Forum.ActingUserID,
		Timeout:      cfg.Forum.Timeout,
	}, log)

	var kv service.KeyValue
	if cfg.Redis.Enabled {
		kv = service.NewRedisKV(redis.NewClient(cfg.Redis.Addr))
	} else {
		kv = service.NewMemoryKV(cache.New(cfg.Cache.TTL, cfg.Cache.PurgeWindow))
	}

	sheetStore := service.NewSheetStore(forumClient, service.SheetStoreConfig{
		CategoryID: cfg.Forum.SheetCategoryID,
	}, kv, log)

	publisher := service.NewPublisher(forumClient, sheetStore, service.PublisherConfig{
		CategoryID:  cfg.Forum.SessionCategoryID,
		Tags:        cfg.Forum.SessionTags,
		TitlePrefix: cfg.Forum.TitlePrefix,
	}, kv, log)

	loader := service.NewLoader(forumClient, sheetStore, log)

	replyService, err := ai.NewReplyService(ai.Config{
		OpenAIKey:     secrets.GetSecretWithDefault(ctx, "openai-api-key", cfg.AI.OpenAIKey),
		LocalModelURL: cfg.AI.LocalModelURL,
		SystemPrompt:  cfg.AI.SystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reply service: %w", err)
	}

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterForumCheck(cfg.Forum.BaseURL, nil)

	return &Container{
		Config:       cfg,
		Logger:       log,
		ForumClient:  forumClient,
		SheetStore:   sheetStore,
		Publisher:    publisher,
		Loader:       loader,
		ReplyService: replyService,
		Health:       checker,
		KV:           kv,
	}, nil
}
