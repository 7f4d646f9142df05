// Package ai holds the outbound call to the text-generation service. The
// engine treats it as an opaque collaborator: history in, reply text out.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"forum-session-demo/backend/internal/models"
)

// Config selects the backing model service.
type Config struct {
	// OpenAIKey enables the hosted chat-completions endpoint.
	OpenAIKey string
	// LocalModelURL, when set, routes generation to a local model server
	// instead.
	LocalModelURL string
	// SystemPrompt frames every conversation.
	SystemPrompt string
}

// ReplyService generates the game master's next line from the conversation
// so far.
type ReplyService struct {
	cfg        Config
	httpClient *http.Client
}

// NewReplyService creates the service. One of OpenAIKey or LocalModelURL
// must be configured.
func NewReplyService(cfg Config) (*ReplyService, error) {
	if cfg.OpenAIKey == "" && cfg.LocalModelURL == "" {
		return nil, errors.New("either an OpenAI API key or a local model URL is required")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You are the Game Master of a collaborative text adventure. " +
			"Respond in character, being concise and engaging."
	}
	return &ReplyService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateReply produces the next game-master line for the given history.
func (s *ReplyService) GenerateReply(ctx context.Context, history []models.Message) (string, error) {
	msgs := []chatMessage{{Role: "system", Content: s.cfg.SystemPrompt}}
	for _, m := range history {
		if !m.IsDialogue() || m.Text == "" {
			continue
		}
		role := "assistant"
		if m.Role == models.RoleUser {
			role = "user"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Text})
	}

	if s.cfg.LocalModelURL != "" {
		return s.generateLocal(ctx, msgs)
	}
	return s.generateOpenAI(ctx, msgs)
}

func (s *ReplyService) generateOpenAI(ctx context.Context, msgs []chatMessage) (string, error) {
	requestBody := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{
		Model:    "gpt-4o",
		Messages: msgs,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		"https://api.openai.com/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.OpenAIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making API request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %v", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("no response generated")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (s *ReplyService) generateLocal(ctx context.Context, msgs []chatMessage) (string, error) {
	requestBody := struct {
		Messages []chatMessage `json:"messages"`
	}{Messages: msgs}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		s.cfg.LocalModelURL+"/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making API request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("local API request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %v", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("local API error: %s", parsed.Error)
	}
	return parsed.Response, nil
}
