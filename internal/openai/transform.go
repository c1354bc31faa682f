package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultTransformModel is the chat model used for text transforms
	DefaultTransformModel = "gpt-4o-mini"
	// transformMaxTokens bounds transform output; transforms are one short sentence
	transformMaxTokens = 60
)

// ErrEmptyTransform is returned when the transform service returns no text
var ErrEmptyTransform = errors.New("transform returned empty text")

// ChatAPI defines the interface for chat completion calls
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// TransformClient turns a chat model into a plain text-transform service:
// one system instruction, one user text, one short deterministic reply,
// bounded by a hard timeout.
type TransformClient struct {
	api   ChatAPI
	model string
}

type TransformConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewTransformClient creates a transform client against an OpenAI-compatible
// chat endpoint.
func NewTransformClient(cfg TransformConfig) *TransformClient {
	model := cfg.Model
	if model == "" {
		model = DefaultTransformModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &TransformClient{
		api:   openai.NewClientWithConfig(clientCfg),
		model: model,
	}
}

// NewTransformClientWithAPI creates a transform client with an explicit API
// implementation (for testing).
func NewTransformClientWithAPI(api ChatAPI, model string) *TransformClient {
	if model == "" {
		model = DefaultTransformModel
	}
	return &TransformClient{api: api, model: model}
}

// Transform sends userText through the chat model under systemPrompt and
// returns the trimmed reply. The call is cancelled after timeout; a timed-out
// or failed call returns an error, never partial text.
func (c *TransformClient) Transform(ctx context.Context, systemPrompt, userText string, timeout time.Duration) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", ErrEmptyText
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   transformMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("transform call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyTransform
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyTransform
	}
	return text, nil
}
