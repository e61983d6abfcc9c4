package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"

	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "mistral"
	DefaultOpenAIModel = "gpt-4o-mini"

	systemPrompt = "You write very short, emoji-prefixed Git commit messages. Reply with the message only."
)

var (
	// ErrBackendUnavailable means the completion service could not be reached or refused the request.
	ErrBackendUnavailable = errors.New("completion backend unavailable")
	// ErrInvalidResponse means the service answered without usable text.
	ErrInvalidResponse = errors.New("invalid completion response")

	errMissingAPIKey = fmt.Errorf("%w: API key not set, please run: autopush config set api_key YOUR_API_KEY", ErrBackendUnavailable)
)

// Backend produces a completion for a prompt.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// chatAPI is the part of the go-openai client we use.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Options selects and configures a completion backend.
type Options struct {
	Backend    string
	Model      string
	APIKey     string
	APIBase    string
	OllamaHost string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Client talks to either an OpenAI-compatible API or a local Ollama daemon.
// Ollama is reached through its OpenAI-compatible /v1 endpoint.
type Client struct {
	api     chatAPI
	backend string
	model   string
	timeout time.Duration
	log     *zap.Logger
	initErr error
}

func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendOllama
	}

	c := &Client{
		backend: backend,
		model:   opts.Model,
		timeout: opts.Timeout,
		log:     logger.With(zap.String("backend", backend)),
	}

	switch backend {
	case BackendOllama:
		host := opts.OllamaHost
		if host == "" {
			host = DefaultOllamaHost
		}
		if c.model == "" {
			c.model = DefaultOllamaModel
		}
		cfg := openai.DefaultConfig("ollama")
		cfg.BaseURL = strings.TrimRight(host, "/") + "/v1"
		c.api = openai.NewClientWithConfig(cfg)
	case BackendOpenAI:
		if c.model == "" {
			c.model = DefaultOpenAIModel
		}
		if opts.APIKey == "" {
			c.initErr = errMissingAPIKey
			return c
		}
		cfg := openai.DefaultConfig(opts.APIKey)
		if opts.APIBase != "" {
			cfg.BaseURL = opts.APIBase
		}
		c.api = openai.NewClientWithConfig(cfg)
	default:
		c.initErr = fmt.Errorf("%w: unknown backend %q (want %s or %s)", ErrBackendUnavailable, backend, BackendOllama, BackendOpenAI)
	}
	return c
}

// Model returns the model the client sends requests for.
func (c *Client) Model() string {
	return c.model
}

// Name returns the backend name.
func (c *Client) Name() string {
	return c.backend
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// Complete sends prompt as a single-turn chat and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.initErr != nil {
		return "", c.initErr
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.log.Debug("completion failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	c.log.Debug("completion finished",
		zap.String("model", c.model),
		zap.Int("choices", len(resp.Choices)),
		zap.Duration("elapsed", time.Since(started)),
	)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrInvalidResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty message", ErrInvalidResponse)
	}
	return content, nil
}

// TestConnection checks that the backend answers and that the configured
// model is among the ones it serves.
func (c *Client) TestConnection(ctx context.Context) error {
	if c.initErr != nil {
		return c.initErr
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	list, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	for _, m := range list.Models {
		if m.ID == c.model || strings.TrimSuffix(m.ID, ":latest") == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not offered by %s backend", c.model, c.backend)
}
