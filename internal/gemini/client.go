// Package gemini provides the language-model client for chat generation,
// backed by the Gemini API via google.golang.org/genai.
//
// The client is a thin generation surface: it converts stored history into
// Gemini contents, applies the coding-assistant system instruction, and
// retries transient failures with exponential backoff. Conversation state
// lives in internal/store; this package holds none.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/genai"

	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/log"
	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/store"
)

// ErrMissingAPIKey indicates GEMINI_API_KEY is not set in the environment.
var ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")

// systemInstruction is the fixed persona for every generation call.
const systemInstruction = `You are an expert AI coding assistant.

Key traits:
- Be helpful and honest
- Provide clear, accurate information
- When writing code, explain it clearly
- Use proper formatting for code blocks
- Be concise but thorough`

// Config holds model parameters fixed at client construction.
type Config struct {
	// Model is the Gemini model identifier, e.g. "gemini-2.0-flash".
	Model string

	// Temperature in [0, 2]; zero value is sent as-is (deterministic).
	Temperature float32

	// MaxTokens bounds the generated output length.
	MaxTokens int32

	// Retry controls backoff for transient API failures.
	// Zero value means DefaultRetryConfig.
	Retry RetryConfig
}

// Client generates chat responses through the Gemini API.
type Client struct {
	client *genai.Client
	cfg    Config
	logger log.Logger
}

// New creates a Gemini client. The API key is read from GEMINI_API_KEY;
// construction fails with ErrMissingAPIKey when it is absent so the caller
// can decide whether to run without a model.
func New(ctx context.Context, cfg Config, logger log.Logger) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY in the environment", ErrMissingAPIKey)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Client{client: client, cfg: cfg, logger: logger}, nil
}

// Generate produces a complete response for prompt, with history as prior
// conversation context (oldest first, current prompt excluded).
func (c *Client) Generate(ctx context.Context, prompt string, history []store.GeminiMessage) (string, error) {
	contents := buildContents(prompt, history)

	resp, err := withRetry(ctx, c.cfg.Retry, c.logger, func() (*genai.GenerateContentResponse, error) {
		return c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, c.generateConfig())
	})
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("model returned an empty response")
	}
	return text, nil
}

// GenerateStream streams the response for prompt, calling fn for every text
// chunk, and returns the accumulated response. A non-nil error from fn
// aborts the stream (typically the client disconnected).
//
// Transient failures are retried only while nothing has been forwarded yet;
// once a chunk reached fn the stream is committed and errors are final.
func (c *Client) GenerateStream(ctx context.Context, prompt string, history []store.GeminiMessage, fn func(chunk string) error) (string, error) {
	contents := buildContents(prompt, history)

	var full string
	streamOnce := func() error {
		full = ""
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.cfg.Model, contents, c.generateConfig()) {
			if err != nil {
				return err
			}
			chunk := resp.Text()
			if chunk == "" {
				continue
			}
			full += chunk
			if err := fn(chunk); err != nil {
				return fmt.Errorf("forwarding chunk: %w", err)
			}
		}
		return nil
	}

	retry := c.cfg.Retry
	delay := retry.InitialInterval
	var lastErr error
	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		err := streamOnce()
		if err == nil {
			return full, nil
		}
		lastErr = err

		// Committed streams (chunks already forwarded) and permanent
		// errors are final.
		if full != "" || !retryableError(err) {
			return "", fmt.Errorf("streaming response: %w", err)
		}
		if attempt == retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying stream after error", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, retry.MaxInterval)
		}
	}
	return "", fmt.Errorf("streaming response after %d retries: %w", retry.MaxRetries, lastErr)
}

// generateConfig builds the per-call generation settings.
func (c *Client) generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(c.cfg.Temperature),
		MaxOutputTokens:   c.cfg.MaxTokens,
	}
}

// buildContents converts stored history plus the current prompt into Gemini
// contents. History roles are already in Gemini form ("user"/"model").
func buildContents(prompt string, history []store.GeminiMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.RoleModel
		if m.Role == store.RoleUser {
			role = genai.RoleUser
		}
		parts := make([]*genai.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			parts = append(parts, genai.NewPartFromText(p))
		}
		contents = append(contents, &genai.Content{Role: string(role), Parts: parts})
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
	return contents
}
