// Package assistant proxies chat turns to an OpenAI-compatible endpoint and
// stores the transcripts users choose to save.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/models"

	"github.com/sashabaranov/go-openai"
)

// ErrEmptyReply is returned for a stream that ended without content.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Delta is one streamed piece of the reply. Reset tells the consumer to
// drop what it received so far because the model failed mid-stream and the
// next model starts over.
type Delta struct {
	Model   string `json:"model"`
	Content string `json:"content,omitempty"`
	Reset   bool   `json:"reset,omitempty"`
}

// Reply is the finished assistant message.
type Reply struct {
	Model   string             `json:"model"`
	Message models.ChatMessage `json:"message"`
}

// Streamer is the chat capability consumed by the HTTP layer.
type Streamer interface {
	Stream(ctx context.Context, apiKey string, transcript []models.ChatMessage, onDelta func(Delta) error) (*Reply, error)
}

type Options struct {
	BaseURL     string
	APIKey      string
	Models      []string
	Temperature float32
	MaxTokens   int
	// SiteURL and Title identify the app to the provider.
	SiteURL string
	Title   string
	// HTTPClient is the base client. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

type Client struct {
	opts Options
	now  func() time.Time
}

func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Title == "" {
		opts.Title = "AI Doctor Assistant"
	}
	return &Client{opts: opts, now: time.Now}
}

// Models returns the ordered fallback list.
func (c *Client) Models() []string {
	return append([]string(nil), c.opts.Models...)
}

// callbackError marks a failure of the consumer, which stops the fallback.
type callbackError struct{ err error }

func (e *callbackError) Error() string { return e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }

// Stream sends the system prompt and transcript to each model in order and
// streams the first successful reply through onDelta. Any request error,
// non-OK status or empty stream moves on to the next model. When every model
// failed the error is ExternalService.
func (c *Client) Stream(ctx context.Context, apiKey string, transcript []models.ChatMessage, onDelta func(Delta) error) (*Reply, error) {
	if apiKey == "" {
		apiKey = c.opts.APIKey
	}
	if apiKey == "" {
		return nil, svcErr.ExternalService("The assistant is not configured")
	}
	if len(transcript) == 0 {
		return nil, svcErr.Validation("Message cannot be empty")
	}

	api := c.api(apiKey)
	messages := buildMessages(transcript)

	var lastErr error
	for _, model := range c.opts.Models {
		content, err := c.tryModel(ctx, api, model, messages, onDelta)
		if err == nil {
			return &Reply{
				Model:   model,
				Message: models.ChatMessage{Role: openai.ChatMessageRoleAssistant, Content: content, Timestamp: c.now().UTC()},
			}, nil
		}

		var cbErr *callbackError
		if errors.As(err, &cbErr) {
			return nil, svcErr.Backend("stream aborted", cbErr.err)
		}
		if ctx.Err() != nil {
			return nil, svcErr.Map(ctx.Err())
		}

		logger.Warn("assistant model failed, trying next", "model", model, "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	return nil, svcErr.Wrap(svcErr.KindExternalService, "All models failed to respond", lastErr)
}

func (c *Client) tryModel(ctx context.Context, api *openai.Client, model string, messages []openai.ChatCompletionMessage, onDelta func(Delta) error) (string, error) {
	stream, err := api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Stream:      true,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if sb.Len() > 0 {
				if cbErr := onDelta(Delta{Model: model, Reset: true}); cbErr != nil {
					return "", &callbackError{cbErr}
				}
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}

		piece := resp.Choices[0].Delta.Content
		if piece == "" {
			continue
		}
		sb.WriteString(piece)
		if err := onDelta(Delta{Model: model, Content: piece}); err != nil {
			return "", &callbackError{err}
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyReply
	}
	return sb.String(), nil
}

func (c *Client) api(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(c.opts.BaseURL, "/")

	base := c.opts.HTTPClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	headers := map[string]string{"X-Title": c.opts.Title}
	if c.opts.SiteURL != "" {
		headers["HTTP-Referer"] = c.opts.SiteURL
	}
	cfg.HTTPClient = &http.Client{
		Transport: &headerTransport{base: base, headers: headers},
		Timeout:   c.opts.HTTPClient.Timeout,
	}
	return openai.NewClientWithConfig(cfg)
}

func buildMessages(transcript []models.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(transcript)+1)
	out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt})
	for _, m := range transcript {
		role := openai.ChatMessageRoleUser
		if m.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		r.Header.Set(k, v)
	}
	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, fmt.Errorf("assistant request: %w", err)
	}
	return resp, nil
}
