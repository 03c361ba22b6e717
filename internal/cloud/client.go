// Package cloud performs chat-completion requests against remote HTTPS
// endpoints behind the same provider contract as the local engine. A client
// is stateless apart from the cancel handle of its in-flight request.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"promptd/internal/provider"
	"promptd/internal/secret"
	"promptd/pkg/types"
)

const (
	// Fixed request timeout; fires independently of Abort.
	requestTimeout = 30 * time.Second

	// Error bodies are truncated to this many bytes before being carried in
	// an error value.
	maxErrorBody = 2048
)

// Client is the cloud inference provider. It satisfies provider.Provider.
type Client struct {
	id      types.ProviderIdentity
	model   string // optional override; empty means id.DefaultModelName
	secrets secret.Store
	httpc   *http.Client
	log     zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc // in-flight request, nil when idle
}

var _ provider.Provider = (*Client)(nil)

// Option customizes a client at construction.
type Option func(*Client)

// WithModel overrides the provider identity's default model name.
func WithModel(name string) Option { return func(c *Client) { c.model = name } }

// WithHTTPClient substitutes the transport. The fixed request timeout is
// applied to the given client. Intended for tests.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpc = h } }

// WithLogger installs a structured logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

// New creates a client bound to one provider identity. Credentials are read
// from secrets at call time only.
func New(id types.ProviderIdentity, secrets secret.Store, opts ...Option) *Client {
	c := &Client{
		id:      id,
		secrets: secrets,
		httpc:   &http.Client{Timeout: requestTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpc.Timeout = requestTimeout
	return c
}

// ProviderName returns the identity's display name.
func (c *Client) ProviderName() string { return c.id.DisplayName }

// Model returns the model name a generate call would send.
func (c *Client) Model() string {
	if c.model != "" {
		return c.model
	}
	return c.id.DefaultModelName
}

// Available reports whether a credential exists for this provider. No
// network I/O; a missing credential is absorbed here, not surfaced as an
// error.
func (c *Client) Available() bool {
	_, ok := c.secrets.Get(c.id.SecretKeyName)
	return ok
}

// Abort cancels the in-flight request, if any, and clears the handle. It
// never blocks and is a no-op when idle.
func (c *Client) Abort() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the OpenAI-compatible response body.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate performs one request/response cycle with the client's configured
// model. This backend does not stream: onToken is invoked exactly once with
// the full content on success.
func (c *Client) Generate(ctx context.Context, prompt string, params provider.Params, onToken provider.TokenFunc) (string, error) {
	return c.GenerateWithModel(ctx, "", prompt, params, onToken)
}

// GenerateWithModel is Generate with a per-call model override. An empty
// model falls back to the client's configured model, which in turn falls
// back to the identity's default.
func (c *Client) GenerateWithModel(ctx context.Context, model, prompt string, params provider.Params, onToken provider.TokenFunc) (string, error) {
	if model == "" {
		model = c.Model()
	}
	// Credential is resolved per call and lives only on this stack frame.
	key, ok := c.secrets.Get(c.id.SecretKeyName)
	if !ok {
		return "", ErrNoCredential(c.id.SecretKeyName)
	}

	endpoint := c.id.EndpointURL
	if !strings.HasPrefix(strings.ToLower(endpoint), "https://") {
		return "", ErrInsecureEndpoint(endpoint)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", ErrInvalidEndpoint(endpoint, err.Error())
	}

	params = params.Normalized()
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
	})
	if err != nil {
		return "", ErrInvalidEndpoint(endpoint, err.Error())
	}

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.cancel != nil {
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	req, err := http.NewRequestWithContext(rctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", ErrInvalidEndpoint(endpoint, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		if rctx.Err() != nil {
			return "", ErrRequestAborted()
		}
		return "", ErrHTTP(0, err.Error())
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		if rctx.Err() != nil {
			return "", ErrRequestAborted()
		}
		return "", ErrInvalidResponse(err.Error())
	}
	c.log.Debug().Str("provider", c.id.DisplayName).Int("status", resp.StatusCode).
		Dur("dur", time.Since(start)).Msg("chat completion")

	if resp.StatusCode != http.StatusOK {
		return "", ErrHTTP(resp.StatusCode, truncate(string(respBody), maxErrorBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", ErrInvalidResponse(err.Error())
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrNoContent()
	}

	content := parsed.Choices[0].Message.Content
	if onToken != nil {
		onToken(content)
	}
	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
