// Package chat forwards user messages to an Ollama-compatible text
// generation endpoint.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/model"
)

const (
	DefaultTimeout = 30 * time.Second
	pingTimeout    = 10 * time.Second
)

// Reply is a generated answer.
type Reply struct {
	Response  string `json:"response"`
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options *generateOption `json:"options,omitempty"`
}

type generateOption struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Client talks to one endpoint with one model.
type Client struct {
	endpoint string
	model    string
	timeout  time.Duration
	http     *http.Client
	now      func() time.Time
}

func NewClient(endpoint, modelName string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		model:    modelName,
		timeout:  timeout,
		http:     &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		now:      time.Now,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Send generates a reply to message. customer personalises the prompt and may
// be nil. The generated text is returned trimmed and otherwise unmodified.
func (c *Client) Send(ctx context.Context, message string, history []Message, customer *model.Customer) (Reply, error) {
	prompt := BuildPrompt(SystemPrompt(customer), history, message)
	body := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Options: &generateOption{Temperature: 0.7, TopP: 0.9, NumPredict: 150},
	}
	out, err := c.generate(ctx, body, c.timeout)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Response:  strings.TrimSpace(out.Response),
		Model:     c.model,
		Timestamp: c.now().Format(time.RFC3339),
	}, nil
}

// Ping sends a trivial prompt to check that the endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.generate(ctx, generateRequest{Model: c.model, Prompt: "Say hello"}, pingTimeout)
	return err
}

func (c *Client) generate(ctx context.Context, body generateRequest, timeout time.Duration) (generateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return generateResponse{}, fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return generateResponse{}, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("endpoint", c.endpoint).Msg("chat backend unreachable")
		return generateResponse{}, fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Str("endpoint", c.endpoint).Msg("chat backend error")
		return generateResponse{}, fmt.Errorf("%w: status %d", apperr.ErrUpstreamUnavailable, resp.StatusCode)
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Error().Err(err).Msg("chat backend sent an unreadable body")
		return generateResponse{}, fmt.Errorf("%w: decode response: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return out, nil
}
