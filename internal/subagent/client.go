package subagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/missionctl/missionctl/internal/config"
)

const toolName = "subagents"

// ErrNotConfigured is returned when no tools endpoint is set.
var ErrNotConfigured = errors.New("OpenClaw tools endpoint is not configured (OPENCLAW_TOOLS_ENDPOINT)")

// UpstreamError reports a non-2xx answer from the tools endpoint.
type UpstreamError struct {
	Status  int
	Payload any
}

func (e *UpstreamError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("tools endpoint returned %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("tools endpoint returned %d", e.Status)
}

// Message is the error text the upstream put in its payload, if any.
func (e *UpstreamError) Message() string {
	m, ok := e.Payload.(map[string]any)
	if !ok {
		return ""
	}
	return firstString(m, "error", "message")
}

// Client calls the subagent tool on an OpenClaw tools endpoint.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	maxRetries uint64
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithMaxRetries sets how many times idempotent list calls are retried.
func WithMaxRetries(n uint64) ClientOption {
	return func(cl *Client) { cl.maxRetries = n }
}

func NewClient(env *config.SubagentEnv, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   env.ToolsEndpoint,
		token:      env.ToolsToken,
		httpClient: &http.Client{Timeout: env.Timeout},
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c.endpoint != ""
}

// Call invokes the subagent tool with input and returns the decoded payload.
// A body that is not JSON decodes to nil.
func (c *Client) Call(ctx context.Context, input map[string]any) (any, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(map[string]any{"tool": toolName, "input": input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build tool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach tools endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tools response: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload = nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Payload: payload}
	}
	return payload, nil
}

// List fetches and normalizes the subagents. Transport errors and 5xx
// answers are retried with exponential backoff.
func (c *Client) List(ctx context.Context) ([]*Subagent, error) {
	var payload any
	op := func() error {
		p, err := c.Call(ctx, map[string]any{"action": ActionList})
		if err != nil {
			var upErr *UpstreamError
			if errors.Is(err, ErrNotConfigured) || (errors.As(err, &upErr) && upErr.Status < 500) {
				return backoff.Permanent(err)
			}
			slog.DebugContext(ctx, "subagent list failed, retrying", "error", err)
			return err
		}
		payload = p
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)); err != nil {
		return nil, err
	}

	items := ToArray(payload)
	subagents := make([]*Subagent, len(items))
	for i, item := range items {
		subagents[i] = Normalize(item, i)
	}
	return subagents, nil
}

// Steer sends message to the target subagent.
func (c *Client) Steer(ctx context.Context, target, message string) (any, error) {
	return c.Do(ctx, ActionSteer, target, message)
}

// Do runs action with the optional target and message. Empty values are
// left out of the request.
func (c *Client) Do(ctx context.Context, action Action, target, message string) (any, error) {
	input := map[string]any{"action": action}
	if target != "" {
		input["target"] = target
	}
	if message != "" {
		input["message"] = message
	}
	return c.Call(ctx, input)
}
