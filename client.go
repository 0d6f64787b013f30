package hook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Client is the main entry point for interacting with a Hook backend. It
// dispatches REST requests and opens realtime channels.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger

	onError ErrorHandler

	mu       sync.Mutex
	auth     TokenSource
	channels []*Channel
	closed   bool
}

// NewClient creates a new Hook client with the given configuration.
// The onError handler is called for SDK-level errors that cannot be returned
// to a direct caller (e.g., inbound event parse failures, exhausted
// reconnects). Plugins listed in the configuration run before the client is
// returned.
func NewClient(cfg Config, onError ErrorHandler) (*Client, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	if onError == nil {
		return nil, errors.New("ErrorHandler must not be nil")
	}

	c := &Client{
		cfg:     resolved,
		http:    resolved.HTTPClient,
		log:     *resolved.Logger,
		auth:    resolved.Auth,
		onError: onError,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: resolved.Timeout}
	}

	for _, plugin := range resolved.Plugins {
		if err := plugin(c); err != nil {
			return nil, fmt.Errorf("plugin: %w", err)
		}
	}

	return c, nil
}

// Endpoint returns the resolved backend URL.
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint
}

// SetTokenSource replaces the auth token source. Requests and connections
// issued afterwards use the new source.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.auth = ts
	c.mu.Unlock()
}

// Channel returns a realtime channel scoped to the named collection. The
// channel starts disconnected; call Connect on it to open the session.
func (c *Client) Channel(name string) (*Channel, error) {
	if name == "" {
		return nil, errors.New("channel name must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}

	policy := retryPolicy{
		attempts: c.cfg.ReconnectAttempts,
		delay:    c.cfg.ReconnectDelay,
	}

	var tr transport
	switch c.cfg.Transport {
	case TransportWAMP:
		wsURL, err := realtimeURL(c.cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		tr = newWAMPSession(name, wsURL, c.credentialQuery, policy, c.log, c.onError)
	case TransportSSE:
		tr = newSSESession(c, name, policy)
	default:
		return nil, fmt.Errorf("unknown transport kind %d", c.cfg.Transport)
	}

	ch := newChannel(name, tr, c.log, c.onError)
	c.channels = append(c.channels, ch)
	return ch, nil
}

// Close shuts the client down, disconnecting every channel it opened.
// Requests issued after Close fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	for _, ch := range c.channels {
		if err := ch.Disconnect(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.channels = nil
	return firstErr
}

// Get issues a GET request against the given endpoint segments. The payload,
// if any, rides the query string as URL-escaped JSON.
func (c *Client) Get(ctx context.Context, segments string, data any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodGet, segments, data, opts...)
}

// Post issues a POST request against the given endpoint segments.
func (c *Client) Post(ctx context.Context, segments string, data any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPost, segments, data, opts...)
}

// Put issues a PUT request against the given endpoint segments.
func (c *Client) Put(ctx context.Context, segments string, data any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPut, segments, data, opts...)
}

// Delete issues a DELETE request against the given endpoint segments.
func (c *Client) Delete(ctx context.Context, segments string, data any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, segments, data, opts...)
}

func (c *Client) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth == nil {
		return ""
	}
	return c.auth.Token()
}

// credentialQuery renders the credential query string. Order is fixed:
// X-App-Id, then X-App-Key, then X-Auth-Token when one is present.
func (c *Client) credentialQuery() string {
	var b strings.Builder
	b.WriteString("X-App-Id=")
	b.WriteString(url.QueryEscape(c.cfg.AppID))
	b.WriteString("&X-App-Key=")
	b.WriteString(url.QueryEscape(c.cfg.AppKey))
	if tok := c.token(); tok != "" {
		b.WriteString("&X-Auth-Token=")
		b.WriteString(url.QueryEscape(tok))
	}
	return b.String()
}

// applyCredentials sets the credential headers on an outbound request.
func (c *Client) applyCredentials(req *http.Request) {
	req.Header.Set("X-App-Id", c.cfg.AppID)
	req.Header.Set("X-App-Key", c.cfg.AppKey)
	if tok := c.token(); tok != "" {
		req.Header.Set("X-Auth-Token", tok)
	}
}

// joinURL appends path segments to the endpoint, normalizing slashes.
func joinURL(endpoint, segments string) string {
	if segments == "" {
		return endpoint
	}
	return strings.TrimRight(endpoint, "/") + "/" + strings.TrimLeft(segments, "/")
}
