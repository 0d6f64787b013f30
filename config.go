package hook

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// TransportKind selects how a channel reaches the realtime server.
type TransportKind int

const (
	// TransportWAMP carries channels over a WAMP v1 WebSocket session.
	TransportWAMP TransportKind = iota
	// TransportSSE carries channels over a Server-Sent Events stream;
	// publishes go through the REST API and remote calls are unsupported.
	TransportSSE
)

var transportKindNames = [...]string{
	TransportWAMP: "wamp",
	TransportSSE:  "sse",
}

func (k TransportKind) String() string {
	if int(k) >= 0 && int(k) < len(transportKindNames) {
		return transportKindNames[k]
	}
	return fmt.Sprintf("TransportKind(%d)", k)
}

// Config holds the configuration for a Hook client.
type Config struct {
	// Endpoint is the HTTP URL of the backend, e.g. "https://api.example.com/index.php/".
	// Fallback: HOOK_ENDPOINT environment variable.
	Endpoint string

	// AppID identifies the calling application.
	// Fallback: HOOK_APP_ID environment variable.
	AppID string

	// AppKey authenticates the calling application.
	// Fallback: HOOK_APP_KEY environment variable.
	AppKey string

	// Auth supplies the per-user auth token sent as X-Auth-Token.
	// Leave nil for unauthenticated clients; see StaticToken and TokenStore.
	Auth TokenSource

	// Transport selects the realtime channel transport. The zero value is
	// TransportWAMP.
	Transport TransportKind

	// UsePostInstead rewrites PUT and DELETE requests to POST with an
	// X-HTTP-Method-Override header, for servers that block those verbs.
	UsePostInstead bool

	// Timeout bounds each HTTP request, streaming channels excepted.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// HTTPClient overrides the HTTP client used for requests. When nil a
	// client honoring Timeout is created.
	HTTPClient *http.Client

	// Logger receives SDK diagnostics. Nil disables SDK logging.
	Logger *zerolog.Logger

	// Plugins run against the client, in order, during NewClient.
	Plugins []Plugin

	// ReconnectAttempts bounds how many times a dropped realtime session is
	// redialed before the outage is reported as ErrRetriesExhausted.
	// Defaults to 5.
	ReconnectAttempts int

	// ReconnectDelay is the fixed pause before each reconnect attempt.
	// Defaults to 1 second.
	ReconnectDelay time.Duration
}

const (
	defaultTimeout           = 30 * time.Second
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = time.Second
)

// loadEnvOnce pulls a .env file into the process environment at most once,
// no matter how many clients are created.
var loadEnvOnce sync.Once

// resolveConfig fills empty fields from environment variables, applies
// defaults, and validates required fields.
func resolveConfig(cfg Config) (Config, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load() // a missing .env file is not an error
	})

	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv("HOOK_ENDPOINT")
	}
	if cfg.AppID == "" {
		cfg.AppID = os.Getenv("HOOK_APP_ID")
	}
	if cfg.AppKey == "" {
		cfg.AppKey = os.Getenv("HOOK_APP_KEY")
	}

	if cfg.Endpoint == "" {
		return cfg, fmt.Errorf("Endpoint is required (set in Config or HOOK_ENDPOINT env)")
	}
	if cfg.AppID == "" {
		return cfg, fmt.Errorf("AppID is required (set in Config or HOOK_APP_ID env)")
	}
	if cfg.AppKey == "" {
		return cfg, fmt.Errorf("AppKey is required (set in Config or HOOK_APP_KEY env)")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return cfg, fmt.Errorf("Endpoint is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return cfg, fmt.Errorf("Endpoint must use http or https, got %q", u.Scheme)
	}

	if int(cfg.Transport) < 0 || int(cfg.Transport) >= len(transportKindNames) {
		return cfg, fmt.Errorf("unknown transport kind %d", cfg.Transport)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = defaultReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}

	return cfg, nil
}
