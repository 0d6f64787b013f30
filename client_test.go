package hook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// discardErrors is a no-op ErrorHandler used in tests that don't assert error handler behavior.
var discardErrors = func(SDKError) {}

// clearCredentialEnv blanks the HOOK_* variables so ambient environment
// cannot satisfy required config fields.
func clearCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOOK_ENDPOINT", "")
	t.Setenv("HOOK_APP_ID", "")
	t.Setenv("HOOK_APP_KEY", "")
}

func testConfig() Config {
	return Config{
		Endpoint: "http://localhost:8080/index.php/",
		AppID:    "1",
		AppKey:   "test-key",
	}
}

func TestNewClient_NilErrorHandler(t *testing.T) {
	_, err := NewClient(testConfig(), nil)
	if err == nil {
		t.Fatal("NewClient() should error when ErrorHandler is nil")
	}
}

func TestNewClient_ValidConfig(t *testing.T) {
	client, err := NewClient(testConfig(), discardErrors)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if got := client.Endpoint(); got != "http://localhost:8080/index.php/" {
		t.Errorf("Endpoint() = %q", got)
	}
}

func TestNewClient_MissingEndpoint(t *testing.T) {
	clearCredentialEnv(t)
	_, err := NewClient(Config{AppID: "1", AppKey: "test-key"}, discardErrors)
	if err == nil {
		t.Fatal("NewClient() should error when Endpoint is missing")
	}
}

func TestNewClient_MissingAppID(t *testing.T) {
	clearCredentialEnv(t)
	_, err := NewClient(Config{Endpoint: "http://localhost:8080/", AppKey: "k"}, discardErrors)
	if err == nil {
		t.Fatal("NewClient() should error when AppID is missing")
	}
}

func TestNewClient_MissingAppKey(t *testing.T) {
	clearCredentialEnv(t)
	_, err := NewClient(Config{Endpoint: "http://localhost:8080/", AppID: "1"}, discardErrors)
	if err == nil {
		t.Fatal("NewClient() should error when AppKey is missing")
	}
}

func TestNewClient_EndpointSchemeValidation(t *testing.T) {
	cfg := testConfig()
	cfg.Endpoint = "ftp://example.com/"
	if _, err := NewClient(cfg, discardErrors); err == nil {
		t.Fatal("NewClient() should reject non-http endpoints")
	}
}

func TestNewClient_EnvFallback(t *testing.T) {
	t.Setenv("HOOK_ENDPOINT", "http://env.example.com/")
	t.Setenv("HOOK_APP_ID", "7")
	t.Setenv("HOOK_APP_KEY", "env-key")

	client, err := NewClient(Config{}, discardErrors)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if got := client.Endpoint(); got != "http://env.example.com/" {
		t.Errorf("Endpoint() = %q, want env value", got)
	}
	if got := client.credentialQuery(); got != "X-App-Id=7&X-App-Key=env-key" {
		t.Errorf("credentialQuery() = %q", got)
	}
}

func TestNewClient_ExplicitConfigBeatsEnv(t *testing.T) {
	t.Setenv("HOOK_ENDPOINT", "http://env.example.com/")
	t.Setenv("HOOK_APP_ID", "7")
	t.Setenv("HOOK_APP_KEY", "env-key")

	client, err := NewClient(testConfig(), discardErrors)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if got := client.Endpoint(); got != "http://localhost:8080/index.php/" {
		t.Errorf("Endpoint() = %q, want explicit value", got)
	}
}

func TestNewClient_PluginsRunInOrder(t *testing.T) {
	var order []string
	cfg := testConfig()
	cfg.Plugins = []Plugin{
		func(c *Client) error { order = append(order, "first"); return nil },
		func(c *Client) error { order = append(order, "second"); return nil },
	}

	if _, err := NewClient(cfg, discardErrors); err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("plugin order = %v, want [first second]", order)
	}
}

func TestNewClient_PluginErrorAborts(t *testing.T) {
	cfg := testConfig()
	cfg.Plugins = []Plugin{
		func(c *Client) error { return errors.New("no session") },
	}

	_, err := NewClient(cfg, discardErrors)
	if err == nil {
		t.Fatal("NewClient() should surface plugin errors")
	}
	if !strings.Contains(err.Error(), "no session") {
		t.Errorf("error = %v, want the plugin failure wrapped", err)
	}
}

func TestClient_SetTokenSource(t *testing.T) {
	client, err := NewClient(testConfig(), discardErrors)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	if got := client.credentialQuery(); strings.Contains(got, "X-Auth-Token") {
		t.Errorf("credentialQuery() = %q, should omit token before auth", got)
	}

	client.SetTokenSource(StaticToken("secret"))

	want := "X-App-Id=1&X-App-Key=test-key&X-Auth-Token=secret"
	if got := client.credentialQuery(); got != want {
		t.Errorf("credentialQuery() = %q, want %q", got, want)
	}

	req, _ := http.NewRequest(http.MethodGet, "http://localhost/", nil)
	client.applyCredentials(req)
	if got := req.Header.Get("X-Auth-Token"); got != "secret" {
		t.Errorf("X-Auth-Token header = %q, want %q", got, "secret")
	}
}

func TestClient_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Endpoint = server.URL
	client, err := NewClient(cfg, discardErrors)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	if _, err := client.Get(context.Background(), "books", nil); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Get() after Close = %v, want ErrClientClosed", err)
	}
	if _, err := client.Channel("books"); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Channel() after Close = %v, want ErrClientClosed", err)
	}
}

func TestClient_Channel_Validation(t *testing.T) {
	client, err := NewClient(testConfig(), discardErrors)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if _, err := client.Channel(""); err == nil {
		t.Fatal("Channel(\"\") should be rejected")
	}
}

func TestClient_Channel_StartsDisconnected(t *testing.T) {
	client, err := NewClient(testConfig(), discardErrors)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	ch, err := client.Channel("books")
	if err != nil {
		t.Fatalf("Channel() error: %v", err)
	}
	if got := ch.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want StateDisconnected", got)
	}
	if got := ch.Name(); got != "books" {
		t.Errorf("Name() = %q, want %q", got, "books")
	}
}

func TestClient_Channel_SSE(t *testing.T) {
	cfg := testConfig()
	cfg.Transport = TransportSSE
	client, err := NewClient(cfg, discardErrors)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	ch, err := client.Channel("books")
	if err != nil {
		t.Fatalf("Channel() error: %v", err)
	}
	if got := ch.SessionID(); got != "" {
		t.Errorf("SessionID() = %q, want empty on SSE", got)
	}
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		endpoint string
		segments string
		want     string
	}{
		{"http://h/index.php/", "books", "http://h/index.php/books"},
		{"http://h/index.php", "books", "http://h/index.php/books"},
		{"http://h/index.php/", "/books/1", "http://h/index.php/books/1"},
		{"http://h/index.php/", "", "http://h/index.php/"},
	}
	for _, tt := range tests {
		if got := joinURL(tt.endpoint, tt.segments); got != tt.want {
			t.Errorf("joinURL(%q, %q) = %q, want %q", tt.endpoint, tt.segments, got, tt.want)
		}
	}
}
