package hook

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// sseEvent is one parsed Server-Sent Events message. The server labels each
// message with the fully namespaced topic in the "event" field and carries
// the JSON payload in "data".
type sseEvent struct {
	name string
	data string
	id   string
}

// eventStream incrementally parses an SSE byte stream.
type eventStream struct {
	scanner *bufio.Scanner
}

func newEventStream(r io.Reader) *eventStream {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventStream{scanner: scanner}
}

// next blocks until a complete event arrives. It returns io.EOF when the
// stream ends.
func (es *eventStream) next() (*sseEvent, error) {
	var ev sseEvent
	var data []string

	for es.scanner.Scan() {
		line := es.scanner.Text()

		// Blank line terminates an event.
		if line == "" {
			if len(data) > 0 || ev.name != "" {
				ev.data = strings.Join(data, "\n")
				return &ev, nil
			}
			continue
		}

		// Comment lines keep the connection alive.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			ev.name = value
		case "data":
			data = append(data, value)
		case "id":
			ev.id = value
		}
	}

	if err := es.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// channelPublish is the REST body for publishing through the SSE transport.
type channelPublish struct {
	Event    string   `json:"event"`
	Message  any      `json:"message,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
	Eligible []string `json:"eligible,omitempty"`
}

// sseSession implements the transport interface over a Server-Sent Events
// stream. Inbound events arrive on a streaming GET of channels/{collection};
// publishes are REST POSTs; remote calls are unsupported.
type sseSession struct {
	client     *Client
	collection string
	policy     retryPolicy
	log        zerolog.Logger
	onError    ErrorHandler

	mu     sync.Mutex
	cancel context.CancelFunc
	body   io.ReadCloser

	eventFn      func(topic string, payload []byte)
	disconnectFn func(error)
	reconnectFn  func()

	done   chan struct{}
	closed bool
}

func newSSESession(client *Client, collection string, policy retryPolicy) *sseSession {
	return &sseSession{
		client:     client,
		collection: collection,
		policy:     policy,
		log:        client.log,
		onError:    client.onError,
		done:       make(chan struct{}),
	}
}

func (s *sseSession) connect(ctx context.Context) error {
	return s.open(ctx)
}

// open starts the streaming GET. The handshake is bounded by ctx; the stream
// itself lives until close or a read failure.
func (s *sseSession) open(ctx context.Context) error {
	target := joinURL(s.client.Endpoint(), "channels/"+s.collection)

	streamCtx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, target+"?"+s.client.credentialQuery(), nil)
	if err != nil {
		cancel()
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	s.client.applyCredentials(req)

	// Streaming client without a timeout; cancellation comes from streamCtx.
	stream := &http.Client{Transport: s.client.http.Transport}

	type dialResult struct {
		resp *http.Response
		err  error
	}
	resCh := make(chan dialResult, 1)
	go func() {
		resp, err := stream.Do(req)
		resCh <- dialResult{resp, err}
	}()

	var resp *http.Response
	select {
	case r := <-resCh:
		if r.err != nil {
			cancel()
			return &ConnectionError{URL: target, Reason: r.err.Error()}
		}
		resp = r.resp
	case <-ctx.Done():
		cancel()
		go func() { // reap the straggler, if Do won the race
			if r := <-resCh; r.resp != nil {
				r.resp.Body.Close()
			}
		}()
		return ctx.Err()
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return &ConnectionError{URL: target, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		resp.Body.Close()
		cancel()
		return &ConnectionError{URL: target, Reason: fmt.Sprintf("unexpected content type %q", ct)}
	}

	s.mu.Lock()
	s.cancel = cancel
	s.body = resp.Body
	s.mu.Unlock()

	go s.readLoop(resp.Body)
	return nil
}

func (s *sseSession) subscribe(topic string) error {
	// The stream delivers every event for the collection; filtering happens
	// in the channel's subscription registry.
	return nil
}

func (s *sseSession) unsubscribe(topic string) error {
	return nil
}

func (s *sseSession) publish(topic string, message any, opts publishOptions) error {
	body := channelPublish{
		Event:    topic,
		Message:  message,
		Exclude:  opts.exclude,
		Eligible: opts.eligible,
	}
	_, err := s.client.Post(context.Background(), "channels/"+s.collection+"/publish", body)
	return err
}

func (s *sseSession) call(ctx context.Context, procedure string, args ...any) (json.RawMessage, error) {
	return nil, ErrCallUnsupported
}

func (s *sseSession) setEventHandler(fn func(topic string, payload []byte)) {
	s.eventFn = fn
}

func (s *sseSession) onDisconnect(fn func(error)) {
	s.disconnectFn = fn
}

func (s *sseSession) onReconnect(fn func()) {
	s.reconnectFn = fn
}

func (s *sseSession) sessionID() string {
	return "" // the SSE transport has no session identity
}

func (s *sseSession) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	body := s.body
	s.mu.Unlock()

	close(s.done)

	if cancel != nil {
		cancel()
	}
	if body != nil {
		body.Close()
	}
	return nil
}

// readLoop parses events off one stream body until it fails.
func (s *sseSession) readLoop(body io.ReadCloser) {
	events := newEventStream(body)
	for {
		ev, err := events.next()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.handleDrop(err)
			return
		}

		if ev.name == "" {
			s.log.Debug().Str("channel", s.collection).Msg("dropping unlabeled sse event")
			continue
		}
		if s.eventFn != nil {
			s.eventFn(ev.name, []byte(ev.data))
		}
	}
}

func (s *sseSession) handleDrop(err error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	if s.disconnectFn != nil {
		s.disconnectFn(err)
	}

	go runReconnect(s.policy, s.collection, err, s.done, s.open, s.reconnectFn, s.onError, s.log)
}
