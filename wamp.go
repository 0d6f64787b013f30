package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WAMP v1 frame type codes. Frames are JSON arrays with the code first.
const (
	wampWelcome     = 0 // [0, sessionID, protocolVersion, serverIdent]
	wampPrefix      = 1 // [1, prefix, uri]
	wampCall        = 2 // [2, callID, procURI, args...]
	wampCallResult  = 3 // [3, callID, result]
	wampCallError   = 4 // [4, callID, errorURI, errorDesc, errorDetails?]
	wampSubscribe   = 5 // [5, topicURI]
	wampUnsubscribe = 6 // [6, topicURI]
	wampPublish     = 7 // [7, topicURI, event, exclude, eligible]
	wampEvent       = 8 // [8, topicURI, event]
)

const (
	wampSubprotocol = "wamp"
	dialTimeout     = 10 * time.Second
)

// wampWelcomeInfo carries the fields of a WELCOME frame.
type wampWelcomeInfo struct {
	sessionID string
	version   int
	server    string
}

// callOutcome is the terminal state of a pending call.
type callOutcome struct {
	result json.RawMessage
	err    error
}

// wampSession implements the transport interface over a WAMP v1 WebSocket
// session.
type wampSession struct {
	name    string // channel (collection) this session serves
	wsURL   string
	queryFn func() string // credential query, evaluated per dial
	policy  retryPolicy
	log     zerolog.Logger
	onError ErrorHandler

	conn *websocket.Conn
	mu   sync.Mutex // protects conn writes and session state

	sessID    string
	welcomeCh chan wampWelcomeInfo

	// Correlation map for Call/CallResult pattern
	pending sync.Map // callID -> chan callOutcome

	eventFn      func(topic string, payload []byte)
	disconnectFn func(error)
	reconnectFn  func()

	done   chan struct{}
	closed bool
}

func newWAMPSession(name, wsURL string, queryFn func() string, policy retryPolicy, log zerolog.Logger, onError ErrorHandler) *wampSession {
	return &wampSession{
		name:    name,
		wsURL:   wsURL,
		queryFn: queryFn,
		policy:  policy,
		log:     log,
		onError: onError,
		done:    make(chan struct{}),
	}
}

func (s *wampSession) connect(ctx context.Context) error {
	return s.dial(ctx)
}

// dial opens the WebSocket, starts the read loop, and waits for the server's
// WELCOME frame.
func (s *wampSession) dial(ctx context.Context) error {
	target := s.wsURL
	if q := s.queryFn(); q != "" {
		target += "?" + q
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		Subprotocols:     []string{wampSubprotocol},
	}
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return &ConnectionError{URL: s.wsURL, Reason: err.Error()}
	}

	welcome := make(chan wampWelcomeInfo, 1)
	s.mu.Lock()
	s.conn = conn
	s.welcomeCh = welcome
	s.mu.Unlock()

	// Start reader goroutine
	go s.readLoop(conn)

	// Wait for WELCOME
	select {
	case w := <-welcome:
		s.mu.Lock()
		s.sessID = w.sessionID
		s.mu.Unlock()
		s.log.Debug().
			Str("channel", s.name).
			Str("session", w.sessionID).
			Str("server", w.server).
			Msg("wamp session established")
		return nil
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	case <-s.done:
		conn.Close()
		return ErrNotConnected
	}
}

func (s *wampSession) subscribe(topic string) error {
	return s.writeFrame(wampSubscribe, topic)
}

func (s *wampSession) unsubscribe(topic string) error {
	return s.writeFrame(wampUnsubscribe, topic)
}

func (s *wampSession) publish(topic string, message any, opts publishOptions) error {
	exclude := opts.exclude
	if exclude == nil {
		exclude = []string{}
	}
	eligible := opts.eligible
	if eligible == nil {
		eligible = []string{}
	}
	return s.writeFrame(wampPublish, topic, message, exclude, eligible)
}

// call sends a CALL frame and blocks until the matching CALLRESULT or
// CALLERROR arrives, or the context expires.
func (s *wampSession) call(ctx context.Context, procedure string, args ...any) (json.RawMessage, error) {
	callID := generateID()

	outcomeCh := make(chan callOutcome, 1)
	s.pending.Store(callID, outcomeCh)
	defer s.pending.Delete(callID)

	frame := make([]any, 0, 3+len(args))
	frame = append(frame, wampCall, callID, procedure)
	frame = append(frame, args...)
	if err := s.writeItems(frame); err != nil {
		return nil, err
	}

	select {
	case out := <-outcomeCh:
		if out.err != nil {
			return nil, out.err
		}
		return out.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrNotConnected
	}
}

func (s *wampSession) setEventHandler(fn func(topic string, payload []byte)) {
	s.eventFn = fn
}

func (s *wampSession) onDisconnect(fn func(error)) {
	s.disconnectFn = fn
}

func (s *wampSession) onReconnect(fn func()) {
	s.reconnectFn = fn
}

func (s *wampSession) sessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessID
}

func (s *wampSession) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	close(s.done)

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// readLoop consumes frames from one connection until it fails. The conn is
// passed explicitly so a loop serving a replaced connection dies quietly.
func (s *wampSession) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.handleDrop(err)
			return
		}
		s.handleFrame(data)
	}
}

func (s *wampSession) handleFrame(data []byte) {
	var frame []json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil || len(frame) < 2 {
		s.onError(SDKError{
			Kind:      ErrEventParse,
			Channel:   s.name,
			Raw:       data,
			Cause:     err,
			Timestamp: time.Now(),
		})
		return
	}

	var code int
	if err := json.Unmarshal(frame[0], &code); err != nil {
		s.onError(SDKError{
			Kind:      ErrEventParse,
			Channel:   s.name,
			Raw:       data,
			Cause:     err,
			Timestamp: time.Now(),
		})
		return
	}

	switch code {
	case wampWelcome:
		s.handleWelcome(frame)

	case wampEvent:
		if len(frame) < 3 {
			s.onError(SDKError{
				Kind:      ErrEventParse,
				Channel:   s.name,
				Raw:       data,
				Cause:     fmt.Errorf("event frame has %d elements", len(frame)),
				Timestamp: time.Now(),
			})
			return
		}
		var topic string
		if err := json.Unmarshal(frame[1], &topic); err != nil {
			s.onError(SDKError{Kind: ErrEventParse, Channel: s.name, Raw: data, Cause: err, Timestamp: time.Now()})
			return
		}
		if s.eventFn != nil {
			s.eventFn(topic, frame[2])
		}

	case wampCallResult:
		var callID string
		if err := json.Unmarshal(frame[1], &callID); err != nil {
			return
		}
		var result json.RawMessage
		if len(frame) > 2 {
			result = frame[2]
		}
		s.resolveCall(callID, callOutcome{result: result})

	case wampCallError:
		if len(frame) < 4 {
			return
		}
		var callID string
		if err := json.Unmarshal(frame[1], &callID); err != nil {
			return
		}
		rpcErr := &RPCError{}
		json.Unmarshal(frame[2], &rpcErr.URI)
		json.Unmarshal(frame[3], &rpcErr.Description)
		if len(frame) > 4 {
			rpcErr.Details = frame[4]
		}
		s.resolveCall(callID, callOutcome{err: rpcErr})
	}
}

func (s *wampSession) handleWelcome(frame []json.RawMessage) {
	var w wampWelcomeInfo
	json.Unmarshal(frame[1], &w.sessionID)
	if len(frame) > 2 {
		json.Unmarshal(frame[2], &w.version)
	}
	if len(frame) > 3 {
		json.Unmarshal(frame[3], &w.server)
	}

	s.mu.Lock()
	ch := s.welcomeCh
	s.mu.Unlock()
	if ch != nil {
		select {
		case ch <- w:
		default:
		}
	}
}

func (s *wampSession) resolveCall(callID string, out callOutcome) {
	if ch, ok := s.pending.LoadAndDelete(callID); ok {
		outcomeCh := ch.(chan callOutcome)
		select {
		case outcomeCh <- out:
		default:
		}
	}
}

// handleDrop reacts to a failed read: pending calls fail fast, the channel
// is told, and the reconnect loop takes over.
func (s *wampSession) handleDrop(err error) {
	s.pending.Range(func(key, value any) bool {
		s.resolveCall(key.(string), callOutcome{err: &ConnectionError{URL: s.wsURL, Reason: err.Error()}})
		return true
	})

	if s.disconnectFn != nil {
		s.disconnectFn(err)
	}

	go runReconnect(s.policy, s.name, err, s.done, s.dial, s.reconnectFn, s.onError, s.log)
}

func (s *wampSession) writeFrame(items ...any) error {
	return s.writeItems(items)
}

func (s *wampSession) writeItems(items []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// realtimeURL derives the realtime endpoint from the HTTP endpoint: the
// scheme swaps to ws/wss and the path gains a trailing "ws/" segment,
// replacing the "index.php" segment when the endpoint routes through one.
func realtimeURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a realtime URL
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}

	const indexSegment = "index.php"
	if idx := strings.Index(u.Path, indexSegment); idx != -1 {
		rest := strings.TrimPrefix(u.Path[idx+len(indexSegment):], "/")
		u.Path = u.Path[:idx] + "ws/" + rest
	} else {
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		u.Path += "ws/"
	}

	return u.String(), nil
}
