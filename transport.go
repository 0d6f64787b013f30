package hook

import (
	"context"
	"encoding/json"
)

// transport is the internal interface for realtime channel sessions.
// Implementations are wampSession (wamp.go), a WAMP v1 WebSocket session,
// and sseSession (sse.go), a Server-Sent Events stream.
type transport interface {
	// connect opens the session. Credentials ride the connection query string.
	connect(ctx context.Context) error

	// subscribe registers interest in a fully namespaced topic.
	subscribe(topic string) error

	// unsubscribe cancels a topic subscription.
	unsubscribe(topic string) error

	// publish sends a message to a topic, honoring exclude/eligible lists.
	publish(topic string, message any, opts publishOptions) error

	// call invokes a server-side procedure and blocks for its result.
	call(ctx context.Context, procedure string, args ...any) (json.RawMessage, error)

	// setEventHandler registers the callback for inbound events.
	// The callback receives the topic and the raw payload bytes.
	setEventHandler(fn func(topic string, payload []byte))

	// onDisconnect registers a callback for when the session drops.
	onDisconnect(fn func(error))

	// onReconnect registers a callback for when the session is restored.
	onReconnect(fn func())

	// close gracefully shuts down the session.
	close() error

	// sessionID returns the identifier the server assigned on connect, if the
	// transport has one.
	sessionID() string
}
