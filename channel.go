package hook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ChannelState describes a channel's connection lifecycle.
type ChannelState int

const (
	StateDisconnected ChannelState = iota
	StateConnecting
	StateConnected
)

var channelStateNames = [...]string{
	StateDisconnected: "disconnected",
	StateConnecting:   "connecting",
	StateConnected:    "connected",
}

func (s ChannelState) String() string {
	if int(s) >= 0 && int(s) < len(channelStateNames) {
		return channelStateNames[s]
	}
	return fmt.Sprintf("ChannelState(%d)", s)
}

// Channel is a realtime pub/sub stream scoped to one collection. Events
// published to the channel are namespaced as "{collection}.{event}".
//
// Subscriptions registered before Connect are queued and flushed, in
// registration order, once the session is up; they survive reconnects and
// are re-established on every session restore.
type Channel struct {
	name string
	tr   transport
	subs *subscriptionRegistry
	log  zerolog.Logger

	onError ErrorHandler

	mu    sync.Mutex
	state ChannelState
}

func newChannel(name string, tr transport, log zerolog.Logger, onError ErrorHandler) *Channel {
	ch := &Channel{
		name:    name,
		tr:      tr,
		subs:    newSubscriptionRegistry(),
		log:     log,
		onError: onError,
	}
	tr.setEventHandler(ch.dispatch)
	tr.onDisconnect(ch.handleDisconnect)
	tr.onReconnect(ch.handleReconnect)
	return ch
}

// Name returns the collection this channel is scoped to.
func (ch *Channel) Name() string {
	return ch.name
}

// State returns the current connection state.
func (ch *Channel) State() ChannelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// SessionID returns the identifier the realtime server assigned to this
// session, or "" before connect and on transports without session identity.
func (ch *Channel) SessionID() string {
	return ch.tr.sessionID()
}

// Connect opens the realtime session and flushes queued subscriptions in
// registration order.
func (ch *Channel) Connect(ctx context.Context) error {
	ch.mu.Lock()
	switch ch.state {
	case StateConnected:
		ch.mu.Unlock()
		return ErrAlreadyConnected
	case StateConnecting:
		ch.mu.Unlock()
		return errors.New("channel connect already in progress")
	}
	ch.state = StateConnecting
	ch.mu.Unlock()

	if err := ch.tr.connect(ctx); err != nil {
		ch.setState(StateDisconnected)
		return err
	}

	ch.setState(StateConnected)
	ch.log.Debug().Str("channel", ch.name).Msg("channel connected")

	if err := ch.flush(); err != nil {
		return err
	}
	return nil
}

// Subscribe registers fn for the named event. Before the channel connects
// the subscription is queued; afterwards it takes effect immediately. One
// handler per event.
func (ch *Channel) Subscribe(event string, fn EventHandler) error {
	if event == "" {
		return errors.New("event name must not be empty")
	}
	if fn == nil {
		return errors.New("event handler must not be nil")
	}

	sub, err := ch.subs.register(event, ch.topic(event), fn)
	if err != nil {
		return err
	}

	if ch.State() != StateConnected {
		return nil // queued until connect
	}

	if err := ch.tr.subscribe(sub.topic); err != nil {
		ch.subs.remove(event)
		return err
	}
	sub.active = true
	return nil
}

// Unsubscribe cancels the subscription for the named event. Unsubscribing an
// event that was never subscribed is a no-op.
func (ch *Channel) Unsubscribe(event string) error {
	sub := ch.subs.remove(event)
	if sub == nil {
		return nil
	}
	if sub.active && ch.State() == StateConnected {
		return ch.tr.unsubscribe(sub.topic)
	}
	return nil
}

// Publish sends a message to the named event's topic. The message is
// JSON-encoded by the transport. Use WithExclude and WithEligible to steer
// delivery by session ID.
func (ch *Channel) Publish(event string, message any, opts ...PublishOption) error {
	if ch.State() != StateConnected {
		return ErrNotConnected
	}

	o := publishDefaults()
	for _, opt := range opts {
		opt(&o)
	}
	return ch.tr.publish(ch.topic(event), message, o)
}

// Call invokes a server-side procedure and blocks until its result arrives
// or the context expires. Transports without remote calls return
// ErrCallUnsupported.
func (ch *Channel) Call(ctx context.Context, procedure string, args ...any) (json.RawMessage, error) {
	if ch.State() != StateConnected {
		return nil, ErrNotConnected
	}
	return ch.tr.call(ctx, procedure, args...)
}

// Disconnect closes the realtime session. Subscriptions stay registered and
// are re-established if the channel is connected again.
func (ch *Channel) Disconnect() error {
	ch.mu.Lock()
	if ch.state == StateDisconnected {
		ch.mu.Unlock()
		return nil
	}
	ch.state = StateDisconnected
	ch.mu.Unlock()

	ch.subs.deactivate()
	return ch.tr.close()
}

func (ch *Channel) topic(event string) string {
	return ch.name + "." + event
}

func (ch *Channel) setState(s ChannelState) {
	ch.mu.Lock()
	ch.state = s
	ch.mu.Unlock()
}

// flush (re)subscribes every registered subscription in registration order.
func (ch *Channel) flush() error {
	for _, sub := range ch.subs.all() {
		if err := ch.tr.subscribe(sub.topic); err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.topic, err)
		}
		sub.active = true
	}
	return nil
}

// dispatch routes an inbound event to its subscription handler.
func (ch *Channel) dispatch(topic string, payload []byte) {
	sub, ok := ch.subs.lookup(topic)
	if !ok || !sub.active {
		ch.onError(SDKError{
			Kind:      ErrNoSubscription,
			Channel:   ch.name,
			Topic:     topic,
			Raw:       payload,
			Timestamp: time.Now(),
		})
		return
	}

	e := &Event{Topic: topic, Payload: payload}
	e.Data, _ = decodeBody(payload)

	// Run handler asynchronously
	go sub.fn(e)
}

// handleDisconnect is called by the transport when the session drops outside
// a Disconnect call.
func (ch *Channel) handleDisconnect(err error) {
	ch.mu.Lock()
	was := ch.state
	ch.state = StateDisconnected
	ch.mu.Unlock()

	ch.subs.deactivate()

	if was == StateConnected {
		ch.log.Warn().Err(err).Str("channel", ch.name).Msg("channel disconnected")
		ch.onError(SDKError{
			Kind:      ErrConnectionLost,
			Channel:   ch.name,
			Cause:     err,
			Timestamp: time.Now(),
		})
	}
}

// handleReconnect is called by the transport once a dropped session is
// restored; it re-establishes every registered subscription.
func (ch *Channel) handleReconnect() {
	ch.setState(StateConnected)

	if err := ch.flush(); err != nil {
		ch.onError(SDKError{
			Kind:      ErrSubscribeFailed,
			Channel:   ch.name,
			Cause:     err,
			Timestamp: time.Now(),
		})
	}
}
