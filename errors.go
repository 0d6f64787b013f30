package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel errors for client and channel state.
var (
	ErrNotConnected     = errors.New("channel is not connected")
	ErrAlreadyConnected = errors.New("channel is already connected")
	ErrClientClosed     = errors.New("client is closed")
	ErrCallUnsupported  = errors.New("transport does not support remote calls")
)

// APIError represents a request the backend rejected: a non-2xx status, or a
// 2xx response whose body decodes to false, null, or an object carrying an
// "error" field. Data holds the decoded response body, nil when the body
// could not be decoded.
type APIError struct {
	Status int
	Data   any
}

func (e *APIError) Error() string {
	if e.Data == nil {
		return fmt.Sprintf("api error [%d]", e.Status)
	}
	return fmt.Sprintf("api error [%d]: %v", e.Status, e.Data)
}

// RPCError represents a call error received from the realtime server.
type RPCError struct {
	URI         string
	Description string
	Details     json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error [%s]: %s", e.URI, e.Description)
}

// ConnectionError represents a failure to reach the backend or to maintain a
// realtime session with it.
type ConnectionError struct {
	URL    string
	Reason string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error [%s]: %s", e.URL, e.Reason)
}

// EncodeError reports a request payload value the encoder cannot represent.
// Field is the bracket-notation path of the offending value.
type EncodeError struct {
	Field  string
	Reason string
}

func (e *EncodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("encode error: %s", e.Reason)
	}
	return fmt.Sprintf("encode error [%s]: %s", e.Field, e.Reason)
}

// ErrorKind classifies SDK-level errors that cannot be returned to a caller.
type ErrorKind int

const (
	ErrEventParse       ErrorKind = iota // inbound frame or event couldn't be parsed
	ErrNoSubscription                    // event arrived for a topic with no subscriber
	ErrSubscribeFailed                   // a queued subscription couldn't be re-established
	ErrConnectionLost                    // realtime session dropped outside a Connect call
	ErrRetriesExhausted                  // reconnect attempt budget spent without success
)

var errorKindNames = [...]string{
	ErrEventParse:       "ErrEventParse",
	ErrNoSubscription:   "ErrNoSubscription",
	ErrSubscribeFailed:  "ErrSubscribeFailed",
	ErrConnectionLost:   "ErrConnectionLost",
	ErrRetriesExhausted: "ErrRetriesExhausted",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// SDKError represents an error that the SDK could not deliver to a direct
// caller. These errors are routed to the ErrorHandler provided at client
// creation.
type SDKError struct {
	Kind      ErrorKind
	Channel   string // channel (collection) name, if known
	Topic     string // full topic name, if known
	Cause     error
	Raw       []byte // raw payload (for parse failures)
	Timestamp time.Time
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v (channel=%s topic=%s)", e.Kind, e.Cause, e.Channel, e.Topic)
	}
	return fmt.Sprintf("%s (channel=%s topic=%s)", e.Kind, e.Channel, e.Topic)
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ErrorHandler is called for every SDK-level error that cannot be returned
// to a direct caller. It MUST be provided when creating a client.
type ErrorHandler func(SDKError)

// LogErrors returns an ErrorHandler that logs all SDK errors to the given
// logger.
func LogErrors(logger zerolog.Logger) ErrorHandler {
	return func(e SDKError) {
		evt := logger.Error().Stringer("kind", e.Kind)
		if e.Channel != "" {
			evt = evt.Str("channel", e.Channel)
		}
		if e.Topic != "" {
			evt = evt.Str("topic", e.Topic)
		}
		if e.Cause != nil {
			evt = evt.Err(e.Cause)
		}
		evt.Msg("sdk error")
	}
}
