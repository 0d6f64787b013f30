package hook

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRetryPolicy_BoundedAttempts(t *testing.T) {
	p := retryPolicy{attempts: 3, delay: 250 * time.Millisecond}

	for i := 0; i < 3; i++ {
		delay, ok := p.next()
		if !ok {
			t.Fatalf("attempt %d: budget spent early", i+1)
		}
		if delay != 250*time.Millisecond {
			t.Errorf("attempt %d: delay = %v, want fixed 250ms", i+1, delay)
		}
	}

	if _, ok := p.next(); ok {
		t.Error("fourth attempt should be refused")
	}
}

func TestRetryPolicy_Reset(t *testing.T) {
	p := retryPolicy{attempts: 1, delay: time.Millisecond}

	p.next()
	if _, ok := p.next(); ok {
		t.Fatal("budget should be spent")
	}

	p.reset()
	if _, ok := p.next(); !ok {
		t.Error("after reset, the budget should be available again")
	}
}

func TestRetryPolicy_ZeroValueNeverRetries(t *testing.T) {
	var p retryPolicy
	if _, ok := p.next(); ok {
		t.Error("zero-value policy should refuse the first attempt")
	}
}

func TestRunReconnect_SucceedsAfterFailures(t *testing.T) {
	var dials int32
	dial := func(ctx context.Context) error {
		if atomic.AddInt32(&dials, 1) < 3 {
			return errors.New("still down")
		}
		return nil
	}

	restored := make(chan struct{})
	runReconnect(
		retryPolicy{attempts: 5, delay: time.Millisecond},
		"books",
		errors.New("initial drop"),
		make(chan struct{}),
		dial,
		func() { close(restored) },
		discardErrors,
		zerolog.Nop(),
	)

	select {
	case <-restored:
	default:
		t.Fatal("onSuccess was not called")
	}
	if got := atomic.LoadInt32(&dials); got != 3 {
		t.Errorf("dials = %d, want 3", got)
	}
}

func TestRunReconnect_Exhaustion(t *testing.T) {
	lastErr := errors.New("port closed")
	dial := func(ctx context.Context) error { return lastErr }

	var reported []SDKError
	runReconnect(
		retryPolicy{attempts: 2, delay: time.Millisecond},
		"books",
		errors.New("initial drop"),
		make(chan struct{}),
		dial,
		func() { t.Error("onSuccess must not fire on exhaustion") },
		func(e SDKError) { reported = append(reported, e) },
		zerolog.Nop(),
	)

	if len(reported) != 1 {
		t.Fatalf("reported %d errors, want 1", len(reported))
	}
	e := reported[0]
	if e.Kind != ErrRetriesExhausted {
		t.Errorf("Kind = %v, want ErrRetriesExhausted", e.Kind)
	}
	if e.Channel != "books" {
		t.Errorf("Channel = %q, want books", e.Channel)
	}
	if !errors.Is(e.Cause, lastErr) {
		t.Errorf("Cause = %v, want the last dial failure", e.Cause)
	}
}

func TestRunReconnect_DoneAborts(t *testing.T) {
	done := make(chan struct{})
	close(done)

	runReconnect(
		retryPolicy{attempts: 5, delay: time.Hour},
		"books",
		errors.New("drop"),
		done,
		func(ctx context.Context) error {
			t.Error("dial must not run once done is closed")
			return nil
		},
		nil,
		func(e SDKError) { t.Errorf("unexpected error report: %v", e) },
		zerolog.Nop(),
	)
}
