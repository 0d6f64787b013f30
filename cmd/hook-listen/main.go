// hook-listen tails realtime events from a Hook channel.
//
// Configuration via environment variables:
//
//	HOOK_ENDPOINT  - HTTP URL of the backend, e.g. https://api.example.com/index.php/
//	HOOK_APP_ID    - application ID
//	HOOK_APP_KEY   - application key
//	HOOK_TRANSPORT - "wamp" (default) or "sse"
//
// Usage:
//
//	HOOK_ENDPOINT=https://api.example.com/index.php/ \
//	HOOK_APP_ID=1 HOOK_APP_KEY=secret \
//	  go run ./cmd/hook-listen books created updated deleted
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	hook "github.com/hookplatform/go-sdk"
)

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	if len(os.Args) < 3 {
		log.Fatal("usage: hook-listen <channel> <event> [event...]")
	}
	channelName := os.Args[1]
	events := os.Args[2:]

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	cfg := hook.Config{Logger: &logger}
	if os.Getenv("HOOK_TRANSPORT") == "sse" {
		cfg.Transport = hook.TransportSSE
	}

	client, err := hook.NewClient(cfg, hook.LogErrors(logger))
	if err != nil {
		log.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	channel, err := client.Channel(channelName)
	if err != nil {
		log.Fatalf("Channel: %v", err)
	}

	for _, event := range events {
		err := channel.Subscribe(event, func(e *hook.Event) {
			log.Printf("%s %s", e.Topic, e.Payload)
		})
		if err != nil {
			log.Fatalf("Subscribe(%s): %v", event, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := channel.Connect(ctx); err != nil {
		log.Fatalf("Connect: %v", err)
	}
	defer channel.Disconnect()

	log.Printf("listening on %q, press Ctrl+C to stop", channelName)
	<-ctx.Done()
	log.Println("shutting down")
}
