// Package hook provides a Go SDK for Hook backends: REST requests against
// application collections, and realtime pub/sub channels over WAMP/WebSocket
// or Server-Sent Events.
//
// The SDK handles payload encoding (JSON bodies, multipart uploads, Unix
// timestamp dates), credential propagation, and channel session management,
// exposing three core surfaces:
//
//   - Request (with Get/Post/Put/Delete sugar): credentialed REST calls
//   - Channel: pub/sub with queued subscriptions and bounded reconnection
//   - Call: blocking server-side procedure invocation over WAMP
//
// Basic usage:
//
//	client, err := hook.NewClient(hook.Config{
//	    Endpoint: "https://api.example.com/index.php/",
//	    AppID:    "1",
//	    AppKey:   "d1b43f9f-...",
//	}, hook.LogErrors(zerolog.New(os.Stderr)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.Post(ctx, "collection/books", hook.Params{
//	    "title":        "The Martian",
//	    "published_at": time.Now(),
//	})
//
//	books, err := client.Channel("books")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	books.Subscribe("created", func(e *hook.Event) {
//	    log.Printf("new book: %s", e.Payload)
//	})
//	if err := books.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
package hook
