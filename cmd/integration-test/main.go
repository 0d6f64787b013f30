// Integration test against a live Hook backend.
//
// Prerequisites:
//   - A backend running with the realtime module enabled, e.g.
//     http://localhost:8080/index.php/ with a websocket server on /ws/
//   - An application provisioned with a known app ID and key
//
// Usage:
//
//	HOOK_ENDPOINT=http://localhost:8080/index.php/ \
//	HOOK_APP_ID=1 HOOK_APP_KEY=secret \
//	  go run ./cmd/integration-test
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	hook "github.com/hookplatform/go-sdk"
)

const (
	testCollection = "sdk_integration"
	testEvent      = "ping"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	passed := 0
	failed := 0

	fmt.Println("=== Hook Go SDK Integration Test ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := hook.NewClient(hook.Config{
		Endpoint: envOr("HOOK_ENDPOINT", "http://localhost:8080/index.php/"),
		AppID:    envOr("HOOK_APP_ID", "1"),
		AppKey:   os.Getenv("HOOK_APP_KEY"),
	}, func(e hook.SDKError) {
		log.Printf("  [sdk] %s", e.Error())
	})
	if err != nil {
		log.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	// --- Test 1: Create a record over REST ---
	fmt.Println("[Test 1] POST collection/" + testCollection + "...")

	created, err := client.Post(ctx, "collection/"+testCollection, hook.Params{
		"label":      "integration",
		"created_at": time.Now(),
	})
	var recordID string
	if err != nil {
		fmt.Printf("  FAIL: Post(): %v\n", err)
		failed++
	} else {
		if data, ok := created.Data.(map[string]any); ok {
			if id, ok := data["_id"].(string); ok {
				recordID = id
			}
		}
		fmt.Println("  PASS")
		passed++
	}

	// --- Test 2: List records and read X-Total-Count ---
	fmt.Println("[Test 2] GET collection/" + testCollection + " with filter...")

	listed, err := client.Get(ctx, "collection/"+testCollection, hook.Params{
		"filter": hook.Params{"label": "integration"},
	})
	if err != nil {
		fmt.Printf("  FAIL: Get(): %v\n", err)
		failed++
	} else {
		fmt.Printf("  PASS (total=%d)\n", listed.Total)
		passed++
	}

	// --- Test 3: Connect a realtime channel ---
	fmt.Println("[Test 3] Channel connect...")

	channel, err := client.Channel(testCollection)
	if err != nil {
		log.Fatalf("  FAIL: Channel(): %v", err)
	}

	received := make(chan *hook.Event, 1)
	err = channel.Subscribe(testEvent, func(e *hook.Event) {
		select {
		case received <- e:
		default:
		}
	})
	if err != nil {
		log.Fatalf("  FAIL: Subscribe(): %v", err)
	}

	if err := channel.Connect(ctx); err != nil {
		fmt.Printf("  FAIL: Connect(): %v\n", err)
		failed++
		summary(passed, failed)
		return
	}
	defer channel.Disconnect()
	fmt.Println("  PASS")
	passed++

	// --- Test 4: Publish and receive own event ---
	fmt.Println("[Test 4] Publish/receive roundtrip...")

	stamp := time.Now().UnixNano()
	if err := channel.Publish(testEvent, hook.Params{"stamp": stamp}); err != nil {
		fmt.Printf("  FAIL: Publish(): %v\n", err)
		failed++
	} else {
		select {
		case e := <-received:
			fmt.Printf("  PASS: got %s\n", e.Topic)
			passed++
		case <-time.After(5 * time.Second):
			fmt.Println("  FAIL: no event within 5s")
			failed++
		}
	}

	// --- Test 5: Delete the created record ---
	fmt.Println("[Test 5] DELETE created record...")

	if recordID == "" {
		fmt.Println("  SKIP: no record ID from Test 1")
	} else {
		_, err := client.Delete(ctx, "collection/"+testCollection+"/"+recordID, nil)
		if err != nil {
			fmt.Printf("  FAIL: Delete(): %v\n", err)
			failed++
		} else {
			fmt.Println("  PASS")
			passed++
		}
	}

	summary(passed, failed)
}

func summary(passed, failed int) {
	fmt.Println()
	fmt.Println("=== Results ===")
	fmt.Printf("  Passed: %d\n", passed)
	fmt.Printf("  Failed: %d\n", failed)

	if failed > 0 {
		os.Exit(1)
	}
}
