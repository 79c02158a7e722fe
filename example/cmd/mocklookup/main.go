// Standalone mock lookup endpoint and webhook for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mocklookup
//
// Then in another terminal:
//
//	go run ./cmd/idscout serve -c example/idscout.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

func main() {
	fmt.Println("Mock lookup server starting on :9999")
	fmt.Println("  GET  /v1/groups/{id}  - one id in 97 is ownerless")
	fmt.Println("  POST /webhook         - logs notifications")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		inFlight atomic.Int64
		received atomic.Int64
	)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)

		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}

		time.Sleep(time.Duration(40+rand.Intn(40))*time.Millisecond + time.Duration(n)*8*time.Millisecond)

		if rand.Intn(50) == 0 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var owner any = map[string]int64{"userId": id % 1000}
		if id%97 == 0 {
			owner = nil
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                 id,
			"owner":              owner,
			"publicEntryAllowed": id%2 == 0,
		})
	})

	mux.HandleFunc("POST /webhook", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		// fail every fifth notification to show retries
		if received.Add(1)%5 == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		slog.Info("webhook received", "content", payload.Content)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := http.ListenAndServe(":9999", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
