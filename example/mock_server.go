package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// StartMockServer runs a mock group lookup endpoint and a webhook receiver.
//
// Latency grows with the number of requests in flight, so the auto-tuner
// has something to react to. About one id in 97 is ownerless and open, and
// roughly 2% of lookups are throttled with 429.
// Call this in a goroutine before creating the scout.
func StartMockServer(addr string) {
	var inFlight atomic.Int64
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)

		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}

		// simulate latency that degrades under load
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
		resp := map[string]any{
			"id":                 id,
			"owner":              owner,
			"publicEntryAllowed": id%2 == 0,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	mux.HandleFunc("POST /webhook", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		slog.Info("webhook received", "content", payload.Content)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
