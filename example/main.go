package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/idscout"
)

func main() {
	// start mock lookup and webhook (see mock_server.go)
	go StartMockServer(":9999")
	time.Sleep(100 * time.Millisecond)

	scout, err := idscout.New(
		idscout.WithWebhookURL("http://localhost:9999/webhook"),
		idscout.WithLookupURL("http://localhost:9999/v1/groups/{{.ID}}"),
		idscout.WithMessageTemplate("ownerless group: https://www.roblox.com/groups/group.aspx?gid={{.ID}}"),
		idscout.WithIDRange(1, 100_000),
		idscout.WithLikelyRange(1, 10_000, 0.7),
		idscout.WithConcurrency(2, 40, 4),
		idscout.WithAutoTune(2*time.Second, 120*time.Millisecond, 300*time.Millisecond),
		idscout.WithRateLimit(100, 200),
		idscout.WithMemoryDedupe(0),
		idscout.WithPort(3000),
		idscout.WithHitCallback(func(h idscout.Hit) {
			fmt.Printf("  hit: %d\n", h.ID)
		}),
	)
	if err != nil {
		slog.Error("failed to create scout", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  idscout demo")
	fmt.Println()
	fmt.Println("  Health:  http://localhost:3000/health")
	fmt.Println("  Hits:    http://localhost:3000/")
	fmt.Println("  Metrics: http://localhost:3000/metrics")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scout.Start(ctx); err != nil {
		slog.Error("scout error", "error", err)
		os.Exit(1)
	}
}
