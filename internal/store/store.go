package store

import "time"

// Hit is the storage representation of a detected match, shaped for JSON
// (REST API and SSE).
type Hit struct {
	// ID is the matching identifier.
	ID int64 `json:"id"`

	// URL is the lookup URL that produced the match.
	URL string `json:"url"`

	// Message is the rendered notification text.
	Message string `json:"message"`

	// FoundAt is when the match was classified.
	FoundAt time.Time `json:"found_at"`
}

// Store defines the interface for storing and subscribing to hits.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows hits to be pushed to connected clients as they happen
// (e.g., via Server-Sent Events).
type Store interface {
	// Add records a hit and notifies all subscribers.
	Add(hit Hit)

	// Recent returns stored hits, newest first.
	// The returned slice is a snapshot; modifications do not affect the store.
	Recent() []Hit

	// Total returns the number of hits added since creation, including
	// ones evicted from Recent.
	Total() int64

	// Subscribe returns a channel that receives new hits.
	// The returned channel has a buffer; slow consumers may miss hits.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Hit

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Hit)
}
