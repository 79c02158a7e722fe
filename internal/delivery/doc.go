// Package delivery forwards hits to the notification sink.
//
// A [Queue] accepts items from any goroutine and drains them in FIFO order
// on a single consumer goroutine, retrying each failed item with exponential
// backoff before moving on. [WebhookSink] is the production sink.
package delivery
