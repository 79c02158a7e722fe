// Package transport provides the shared HTTP client used for both remote
// lookups and webhook deliveries.
//
// The main components are:
//
//   - [Client]: keep-alive HTTP client with per-request timeouts and a 1MB
//     response body limit
//   - [Gate]: raise-only bound on concurrent connections, lifted by the
//     concurrency auto-tuner as the worker pool grows
//
// Callers never receive errors from [Client.Do] directly; they are captured
// in [Response.Error] so that lookups can classify them without branching on
// two return values.
package transport
