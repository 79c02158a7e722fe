// Package poller runs the probe loop: it looks up generated candidates
// against the remote endpoint and classifies every response.
//
// The main components are:
//
//   - [Lookup]: one rate-limited request per candidate, classified as
//     [Hit], [Miss] or [Inconclusive]
//   - [Pool]: long-lived workers driving Lookup, grown toward a target by a
//     spawn-only monitor
//   - [Result]: outcome of probing one candidate
//
// Users of the idscout library should not need to interact with this
// package directly. Configuration is done through the root package.
package poller
