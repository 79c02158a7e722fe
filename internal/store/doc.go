// Package store keeps recently detected hits and fans them out to
// subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: Bounded in-memory implementation with pub/sub
//   - [Hit]: Storage representation of a detected match
//
// Subscribers receive hits via channels with non-blocking sends (slow
// subscribers will miss hits rather than block the probe workers).
package store
