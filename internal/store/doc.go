// Package store keeps the last observation of every visible target for the
// inspect API.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [TargetStatus]: Storage representation of one target
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers miss updates rather than block the poll loops).
package store
