// Package poller runs the per-button liveness poll loops for livedeck.
//
// The main components are:
//
//   - [Registry]: one independent, cancellable poll timer per visible button,
//     keyed by the host's context id
//   - [LiveAPI]: the SOOP liveness provider behind the [Provider] interface
//   - [Client]: HTTP client wrapper with pooling and size limits
//   - [ParseInterval] and [ResolveInterval]: the fetch_interval rules
//
// Users of the livedeck library should not need to interact with this
// package directly. Configuration is done through the main livedeck package.
package poller
