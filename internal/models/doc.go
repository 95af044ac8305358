// Package models defines the values that flow between the capture daemon, its UI clients and the playlist operation.
//
// The package contains two categories of types:
//
// 1. Session values: in-memory state assembled from observed browser traffic
//   - [CredentialPair] : authorization and client-token header values, last write wins per field
//   - [Identity] : the logged-in user's URI and id, written once per process
//   - [Snapshot] : the four values handed to the playlist operation
//   - [Command] and [Notification] : the UI bridge message contract
//
// 2. Persistent Entities: Database-backed models
//   - [RunRecord] : audit trail of playlist operation runs
//
// Persistent entities implement the Model interface and the Repository[T] interface defines standard CRUD operations for them.
// Credentials and identity are never persisted.
package models
