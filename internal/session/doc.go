// Package session owns the captured session state and gates the playlist operation.
//
// The [Controller] is the only writer of the [Session]: the capture interceptor stores credentials through it,
// the identity resolvers adopt identities through it, and UI commands start runs through it.
//
// A start command moves through four checks before the operation runs:
//
//  1. not already busy
//  2. the active tab is a playlist page
//  3. the user identity is known, resolving it once if needed (concurrent commands share one lookup)
//  4. both credential headers are captured and the single-flight permit is free
//
// Every failed check produces one status notification and leaves the session idle. A run always ends
// with the busy flag reset, the permit released and a busy=false notification, whether it succeeded,
// failed or panicked.
package session
