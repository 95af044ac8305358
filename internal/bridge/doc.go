// Package bridge carries messages between the session controller and UI surfaces.
//
// Commands flow in over POST /command and are dispatched asynchronously on the daemon's lifetime context.
// Notifications flow out over a websocket at /events: each frame is a bare JSON boolean (busy flag) or a
// bare JSON string (status text). GET /status serves a snapshot for clients that connect late.
//
// The [Broker] fans notifications out to subscribers and drops them for slow consumers. Publishing with no
// subscriber is logged, never an error. [Client] is the matching consumer used by the CLI and the popup.
package bridge
