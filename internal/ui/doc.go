// Package ui implements the terminal popup using bubbletea's Elm architecture.
//
// The popup mirrors the toolbar popup of the web player companion:
//   - a start action, enabled only when the active tab is a playlist page and no run is in flight
//   - a spinner while the daemon reports busy
//   - the most recent status strings, newest first
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Notifications flow from the daemon's websocket through a channel, read one message per command so the
// program never blocks on the stream.
//
// Keyboard bindings (enter/s, r, q) are displayed via charmbracelet/bubbles/help.
package ui
