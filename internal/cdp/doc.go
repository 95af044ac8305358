// Package cdp attaches to a running Chromium over the DevTools protocol.
//
// The [Client] discovers page targets through the DevTools HTTP endpoint (/json/list), attaches to the ones
// whose URL contains the configured filter, and forwards every network.EventRequestWillBeSent to a
// capture.Observer. It never creates, navigates or closes tabs.
//
// The client is also a tabs.Source: the active tab is the attached page whose document is visible,
// preferring the one that has focus.
package cdp
