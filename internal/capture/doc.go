// Package capture observes the web player's outbound requests and extracts credential headers.
//
// A [Request] is one observed request: URL, method and headers, as reported by the DevTools network domain
// or pushed to POST /observe. The [Interceptor] checks each request against an allow-list of [Pattern] globs,
// stores the authorization and client-token headers through a [CredentialSink], and hands every request to a [Hub].
//
// The [Hub] is a small pattern-keyed pub/sub. Persistent subscriptions see every matching request.
// One-shot subscriptions ([Hub.SubscribeOnce]) remove themselves after the first request their listener accepts,
// and a delivery never runs concurrently with another delivery to the same one-shot subscription.
//
// Observation is passive: requests are never modified, delayed or blocked.
package capture
