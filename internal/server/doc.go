// Package server provides HTTP routing, middleware and the serve loop for the daemon's local API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("POST /command").
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// The capture package mounts POST /observe and the bridge package mounts /command, /events and /status.
//
// # Lifecycle
//
// [Serve] runs until its context is cancelled and then drains in-flight requests for up to [ShutdownTimeout].
// Handlers receive that same context as their request base context.
package server
