// Package tasks implements the built-in playlist operation with real-time progress reporting.
//
// # Fill
//
// [FillEngine.Fill] adds random tracks from the user's saved albums to a playlist:
//
//  1. Checks the playlist belongs to the resolved user
//  2. Loads the ids already in the playlist
//  3. Pages through the saved albums, [services.ItemsPerPage] at a time
//  4. Visits the albums in random order, taking a few random tracks from each
//     until the target size is reached
//  5. Adds the picked tracks in one request
//
// Taking several tracks per album keeps the number of album requests low.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters and a message.
// Updates are sent with select and default so a slow reader never stalls the run.
// [FillEngine.Run] adapts the channel to the controller's progress callback.
//
// # Rate Limiting
//
// Every API call waits on a [rate.Limiter] built from operation.rate_limit.
package tasks
