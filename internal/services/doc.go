// Package services wraps the Spotify Web API for the playlist operations and runs external commands.
//
// # Spotify
//
// [SpotifyService] uses [github.com/zmb3/spotify/v2] over an [oauth2.Transport] fed by a static token source.
// The token is the bearer captured from the web player, so there is no refresh: an expired token
// surfaces as an API error and the user reloads the page.
//
// The web player also sends a client-token header on every request. [SpotifyService] replays it
// through a small transport so the API sees the same pair of values the page used.
//
// # External commands
//
// [ExecOperation] runs a configured program with the session snapshot in its environment:
//   - SPOTFILL_AUTHORIZATION
//   - SPOTFILL_CLIENT_TOKEN
//   - SPOTFILL_PLAYLIST_ID
//   - SPOTFILL_USER_URI
//
// Each line the program writes to stdout is forwarded as a progress status.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
//   - [shared.ErrMissingCredentials] : no bearer captured
package services
