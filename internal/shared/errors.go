package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session errors
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrMissingIdentity    = fmt.Errorf("missing user identity")
	ErrIdentity           = fmt.Errorf("identity resolution failed")
	ErrMissingTab         = fmt.Errorf("missing playlist tab")
	ErrAlreadyRunning     = fmt.Errorf("operation already running")
	ErrUnknownCommand     = fmt.Errorf("unknown command")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrNotPlaylistOwner   = fmt.Errorf("playlist is not owned by the current user")
	ErrNothingToAdd       = fmt.Errorf("no tracks available to add")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
