package models

import "fmt"

// CredentialPair holds the two request headers captured from the web player.
//
// Each field is written independently whenever a matching header is observed.
type CredentialPair struct {
	Authorization string `json:"-"`
	ClientToken   string `json:"-"`
}

// Complete reports whether both values have been captured.
func (c CredentialPair) Complete() bool {
	return c.Authorization != "" && c.ClientToken != ""
}

// Identity is the logged-in user as reported by the profile endpoint.
type Identity struct {
	URI string `json:"uri"`
	ID  string `json:"id,omitempty"`
}

// Known reports whether a user URI was resolved.
func (i Identity) Known() bool {
	return i.URI != ""
}

// Snapshot is the input to one playlist operation run.
type Snapshot struct {
	Credentials CredentialPair
	Identity    Identity
	PlaylistID  string
}

// String renders the snapshot without credential values.
func (s Snapshot) String() string {
	return fmt.Sprintf("playlist=%s user=%s credentials=%t", s.PlaylistID, s.Identity.URI, s.Credentials.Complete())
}

// State is the coarse phase of the session controller.
type State string

const (
	StateIdle      State = "idle"
	StateResolving State = "resolving"
	StateRunning   State = "running"
)

// SessionStatus is the read-only view of the session served to UI clients.
type SessionStatus struct {
	State            State  `json:"state"`
	Busy             bool   `json:"busy"`
	Badge            string `json:"badge"`
	HasAuthorization bool   `json:"has_authorization"`
	HasClientToken   bool   `json:"has_client_token"`
	IdentityKnown    bool   `json:"identity_known"`
	Strategy         string `json:"strategy"`
	PlaylistID       string `json:"playlist_id,omitempty"`
	PageEnabled      bool   `json:"page_enabled"`
	LastStatus       string `json:"last_status,omitempty"`
}
