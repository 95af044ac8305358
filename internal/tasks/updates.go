package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	CheckOwner Phase = iota
	LoadPlaylist
	LoadAlbums
	PickTracks
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case CheckOwner:
		return "check_owner"
	case LoadPlaylist:
		return "load_playlist"
	case LoadAlbums:
		return "load_albums"
	case PickTracks:
		return "pick_tracks"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

func checkOwnerUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: CheckOwner, Step: 1, Total: 1, Message: "Checking playlist owner..."}
}

func loadPlaylistUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist has %d tracks", count),
	}
}

func loadAlbumsUpdate(page, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadAlbums,
		Step:    page,
		Total:   0,
		Message: fmt.Sprintf("Loaded %d saved albums...", count),
	}
}

func pickTracksUpdate(picked, target int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PickTracks,
		Step:    picked,
		Total:   target,
		Message: fmt.Sprintf("[%d/%d] Picking tracks...", picked, target),
	}
}

func addTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks...", count),
	}
}
