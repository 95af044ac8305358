package models

import (
	"fmt"
	"time"
)

// RunStatus is the outcome of a playlist operation run.
type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one invocation of the playlist operation.
//
// It records what was run and how it ended, never the credentials or identity it ran with.
type RunRecord struct {
	id         string
	sequence   int
	playlistID string
	strategy   string
	operation  string
	status     RunStatus
	errText    string
	startedAt  time.Time
	finishedAt *time.Time
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewRunRecord creates a started [RunRecord] for a playlist.
func NewRunRecord(playlistID, strategy, operation string) *RunRecord {
	now := time.Now()
	return &RunRecord{
		playlistID: playlistID,
		strategy:   strategy,
		operation:  operation,
		status:     RunStarted,
		startedAt:  now,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (r *RunRecord) ID() string             { return r.id }
func (r *RunRecord) Sequence() int          { return r.sequence }
func (r *RunRecord) PlaylistID() string     { return r.playlistID }
func (r *RunRecord) Strategy() string       { return r.strategy }
func (r *RunRecord) Operation() string      { return r.operation }
func (r *RunRecord) Status() RunStatus      { return r.status }
func (r *RunRecord) Error() string          { return r.errText }
func (r *RunRecord) StartedAt() time.Time   { return r.startedAt }
func (r *RunRecord) FinishedAt() *time.Time { return r.finishedAt }
func (r *RunRecord) CreatedAt() time.Time   { return r.createdAt }
func (r *RunRecord) UpdatedAt() time.Time   { return r.updatedAt }
func (r *RunRecord) DeletedAt() *time.Time  { return r.deletedAt }

func (r *RunRecord) SetID(id string)                 { r.id = id }
func (r *RunRecord) SetSequence(seq int)             { r.sequence = seq }
func (r *RunRecord) SetStartedAt(t time.Time)        { r.startedAt = t }
func (r *RunRecord) SetCreatedAt(t time.Time)        { r.createdAt = t }
func (r *RunRecord) SetUpdatedAt(t time.Time)        { r.updatedAt = t }
func (r *RunRecord) SetDeletedAt(t *time.Time)       { r.deletedAt = t }
func (r *RunRecord) SetFinishedAt(t *time.Time)      { r.finishedAt = t }
func (r *RunRecord) SetResult(s RunStatus, e string) { r.status, r.errText = s, e }

// Finish marks the run as succeeded when err is nil, failed otherwise.
func (r *RunRecord) Finish(err error) {
	now := time.Now()
	r.finishedAt = &now
	r.updatedAt = now
	if err != nil {
		r.status = RunFailed
		r.errText = err.Error()
		return
	}
	r.status = RunSucceeded
	r.errText = ""
}

// Duration returns how long the run took, or zero while it is still running.
func (r *RunRecord) Duration() time.Duration {
	if r.finishedAt == nil {
		return 0
	}
	return r.finishedAt.Sub(r.startedAt)
}

// Validate implements [Model].
func (r *RunRecord) Validate() error {
	if r.playlistID == "" {
		return fmt.Errorf("playlist id is required")
	}
	switch r.status {
	case RunStarted, RunSucceeded, RunFailed:
	default:
		return fmt.Errorf("invalid run status %q", r.status)
	}
	if r.operation == "" {
		return fmt.Errorf("operation is required")
	}
	return nil
}
