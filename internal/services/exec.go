package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/shared"
)

// Environment variables passed to external commands.
const (
	EnvAuthorization = "SPOTFILL_AUTHORIZATION"
	EnvClientToken   = "SPOTFILL_CLIENT_TOKEN"
	EnvPlaylistID    = "SPOTFILL_PLAYLIST_ID"
	EnvUserURI       = "SPOTFILL_USER_URI"
)

const (
	maxErrorOutput  = 512
	maxProgressLine = 1024
	// bounds the wait for output pipes after the process exits or is killed
	defaultWaitDelay = 5 * time.Second
)

// ExecOperation runs an external program for each start command.
type ExecOperation struct {
	command   string
	args      []string
	waitDelay time.Duration
	logger    *log.Logger
}

// NewExecOperation creates an [ExecOperation]. The command is resolved on each run.
func NewExecOperation(command string, args []string, logger *log.Logger) (*ExecOperation, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("%w: operation.command", shared.ErrMissingConfig)
	}
	return &ExecOperation{command: command, args: args, waitDelay: defaultWaitDelay, logger: logger}, nil
}

// Env returns the process environment extended with the snapshot values.
func Env(snap models.Snapshot) []string {
	return append(os.Environ(),
		EnvAuthorization+"="+snap.Credentials.Authorization,
		EnvClientToken+"="+snap.Credentials.ClientToken,
		EnvPlaylistID+"="+snap.PlaylistID,
		EnvUserURI+"="+snap.Identity.URI,
	)
}

// Run executes the command. Stdout lines are reported through progress; a non-zero exit
// returns an error carrying the trimmed stderr, or stdout when stderr is empty.
//
// Once ctx is done the process is killed and Run returns within waitDelay, even when
// grandchildren still hold its output open.
func (e *ExecOperation) Run(ctx context.Context, snap models.Snapshot, progress func(string)) error {
	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.Env = Env(snap)
	cmd.WaitDelay = e.waitDelay

	var stderr, stdout bytes.Buffer
	lines := &lineWriter{out: &stdout, progress: progress}
	cmd.Stdout = lines
	cmd.Stderr = &stderr

	e.logger.Debug("starting external operation", "command", e.command, "playlist", snap.PlaylistID)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.command, err)
	}

	err := cmd.Wait()
	lines.flush()
	if err != nil {
		out := strings.TrimSpace(stderr.String())
		if out == "" {
			out = strings.TrimSpace(stdout.String())
		}
		if len(out) > maxErrorOutput {
			out = out[len(out)-maxErrorOutput:]
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && out != "" {
			return fmt.Errorf("%s exited with code %d: %s", e.command, exitErr.ExitCode(), out)
		}
		return fmt.Errorf("%s failed: %w", e.command, err)
	}
	return nil
}

// lineWriter keeps the last maxErrorOutput bytes of stdout and reports each complete line.
//
// Lines longer than maxProgressLine are cut; the rest of the line is discarded.
type lineWriter struct {
	out      *bytes.Buffer
	progress func(string)
	partial  []byte
	overflow bool
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.out.Write(p)
	if n := w.out.Len(); n > 4*maxErrorOutput {
		tail := append([]byte(nil), w.out.Bytes()[n-maxErrorOutput:]...)
		w.out.Reset()
		w.out.Write(tail)
	}

	rest := p
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			w.appendPartial(rest)
			break
		}
		w.appendPartial(rest[:i])
		w.flush()
		rest = rest[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) appendPartial(b []byte) {
	if w.overflow {
		return
	}
	if room := maxProgressLine - len(w.partial); len(b) > room {
		b = b[:room]
		w.overflow = true
	}
	w.partial = append(w.partial, b...)
}

func (w *lineWriter) flush() {
	line := strings.TrimSpace(string(w.partial))
	w.partial = w.partial[:0]
	w.overflow = false
	if line != "" && w.progress != nil {
		w.progress(line)
	}
}
