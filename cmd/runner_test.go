package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/repositories"
	"github.com/desertthunder/spotfill/internal/shared"
	"github.com/desertthunder/spotfill/internal/tabs"
	tu "github.com/desertthunder/spotfill/internal/testing"
	"github.com/urfave/cli/v3"
)

// pointAt sets the server section of config to the address of a test server.
func pointAt(t *testing.T, config *shared.Config, rawURL string) {
	t.Helper()

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("failed to split host: %v", err)
	}
	config.Server.Host = host
	config.Server.Port, _ = strconv.Atoi(port)
}

// run executes one command definition with args as if it were the root command.
func run(t *testing.T, build func(*Runner) *cli.Command, r *Runner, args ...string) error {
	t.Helper()

	cmd := build(r)
	return cmd.Run(context.Background(), append([]string{cmd.Name}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient == nil || runner.httpClient.Timeout != 10*time.Second {
				t.Errorf("expected a default httpClient with a 10s timeout, got %+v", runner.httpClient)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"serve", "start", "status", "watch", "popup", "capture", "history", "setup"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil || cmd.Name != want[i] {
				t.Errorf("command %d: expected %s, got %+v", i, want[i], cmd)
			}
		}
	})
}

func TestLoadConfig(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "missing.env")

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		if err := runner.LoadConfig(filepath.Join(t.TempDir(), "config.toml"), envFile); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.config.Identity.Strategy != "replay" {
			t.Errorf("expected default strategy, got %s", runner.config.Identity.Strategy)
		}
	})

	t.Run("reads file and environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := "[identity]\nstrategy = \"spoof\"\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("SPOTFILL_PORT", "4111")

		runner := NewRunner(RunnerOpts{})
		if err := runner.LoadConfig(path, envFile); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.config.Identity.Strategy != "spoof" {
			t.Errorf("expected spoof strategy, got %s", runner.config.Identity.Strategy)
		}
		if runner.config.Server.Port != 4111 {
			t.Errorf("expected port from environment, got %d", runner.config.Server.Port)
		}
	})

	t.Run("rejects invalid strategy", func(t *testing.T) {
		t.Setenv("SPOTFILL_IDENTITY_STRATEGY", "guess")

		runner := NewRunner(RunnerOpts{})
		err := runner.LoadConfig(filepath.Join(t.TempDir(), "config.toml"), envFile)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestHistory(t *testing.T) {
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "runs.db")

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	repo := repositories.NewRunRepository(db)
	for _, playlist := range []string{"P1", "P2", "P1"} {
		record := models.NewRunRecord(playlist, "replay", "fill")
		if err := repo.Started(record); err != nil {
			t.Fatalf("failed to record start: %v", err)
		}
		record.Finish(nil)
		if err := repo.Finished(record); err != nil {
			t.Fatalf("failed to record finish: %v", err)
		}
	}
	db.Close()

	t.Run("csv filtered by playlist", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output})

		if err := run(t, historyCommand, runner, "--format", "csv", "--playlist", "P1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), output.String())
		}
		if strings.Contains(output.String(), "P2") {
			t.Error("expected P2 to be filtered out")
		}
	})

	t.Run("markdown to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.md")
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		if err := run(t, historyCommand, runner, "-f", "md", "-o", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "**Runs**: 3") {
			t.Errorf("expected 3 runs in export, got:\n%s", content)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		err := run(t, historyCommand, runner, "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		err := run(t, historyCommand, runner, "--limit", "0")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSetupConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	runner := NewRunner(RunnerOpts{ConfigPath: path, Output: &bytes.Buffer{}})

	if err := runner.SetupConfig(context.Background(), &cli.Command{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tu.AssertFileExists(t, path)

	if err := runner.SetupConfig(context.Background(), &cli.Command{}); err == nil {
		t.Error("expected error when the config file already exists")
	}
}

func TestCapture(t *testing.T) {
	var observed models.SessionStatus
	var pushed map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/observe":
			json.NewDecoder(r.Body).Decode(&pushed)
			observed.HasAuthorization = true
			w.WriteHeader(http.StatusNoContent)
		case "/status":
			json.NewEncoder(w).Encode(observed)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	config := shared.DefaultConfig()
	pointAt(t, config, srv.URL)

	t.Run("requires one source", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		if err := run(t, captureCommand, runner); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		err := run(t, captureCommand, runner, "--curl", "curl 'https://x'", "--curl-file", "a.sh")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("pushes the parsed request", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output})

		curl := `curl 'https://api-partner.spotify.com/pathfinder/v1/query?operationName=fetchPlaylist' -H 'authorization: Bearer A' -H 'client-token: T'`
		if err := run(t, captureCommand, runner, "--curl", curl); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.HasPrefix(pushed["url"].(string), "https://api-partner.spotify.com/") {
			t.Errorf("unexpected pushed url: %v", pushed["url"])
		}
		if !strings.Contains(output.String(), "Authorization: captured") {
			t.Errorf("expected capture summary, got %q", output.String())
		}
	})

	t.Run("daemon unreachable", func(t *testing.T) {
		unreachable := shared.DefaultConfig()
		unreachable.Server.Port = 1
		runner := NewRunner(RunnerOpts{Config: unreachable, Output: &bytes.Buffer{}})

		err := run(t, captureCommand, runner, "--curl", "curl 'https://example.com' -H 'accept: */*'")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.SessionStatus{
			State:          models.StateRunning,
			Busy:           true,
			Badge:          "...",
			HasClientToken: true,
			Strategy:       "spoof",
			PlaylistID:     "P1",
		})
	}))
	defer srv.Close()

	config := shared.DefaultConfig()
	pointAt(t, config, srv.URL)

	t.Run("plain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output})

		if err := run(t, statusCommand, runner); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{"running ...", "Authorization:  missing", "Client token:   captured", "unknown (spoof)", "P1"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in output:\n%s", want, output.String())
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output})

		if err := run(t, statusCommand, runner, "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var st models.SessionStatus
		if err := json.Unmarshal(output.Bytes(), &st); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if !st.Busy || st.PlaylistID != "P1" {
			t.Errorf("unexpected status: %+v", st)
		}
	})
}

func TestFollow(t *testing.T) {
	t.Run("prints until busy reverts", func(t *testing.T) {
		events := make(chan models.Notification, 4)
		events <- models.BusyNotification(true)
		events <- models.StatusNotification("Adding 10 tracks...")
		events <- models.StatusNotification("Random tracks added to the playlist.")
		events <- models.BusyNotification(false)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		if err := runner.follow(context.Background(), events); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := "Running...\nAdding 10 tracks...\nRandom tracks added to the playlist.\n"
		if output.String() != want {
			t.Errorf("expected %q, got %q", want, output.String())
		}
	})

	t.Run("status before busy is a rejection", func(t *testing.T) {
		events := make(chan models.Notification, 1)
		events <- models.StatusNotification("Missing Spotify credentials. Reload the page and try again.")

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		if err := runner.follow(context.Background(), events); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasPrefix(output.String(), "Missing Spotify credentials") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("closed stream", func(t *testing.T) {
		events := make(chan models.Notification)
		close(events)

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		if err := runner.follow(context.Background(), events); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestDaemon(t *testing.T) {
	profile := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":{"me":{"profile":{"uri":"spotify:user:abc","username":"abc"}}}}`))
	}))
	defer profile.Close()

	config := shared.DefaultConfig()
	config.Identity.Strategy = "spoof"
	config.Identity.Endpoint = profile.URL
	config.Operation.Kind = "exec"
	config.Operation.Command = "sh"
	config.Operation.Args = []string{"-c", `echo "filling $SPOTFILL_PLAYLIST_ID for $SPOTFILL_USER_URI"`}
	config.Database.Path = ":memory:"

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &tabs.StaticSource{Tab: tabs.Tab{ID: "1", URL: "https://open.spotify.com/playlist/P1?si=x"}}
	d := &daemon{}
	if err := d.build(ctx, config, source, runRecorder(db), shared.NewLogger(nil)); err != nil {
		t.Fatalf("failed to build daemon: %v", err)
	}
	defer d.shutdown()

	srv := httptest.NewServer(d.router)
	defer srv.Close()
	pointAt(t, config, srv.URL)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output})

	curl := `curl 'https://api-partner.spotify.com/pathfinder/v1/query?operationName=fetchPlaylist' -H 'authorization: Bearer A' -H 'client-token: T'`
	if err := run(t, captureCommand, runner, "--curl", curl); err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	output.Reset()
	if err := run(t, startCommand, runner); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	want := "Running...\nfilling P1 for spotify:user:abc\nRandom tracks added to the playlist.\n"
	if output.String() != want {
		t.Errorf("expected %q, got %q", want, output.String())
	}

	st := d.controller.Status()
	if st.Busy || !st.IdentityKnown {
		t.Errorf("unexpected session status after run: %+v", st)
	}

	runs, err := repositories.NewRunRepository(db).Recent(10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status() != models.RunSucceeded || runs[0].PlaylistID() != "P1" {
		t.Errorf("expected one succeeded run for P1, got %+v", runs)
	}
}
