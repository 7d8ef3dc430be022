package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
	tu "github.com/desertthunder/relisten/internal/testing"
	"github.com/urfave/cli/v3"
)

// fakeRemote serves the collection and play endpoints of the remote store.
type fakeRemote struct {
	songs     []models.Song
	playlists []models.Playlist
	accept    atomic.Bool

	mu     sync.Mutex
	played []string
}

func (f *fakeRemote) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/songs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(f.songs)
	})
	mux.HandleFunc("GET /v1/playlists", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(f.playlists)
	})
	mux.HandleFunc("POST /v1/songs/{id}/played", func(w http.ResponseWriter, r *http.Request) {
		if !f.accept.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		f.mu.Lock()
		f.played = append(f.played, r.PathValue("id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (f *fakeRemote) plays() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

func setupRunner(t *testing.T) (*Runner, *bytes.Buffer, *fakeRemote) {
	t.Helper()

	remote := &fakeRemote{
		songs: tu.Songs("a", "b", "c"),
		playlists: []models.Playlist{{
			ID:        "p1",
			Name:      "Mix",
			UpdatedAt: 500,
			Songs:     []models.SongRef{{SongID: "c", ID: "1"}, {SongID: "a", ID: "2"}},
		}},
	}
	srv := httptest.NewServer(remote.handler())
	t.Cleanup(srv.Close)

	config := shared.DefaultConfig()
	config.Database.Dir = t.TempDir()
	config.Remote.BaseURL = srv.URL
	config.Sync.Models = []string{"songs", "playlists"}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:   config,
		Output:   output,
		Resolver: tu.StaticResolver{},
	})
	t.Cleanup(func() { runner.Close() })
	return runner, output, remote
}

func run(r *Runner, output *bytes.Buffer, args ...string) (string, error) {
	output.Reset()
	app := &cli.Command{Name: "relisten", Commands: r.register()}
	err := app.Run(context.Background(), append([]string{"relisten"}, args...))
	return output.String(), err
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
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
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
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
		})

		t.Run("resolver defaults to the remote client", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.remote == nil {
				t.Fatal("expected remote client to be created")
			}
			if runner.resolver != runner.remote {
				t.Error("expected resolver to be the remote client")
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

		t.Run("writePlainln appends a newline", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("100%s", "%"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "100%\n" {
				t.Errorf("expected '100%%\\n', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := make(map[string]bool)
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "sync", "library", "queue"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("setup config writes the example file once", func(t *testing.T) {
		runner, output, _ := setupRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if _, err := run(runner, output, "setup", "config", "--config", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		if _, err := run(runner, output, "setup", "config", "--config", path); err == nil {
			t.Error("expected error when the config file already exists")
		}
	})

	t.Run("setup database creates the user's library", func(t *testing.T) {
		runner, output, _ := setupRunner(t)

		out, err := run(runner, output, "setup", "database", "--user", "alice")
		if err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, runner.config.DatabasePath("alice"))
		if !strings.Contains(out, "alice.db") {
			t.Errorf("expected database path in output, got %s", out)
		}
	})

	t.Run("setup database rejects invalid users", func(t *testing.T) {
		runner, output, _ := setupRunner(t)

		_, err := run(runner, output, "setup", "database", "--user", "../etc")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSyncCommands(t *testing.T) {
	t.Run("load bootstraps and status reports watermarks", func(t *testing.T) {
		runner, output, _ := setupRunner(t)

		out, err := run(runner, output, "sync", "load")
		if err != nil {
			t.Fatalf("sync load failed: %v", err)
		}
		if !strings.Contains(out, "songs") || !strings.Contains(out, "playlists") || !strings.Contains(out, "Synced") {
			t.Errorf("unexpected report: %s", out)
		}

		out, err = run(runner, output, "sync", "status", "--json")
		if err != nil {
			t.Fatalf("sync status failed: %v", err)
		}
		var watermarks []models.Watermark
		if err := json.Unmarshal([]byte(out), &watermarks); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		values := make(map[string]int64)
		for _, w := range watermarks {
			values[w.Name] = w.Value
		}
		if values["songs"] != 300 || values["playlists"] != 500 {
			t.Errorf("unexpected watermarks: %v", values)
		}
	})

	t.Run("load reports unknown models", func(t *testing.T) {
		runner, output, _ := setupRunner(t)

		_, err := run(runner, output, "sync", "load", "--model", "videos")
		if !errors.Is(err, shared.ErrUnknownCollection) {
			t.Errorf("expected ErrUnknownCollection, got %v", err)
		}
	})

	t.Run("status before any sync", func(t *testing.T) {
		runner, output, _ := setupRunner(t)

		out, err := run(runner, output, "sync", "status")
		if err != nil {
			t.Fatalf("sync status failed: %v", err)
		}
		if !strings.Contains(out, "Nothing synced yet") {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("reset clears items and watermark", func(t *testing.T) {
		runner, output, _ := setupRunner(t)

		if _, err := run(runner, output, "sync", "load"); err != nil {
			t.Fatalf("sync load failed: %v", err)
		}
		if _, err := run(runner, output, "sync", "reset", "-m", "songs"); err != nil {
			t.Fatalf("sync reset failed: %v", err)
		}

		out, err := run(runner, output, "sync", "status", "--json")
		if err != nil {
			t.Fatalf("sync status failed: %v", err)
		}
		if strings.Contains(out, `"songs"`) || !strings.Contains(out, `"playlists"`) {
			t.Errorf("expected only the playlists watermark, got %s", out)
		}

		out, err = run(runner, output, "library", "songs", "--json")
		if err != nil {
			t.Fatalf("library songs failed: %v", err)
		}
		if strings.TrimSpace(out) != "[]" {
			t.Errorf("expected no songs after reset, got %s", out)
		}
	})
}

func TestLibraryCommands(t *testing.T) {
	runner, output, _ := setupRunner(t)
	if _, err := run(runner, output, "sync", "load"); err != nil {
		t.Fatalf("sync load failed: %v", err)
	}

	tests := []struct {
		name  string
		args  []string
		wants []string
	}{
		{"songs", []string{"library", "songs"}, []string{"Song a", "Song b", "Song c"}},
		{"songs by recently added", []string{"library", "songs", "--sort", "added"}, []string{"Song c"}},
		{"playlists", []string{"library", "playlists"}, []string{"Mix", "p1", "4:00"}},
		{"albums", []string{"library", "albums"}, []string{"Album a", "Artist c"}},
		{"artists", []string{"library", "artists"}, []string{"Artist b"}},
		{"genres", []string{"library", "genres"}, []string{"Genre"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(runner, output, tt.args...)
			if err != nil {
				t.Fatalf("%v failed: %v", tt.args, err)
			}
			for _, want := range tt.wants {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}

	t.Run("unknown sort", func(t *testing.T) {
		_, err := run(runner, output, "library", "songs", "--sort", "loudest")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("export text", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mix.txt")
		if _, err := run(runner, output, "library", "export", "--format", "txt", "--output", path, "p1"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "1. Artist c - Song c") || !strings.Contains(content, "2. Artist a - Song a") {
			t.Errorf("unexpected export:\n%s", content)
		}
	})

	t.Run("export missing playlist", func(t *testing.T) {
		_, err := run(runner, output, "library", "export", "nope")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("export without id", func(t *testing.T) {
		_, err := run(runner, output, "library", "export")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestQueueCommands(t *testing.T) {
	t.Run("preview a playlist", func(t *testing.T) {
		runner, output, _ := setupRunner(t)
		if _, err := run(runner, output, "sync", "load"); err != nil {
			t.Fatalf("sync load failed: %v", err)
		}

		out, err := run(runner, output, "queue", "preview", "--playlist", "p1", "--skip", "1")
		if err != nil {
			t.Fatalf("queue preview failed: %v", err)
		}
		if !strings.Contains(out, "playlist: Mix") {
			t.Errorf("expected playlist source in heading, got %s", out)
		}
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(line, "▶") && !strings.Contains(line, "Song a") {
				t.Errorf("expected second playlist entry to be current, got %s", line)
			}
		}
	})

	t.Run("preview an empty library", func(t *testing.T) {
		runner, output, _ := setupRunner(t)

		_, err := run(runner, output, "queue", "preview")
		if !errors.Is(err, shared.ErrEmptyQueue) {
			t.Errorf("expected ErrEmptyQueue, got %v", err)
		}
	})

	t.Run("recorded plays survive an unreachable remote", func(t *testing.T) {
		runner, output, remote := setupRunner(t)
		if _, err := run(runner, output, "sync", "load"); err != nil {
			t.Fatalf("sync load failed: %v", err)
		}

		if _, err := run(runner, output, "queue", "preview", "--record", "--skip", "1"); err != nil {
			t.Fatalf("queue preview failed: %v", err)
		}
		if got := remote.plays(); len(got) != 0 {
			t.Fatalf("expected no delivered plays, got %v", got)
		}

		remote.accept.Store(true)
		out, err := run(runner, output, "sync", "flush")
		if err != nil {
			t.Fatalf("sync flush failed: %v", err)
		}
		if !strings.Contains(out, "delivered 2 plays") {
			t.Errorf("unexpected output: %s", out)
		}
		got := remote.plays()
		if len(got) != 2 || !slices.Contains(got, "a") || !slices.Contains(got, "b") {
			t.Errorf("expected plays of a and b, got %v", got)
		}
	})
}
