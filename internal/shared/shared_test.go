package shared

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"zero", 0, "0:00"},
		{"seconds", 7 * time.Second, "0:07"},
		{"minutes", 3*time.Minute + 25*time.Second, "3:25"},
		{"rounds", 59*time.Second + 600*time.Millisecond, "1:00"},
		{"hours", time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{"negative", -time.Second, "0:00"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.in); got != tt.want {
				t.Errorf("FormatDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes to writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "model", "songs")
		logger.Info("loaded")

		out := buf.String()
		if !strings.Contains(out, "loaded") || !strings.Contains(out, "model=songs") {
			t.Errorf("unexpected log output %q", out)
		}
	})

	t.Run("ConfigureLogger applies level", func(t *testing.T) {
		logger, closer, err := ConfigureLogger(LogConfig{Level: "warn"})
		if err != nil {
			t.Fatalf("failed to configure logger: %v", err)
		}
		defer closer.Close()

		if logger.GetLevel() != log.WarnLevel {
			t.Errorf("expected warn level, got %v", logger.GetLevel())
		}
	})

	t.Run("ConfigureLogger rejects bad level", func(t *testing.T) {
		if _, _, err := ConfigureLogger(LogConfig{Level: "chatty"}); err == nil {
			t.Error("expected error for unknown level")
		}
	})

	t.Run("LogWriter rotates into file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "relisten.log")
		w := LogWriter(LogConfig{File: path, MaxSizeMB: 1})
		defer w.Close()

		if _, err := w.Write([]byte("hello\n")); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("ids should be unique")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %q", a)
	}
}
