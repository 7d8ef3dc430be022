package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/desertthunder/relisten/internal/shared"
)

func TestNamespaces(t *testing.T) {
	ctx := context.Background()

	newNamespaces := func(t *testing.T) *Namespaces {
		dir := t.TempDir()
		n := NewNamespaces(shared.DatabaseConfig{}, func(user string) string {
			return filepath.Join(dir, user+".db")
		}, nil)
		t.Cleanup(func() { n.Close() })
		return n
	}

	t.Run("Switch opens the user store", func(t *testing.T) {
		n := newNamespaces(t)

		store, err := n.Switch(ctx, "ada")
		if err != nil {
			t.Fatalf("failed to switch: %v", err)
		}

		current, user := n.Current()
		if current != store || user != "ada" {
			t.Errorf("expected ada to be current, got %q", user)
		}

		again, err := n.Switch(ctx, "ada")
		if err != nil || again != store {
			t.Errorf("switching to the same user should reuse the store")
		}
	})

	t.Run("Switch closes previous namespace first", func(t *testing.T) {
		n := newNamespaces(t)

		first, _ := n.Switch(ctx, "ada")
		first.Put(ctx, Songs, Document{Key: "x", Value: json.RawMessage(`{}`)})

		var closed []string
		n.On(EventClose, func(e NamespaceEvent) {
			closed = append(closed, e.User)
			if _, err := e.Store.Count(ctx, Songs); err != nil {
				t.Errorf("store should still be usable inside close handlers: %v", err)
			}
		})

		second, err := n.Switch(ctx, "grace")
		if err != nil {
			t.Fatalf("failed to switch: %v", err)
		}

		if len(closed) != 1 || closed[0] != "ada" {
			t.Errorf("expected close event for ada, got %v", closed)
		}

		if _, err := first.GetAll(ctx, Songs); !errors.Is(err, shared.ErrStorageUnavailable) {
			t.Errorf("previous store should be closed, got %v", err)
		}

		if c, _ := second.Count(ctx, Songs); c != 0 {
			t.Errorf("new namespace must not see other users' data, found %d songs", c)
		}
	})

	t.Run("Open event", func(t *testing.T) {
		n := newNamespaces(t)
		var opened string
		off := n.On(EventOpen, func(e NamespaceEvent) { opened = e.User })
		defer off()

		n.Switch(ctx, "linus")
		if opened != "linus" {
			t.Errorf("expected open event for linus, got %q", opened)
		}
	})

	t.Run("Rejects path-like user ids", func(t *testing.T) {
		n := newNamespaces(t)
		for _, user := range []string{"", "..", "a/b", `a\b`} {
			if _, err := n.Switch(ctx, user); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for %q, got %v", user, err)
			}
		}
	})

	t.Run("Close", func(t *testing.T) {
		n := newNamespaces(t)
		n.Switch(ctx, "ada")
		if err := n.Close(); err != nil {
			t.Fatalf("failed to close: %v", err)
		}
		if store, _ := n.Current(); store != nil {
			t.Error("expected no current namespace after close")
		}
		if err := n.Close(); err != nil {
			t.Errorf("closing twice should be a no-op: %v", err)
		}
	})
}
