package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := shared.DefaultConfig()
	cfg.Remote.BaseURL = server.URL + "/"
	cfg.Remote.Token = "secret"
	cfg.Remote.ReconnectPerSecond = 100
	return NewClient(cfg, nil)
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Query", func(t *testing.T) {
		t.Run("Fetches non-deleted items with bearer token", func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/v1/songs" {
					t.Errorf("expected path '/v1/songs', got %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("deleted"); got != "false" {
					t.Errorf("expected deleted=false, got %q", got)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer secret" {
					t.Errorf("expected bearer token, got %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`[{"id":"a","title":"One","year":1999,"updatedAt":10},{"id":"b","year":"2001","updatedAt":20}]`))
			}))

			songs, err := Query[models.Song](ctx, c, "songs")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(songs) != 2 {
				t.Fatalf("expected 2 songs, got %d", len(songs))
			}
			if songs[0].Title != "One" || songs[0].Year != "1999" || songs[1].Year != "2001" {
				t.Errorf("unexpected songs: %+v", songs)
			}
		})

		t.Run("Maps status codes to errors", func(t *testing.T) {
			tests := []struct {
				name   string
				status int
				want   error
			}{
				{"Not Found", http.StatusNotFound, shared.ErrNotFound},
				{"Unauthorized", http.StatusUnauthorized, shared.ErrMissingCredentials},
				{"Server Error", http.StatusInternalServerError, shared.ErrRemoteUnavailable},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						http.Error(w, "nope", tt.status)
					}))

					_, err := Query[models.Song](ctx, c, "songs")
					if !errors.Is(err, tt.want) {
						t.Errorf("expected %v, got %v", tt.want, err)
					}
				})
			}
		})

		t.Run("Unreachable server", func(t *testing.T) {
			server := httptest.NewServer(http.NotFoundHandler())
			server.Close()

			cfg := shared.DefaultConfig()
			cfg.Remote.BaseURL = server.URL
			_, err := Query[models.Song](ctx, NewClient(cfg, nil), "songs")
			if !errors.Is(err, shared.ErrRemoteUnavailable) {
				t.Errorf("expected ErrRemoteUnavailable, got %v", err)
			}
		})
	})

	t.Run("RecordPlay", func(t *testing.T) {
		t.Run("Posts play time", func(t *testing.T) {
			played := time.UnixMilli(1_700_000_000_000)
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/v1/songs/a/played" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				var body playedRequest
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("failed to decode body: %v", err)
				}
				if body.PlayedAt != played.UnixMilli() {
					t.Errorf("expected playedAt %d, got %d", played.UnixMilli(), body.PlayedAt)
				}
				w.WriteHeader(http.StatusNoContent)
			}))

			if err := c.RecordPlay(ctx, "a", played); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("Requires song id", func(t *testing.T) {
			c := newTestClient(t, http.NotFoundHandler())
			if err := c.RecordPlay(ctx, "", time.Now()); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("ResolveURL", func(t *testing.T) {
		t.Run("Prefers download URL", func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("server should not be called")
			}))

			got, err := c.ResolveURL(ctx, models.Song{ID: "a", DownloadURL: "https://cdn/a.mp3"})
			if err != nil || got != "https://cdn/a.mp3" {
				t.Errorf("expected stored URL, got %q (%v)", got, err)
			}
		})

		t.Run("Asks server otherwise", func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/songs/a/url" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(`{"url":"https://cdn/signed"}`))
			}))

			got, err := c.ResolveURL(ctx, models.Song{ID: "a"})
			if err != nil || got != "https://cdn/signed" {
				t.Errorf("expected signed URL, got %q (%v)", got, err)
			}
		})

		t.Run("Failures are resolution errors", func(t *testing.T) {
			tests := []struct {
				name    string
				handler http.HandlerFunc
			}{
				{"Empty URL", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"url":""}`)) }},
				{"Missing Song", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					c := newTestClient(t, tt.handler)
					_, err := c.ResolveURL(ctx, models.Song{ID: "a"})
					if !errors.Is(err, shared.ErrSourceResolution) {
						t.Errorf("expected ErrSourceResolution, got %v", err)
					}
				})
			}
		})
	})
}
