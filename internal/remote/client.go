package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
	"golang.org/x/oauth2"
)

const apiPrefix = "/v1"

// Client performs authenticated calls against the library server.
//
// Change streams use a separate client without a timeout since they stay open indefinitely.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	reconnect    float64
	logger       *log.Logger
}

// NewClient creates a client for cfg.Remote. A non-empty token is attached to every request.
func NewClient(cfg *shared.Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	transport := http.DefaultTransport
	if cfg.Remote.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Remote.Token}),
			Base:   http.DefaultTransport,
		}
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.Remote.BaseURL, "/"),
		httpClient:   &http.Client{Transport: transport, Timeout: cfg.RequestTimeout()},
		streamClient: &http.Client{Transport: transport},
		reconnect:    cfg.Remote.ReconnectPerSecond,
		logger:       logger.With("component", "remote"),
	}
}

// BaseURL returns the server root.
func (c *Client) BaseURL() string { return c.baseURL }

// Query fetches every non-deleted item of model.
func Query[T models.Model](ctx context.Context, c *Client, model string) ([]T, error) {
	var items []T
	path := fmt.Sprintf("%s/%s?deleted=false", apiPrefix, url.PathEscape(model))
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type playedRequest struct {
	PlayedAt int64 `json:"playedAt"`
}

// RecordPlay reports that songID started playing at playedAt.
// The server increments the play count and sets lastPlayed.
func (c *Client) RecordPlay(ctx context.Context, songID string, playedAt time.Time) error {
	if songID == "" {
		return fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}
	path := fmt.Sprintf("%s/songs/%s/played", apiPrefix, url.PathEscape(songID))
	return c.do(ctx, http.MethodPost, path, playedRequest{PlayedAt: models.Millis(playedAt)}, nil)
}

type urlResponse struct {
	URL string `json:"url"`
}

// ResolveURL returns a playable URL for song, preferring its stored download URL.
func (c *Client) ResolveURL(ctx context.Context, song models.Song) (string, error) {
	if song.DownloadURL != "" {
		return song.DownloadURL, nil
	}

	var resp urlResponse
	path := fmt.Sprintf("%s/songs/%s/url", apiPrefix, url.PathEscape(song.ID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("%w: %s: %w", shared.ErrSourceResolution, song.ID, err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("%w: %s: empty url", shared.ErrSourceResolution, song.ID)
	}
	return resp.URL, nil
}

// do performs a request with an optional JSON body and decodes a JSON result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", shared.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(msg))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, resp.Request.URL.Path)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", shared.ErrMissingCredentials, resp.StatusCode, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrRemoteUnavailable, resp.StatusCode, detail)
	}
}
