package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/replica"
	"github.com/desertthunder/relisten/internal/repositories"
	"github.com/desertthunder/relisten/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// maxRedials is the number of consecutive failed dials before a stream gives up.
	maxRedials = 5
	readLimit  = 16 << 20
	bufferSize = 16
)

type wireChange struct {
	Type string          `json:"type"`
	Item json.RawMessage `json:"item"`
}

type frame struct {
	Changes []wireChange `json:"changes"`
}

// Source streams one collection from the server. It implements [replica.Source].
type Source[T models.Model] struct {
	client *Client
	model  string
	limit  rate.Limit
}

// NewSource creates a source for model.
func NewSource[T models.Model](c *Client, model string) *Source[T] {
	limit := rate.Limit(c.reconnect)
	if c.reconnect <= 0 {
		limit = rate.Limit(0.5)
	}
	return &Source[T]{client: c, model: model, limit: limit}
}

// QueryInitial fetches every non-deleted item.
func (s *Source[T]) QueryInitial(ctx context.Context) ([]T, error) {
	return Query[T](ctx, s.client, s.model)
}

// Subscribe dials the change stream for items updated at or after since.
// The first dial is synchronous so an unreachable server is reported immediately.
func (s *Source[T]) Subscribe(ctx context.Context, since int64) (replica.Stream[T], error) {
	conn, err := s.dial(ctx, since)
	if err != nil {
		return nil, err
	}

	stream := replica.NewChanStream[T](bufferSize)
	go s.pump(ctx, stream, conn, since)
	return stream, nil
}

func (s *Source[T]) pump(ctx context.Context, stream *replica.ChanStream[T], conn *websocket.Conn, since int64) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stream.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := s.client.logger.With("model", s.model)
	limiter := rate.NewLimiter(s.limit, 1)

	for {
		highest, err := s.read(ctx, conn, stream, since)
		conn.CloseNow()
		since = max(since, highest)

		if ctx.Err() != nil || closed(stream) {
			stream.Close()
			return
		}
		logger.Warn("change stream dropped, reconnecting", "error", err, "since", since)

		conn = nil
		for failures := 0; conn == nil; {
			if err := limiter.Wait(ctx); err != nil {
				stream.Close()
				return
			}

			conn, err = s.dial(ctx, since)
			if err != nil {
				failures++
				logger.Warn("redial failed", "attempt", failures, "error", err)
				if failures >= maxRedials {
					stream.Fail(err)
					return
				}
			}
		}
		logger.Info("change stream resumed", "since", since)
	}
}

func closed[T models.Model](stream *replica.ChanStream[T]) bool {
	select {
	case <-stream.Done():
		return true
	default:
		return false
	}
}

// read forwards frames until the connection fails and returns the highest updatedAt sent.
func (s *Source[T]) read(ctx context.Context, conn *websocket.Conn, stream *replica.ChanStream[T], since int64) (int64, error) {
	highest := since
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return highest, err
		}

		batch, latest := s.decode(f)
		if len(batch) == 0 {
			continue
		}
		if err := stream.Send(ctx, batch); err != nil {
			return highest, err
		}
		highest = max(highest, latest)
	}
}

// decode converts a frame into a batch, skipping changes that cannot be parsed.
// Removed notifications do not count toward the returned timestamp.
func (s *Source[T]) decode(f frame) ([]replica.Change[T], int64) {
	batch := make([]replica.Change[T], 0, len(f.Changes))
	var latest int64

	for _, wc := range f.Changes {
		kind, ok := replica.ParseChangeType(wc.Type)
		if !ok {
			s.client.logger.Warn("unknown change type", "model", s.model, "type", wc.Type)
			continue
		}

		var item T
		if err := json.Unmarshal(wc.Item, &item); err != nil {
			s.client.logger.Warn("undecodable change", "model", s.model, "error", err)
			continue
		}

		batch = append(batch, replica.Change[T]{Type: kind, Item: item})
		if kind != replica.Removed {
			latest = max(latest, item.Timestamp())
		}
	}
	return batch, latest
}

func (s *Source[T]) dial(ctx context.Context, since int64) (*websocket.Conn, error) {
	u := fmt.Sprintf("%s%s/%s/changes?since=%d", s.client.baseURL, apiPrefix, url.PathEscape(s.model), since)

	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPClient: s.client.streamClient})
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s changes: %w", shared.ErrRemoteUnavailable, s.model, err)
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

// Register adds a model fed by c for every collection name to e.
func Register(e *replica.Engine, c *Client, names ...string) error {
	for _, name := range names {
		switch name {
		case repositories.Songs:
			replica.Register[models.Song](e, name, NewSource[models.Song](c, name))
		case repositories.Playlists:
			replica.Register[models.Playlist](e, name, NewSource[models.Playlist](c, name))
		case repositories.Albums:
			replica.Register[models.Album](e, name, NewSource[models.Album](c, name))
		case repositories.Artists:
			replica.Register[models.Artist](e, name, NewSource[models.Artist](c, name))
		default:
			return fmt.Errorf("%w: %s", shared.ErrUnknownCollection, name)
		}
	}
	return nil
}
