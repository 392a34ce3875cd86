package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chessmaster/internal/obslog"
	"github.com/park285/chessmaster/pkg/chessdto"
)

// EventHandler receives websocket frames in order.
type EventHandler func(chessdto.StateEvent)

// Watch streams state changes of game id to fn until ctx ends. A dropped
// connection is redialed with backoff up to the retry count; the first frame
// after every (re)connect is the current state. Watch returns nil when ctx is
// cancelled and an *chessdto.APIError when the server refuses the handshake.
func (c *Client) Watch(ctx context.Context, id string, fn EventHandler) error {
	if fn == nil {
		return errors.New("watch: nil handler")
	}
	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	failures := 0
	for {
		conn, err := c.dial(ctx, id)
		if err == nil {
			failures = 0
			err = c.listen(ctx, conn, fn)
		}
		if ctx.Err() != nil {
			return nil
		}
		var apiErr *chessdto.APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return apiErr
		}

		failures++
		if failures >= attempts {
			return err
		}
		obslog.L().Warn("watch_reconnect", zap.String("game_id", id), zap.Int("attempt", failures), zap.Error(err))
		if sleepErr := sleepWithContext(ctx, backoffDuration(failures)); sleepErr != nil {
			return nil
		}
	}
}

func (c *Client) dial(ctx context.Context, id string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.defaultTimeout)
	defer cancel()
	conn, resp, err := websocket.Dial(dialCtx, c.wsURL(gamePath(id, "/ws")), &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.buildHeaders(),
	})
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			var body []byte
			if resp.Body != nil {
				body, _ = io.ReadAll(io.LimitReader(resp.Body, 4096))
				resp.Body.Close()
			}
			return nil, decodeAPIError(resp.StatusCode, body)
		}
		return nil, err
	}
	return conn, nil
}

func (c *Client) listen(ctx context.Context, conn *websocket.Conn, fn EventHandler) error {
	defer conn.Close(websocket.StatusNormalClosure, "close")
	for {
		var ev chessdto.StateEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return err
		}
		fn(ev)
	}
}

func (c *Client) wsURL(path string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + path
}

func (c *Client) buildHeaders() http.Header {
	hdr := http.Header{}
	c.applyHeaders(hdr.Set)
	return hdr
}
