package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/chessmaster/internal/adapter/chesspresenter"
	"github.com/park285/chessmaster/internal/chess"
	"github.com/park285/chessmaster/pkg/chessdto"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client talks to the chess HTTP API.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

// WithMaxConnsPerHost caps pooled connections; n <= 0 keeps the default.
func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.http.MaxConnsPerHost = n
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the attempt count for idempotent calls and websocket
// reconnects.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func gamePath(id, suffix string) string {
	return "/api/game/" + url.PathEscape(id) + suffix
}

// NewGame creates a game on the server.
func (c *Client) NewGame(ctx context.Context) (string, chess.State, error) {
	var resp chessdto.NewGameResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/game/new", nil, &resp, false); err != nil {
		return "", chess.State{}, err
	}
	return resp.GameID, resp.State, nil
}

func (c *Client) State(ctx context.Context, id string) (chess.State, error) {
	var resp chessdto.StateResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, ""), nil, &resp, true); err != nil {
		return chess.State{}, err
	}
	return resp.State, nil
}

// Move submits text. A refused move is a result with Success false, not an
// error.
func (c *Client) Move(ctx context.Context, id, text string) (chess.MoveResult, chess.State, error) {
	var resp chessdto.MoveResponse
	req := chessdto.MoveRequest{Move: text}
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/move"), req, &resp, false); err != nil {
		return chess.MoveResult{}, chess.State{}, err
	}
	res, st := chesspresenter.FromMoveResponse(resp)
	return res, st, nil
}

func (c *Client) Reset(ctx context.Context, id string) (chess.State, error) {
	var resp chessdto.StateResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/reset"), nil, &resp, false); err != nil {
		return chess.State{}, err
	}
	return resp.State, nil
}

func (c *Client) PossibleMoves(ctx context.Context, id string, row, col int) ([]chess.Square, error) {
	q := url.Values{}
	q.Set("row", strconv.Itoa(row))
	q.Set("col", strconv.Itoa(col))
	var resp chessdto.PossibleMovesResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, "/possible-moves?"+q.Encode()), nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.PossibleMoves, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	c.applyHeaders(func(k, v string) { req.Header.Set(k, v) })

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := decodeAPIError(status, resp.Body())
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) applyHeaders(set func(k, v string)) {
	if c.headers == nil {
		return
	}
	for k, v := range c.headers() {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			set(k, v)
		}
	}
}

func decodeAPIError(status int, body []byte) *chessdto.APIError {
	var e chessdto.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return &chessdto.APIError{Status: status, Message: e.Error}
	}
	return &chessdto.APIError{Status: status, Message: truncate(strings.TrimSpace(string(body)), 512)}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
