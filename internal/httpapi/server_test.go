package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/chessmaster/internal/chess"
	"github.com/park285/chessmaster/internal/session"
	"github.com/park285/chessmaster/pkg/chessdto"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *session.Manager) {
	t.Helper()
	m := session.NewManager(session.NewMemoryStore(time.Hour))
	srv := New(m, opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
		_ = m.Close()
	})
	return ts, m
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func decodeInto(t *testing.T, raw []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func newGame(t *testing.T, base string) string {
	t.Helper()
	resp, raw := do(t, http.MethodPost, base+"/api/game/new", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new game status %d: %s", resp.StatusCode, raw)
	}
	var out chessdto.NewGameResponse
	decodeInto(t, raw, &out)
	if out.GameID == "" {
		t.Fatalf("empty game id: %s", raw)
	}
	return out.GameID
}

func wantError(t *testing.T, resp *http.Response, raw []byte, status int, msg string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, status, raw)
	}
	var e chessdto.ErrorResponse
	decodeInto(t, raw, &e)
	if e.Error != msg {
		t.Fatalf("error = %q, want %q", e.Error, msg)
	}
}

func TestNewGameAndState(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp, raw := do(t, http.MethodPost, ts.URL+"/api/game/new", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type %q", ct)
	}
	var created chessdto.NewGameResponse
	decodeInto(t, raw, &created)
	if created.State.CurrentPlayer != chess.White || created.State.GameOver || created.State.Winner != nil {
		t.Fatalf("fresh state = %+v", created.State)
	}
	if !bytes.Contains(raw, []byte(`"winner":null`)) {
		t.Fatalf("winner should be null: %s", raw)
	}

	resp, raw = do(t, http.MethodGet, ts.URL+"/api/game/"+created.GameID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state status %d", resp.StatusCode)
	}
	var got chessdto.StateResponse
	decodeInto(t, raw, &got)
	if k := got.State.Board[7][4]; k == nil || k.Char != "K" {
		t.Fatalf("e1 = %+v", k)
	}
}

func TestUnknownGame(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	base := ts.URL + "/api/game/missing"
	for _, tc := range []struct {
		method, path, body string
	}{
		{http.MethodGet, "", ""},
		{http.MethodPost, "/move", `{"move":"e2e4"}`},
		{http.MethodPost, "/move", ""},
		{http.MethodPost, "/reset", ""},
		{http.MethodGet, "/possible-moves?row=6&col=4", ""},
		{http.MethodGet, "/possible-moves", ""},
		{http.MethodGet, "/board.png", ""},
		{http.MethodGet, "/ws", ""},
	} {
		resp, raw := do(t, tc.method, base+tc.path, tc.body)
		wantError(t, resp, raw, http.StatusNotFound, "Game not found")
	}
}

func TestMove(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	id := newGame(t, ts.URL)
	url := ts.URL + "/api/game/" + id + "/move"

	resp, raw := do(t, http.MethodPost, url, "")
	wantError(t, resp, raw, http.StatusBadRequest, "Move is required")
	resp, raw = do(t, http.MethodPost, url, `{"move":""}`)
	wantError(t, resp, raw, http.StatusBadRequest, "Move is required")
	resp, raw = do(t, http.MethodPost, url, `{"move":`)
	wantError(t, resp, raw, http.StatusBadRequest, "Invalid request body")

	// only an empty move is missing; blanks are judged as move text
	resp, raw = do(t, http.MethodPost, url, `{"move":" "}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("blank move status %d: %s", resp.StatusCode, raw)
	}
	var blank chessdto.MoveResponse
	decodeInto(t, raw, &blank)
	if blank.Success || blank.Message != chess.ReasonBadFormat.Error() {
		t.Fatalf("blank move = %+v", blank)
	}

	resp, raw = do(t, http.MethodPost, url, `{"move":"e2e5"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refused move status %d", resp.StatusCode)
	}
	var refused chessdto.MoveResponse
	decodeInto(t, raw, &refused)
	if refused.Success || refused.Message != chess.ReasonPawnMove.Error() || refused.State.CurrentPlayer != chess.White {
		t.Fatalf("refused = %+v", refused)
	}

	resp, raw = do(t, http.MethodPost, url, `{"move":"e2 e4"}`)
	var ok chessdto.MoveResponse
	decodeInto(t, raw, &ok)
	if resp.StatusCode != http.StatusOK || !ok.Success || ok.Message != "Move made: e2 to e4" {
		t.Fatalf("move = %d %+v", resp.StatusCode, ok)
	}
	if ok.State.CurrentPlayer != chess.Black || ok.State.Board[4][4] == nil || ok.State.Board[6][4] != nil {
		t.Fatalf("state after e2e4 = %+v", ok.State)
	}
}

func TestMoveBodyLimit(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	id := newGame(t, ts.URL)
	body := `{"move":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	resp, raw := do(t, http.MethodPost, ts.URL+"/api/game/"+id+"/move", body)
	wantError(t, resp, raw, http.StatusBadRequest, "Invalid request body")
}

func TestPossibleMoves(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	id := newGame(t, ts.URL)
	url := ts.URL + "/api/game/" + id + "/possible-moves"

	resp, raw := do(t, http.MethodGet, url, "")
	wantError(t, resp, raw, http.StatusBadRequest, "Row and col parameters are required")
	resp, raw = do(t, http.MethodGet, url+"?row=6", "")
	wantError(t, resp, raw, http.StatusBadRequest, "Row and col parameters are required")
	resp, raw = do(t, http.MethodGet, url+"?row=six&col=4", "")
	wantError(t, resp, raw, http.StatusBadRequest, "Row and col must be integers")

	resp, raw = do(t, http.MethodGet, url+"?row=6&col=4", "")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(raw)) != `{"possibleMoves":[[5,4],[4,4]]}` {
		t.Fatalf("e2 moves = %d %s", resp.StatusCode, raw)
	}
	resp, raw = do(t, http.MethodGet, url+"?row=9&col=-1", "")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(raw)) != `{"possibleMoves":[]}` {
		t.Fatalf("off-board moves = %d %s", resp.StatusCode, raw)
	}
	// black pieces belong to the side not on move
	_, raw = do(t, http.MethodGet, url+"?row=1&col=4", "")
	if strings.TrimSpace(string(raw)) != `{"possibleMoves":[]}` {
		t.Fatalf("e7 moves on white's turn = %s", raw)
	}
}

func TestReset(t *testing.T) {
	ts, m := newTestServer(t, Options{})
	id := newGame(t, ts.URL)
	do(t, http.MethodPost, ts.URL+"/api/game/"+id+"/move", `{"move":"e2e4"}`)

	resp, raw := do(t, http.MethodPost, ts.URL+"/api/game/"+id+"/reset", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status %d", resp.StatusCode)
	}
	var out chessdto.StateResponse
	decodeInto(t, raw, &out)
	if out.State.CurrentPlayer != chess.White || out.State.Board[6][4] == nil || out.State.Board[4][4] != nil {
		t.Fatalf("reset state = %+v", out.State)
	}
	st, err := m.State(context.Background(), id)
	if err != nil || st.Board[4][4] != nil {
		t.Fatalf("stored state not reset: %v", err)
	}
}

func TestBoardPNG(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	id := newGame(t, ts.URL)
	for _, q := range []string{"", "?flip=1", "?row=6&col=4", "?row=6&col=4&flip=true"} {
		resp, raw := do(t, http.MethodGet, ts.URL+"/api/game/"+id+"/board.png"+q, "")
		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
			t.Fatalf("board%s = %d %s", q, resp.StatusCode, resp.Header.Get("Content-Type"))
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("decode board%s: %v", q, err)
		}
		if cfg.Width != 568 || cfg.Height != 600 {
			t.Fatalf("board%s is %dx%d", q, cfg.Width, cfg.Height)
		}
	}
	resp, raw := do(t, http.MethodGet, ts.URL+"/api/game/"+id+"/board.png?row=x&col=1", "")
	wantError(t, resp, raw, http.StatusBadRequest, "Row and col must be integers")
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp, raw := do(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || string(raw) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, raw)
	}
	resp, _ = do(t, http.MethodGet, ts.URL+"/nowhere", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown route = %d", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	ts, _ := newTestServer(t, Options{AllowedOrigins: []string{"http://board.example"}})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("Origin", "http://board.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://board.example" {
		t.Fatalf("allow origin = %q", got)
	}
}

// stubGames fails every call with err, or panics when err is nil.
type stubGames struct{ err error }

func (s stubGames) fail() error {
	if s.err == nil {
		panic("boom")
	}
	return s.err
}

func (s stubGames) Create(context.Context) (string, chess.State, error) {
	return "", chess.State{}, s.fail()
}
func (s stubGames) State(context.Context, string) (chess.State, error) {
	return chess.State{}, s.fail()
}
func (s stubGames) Snapshot(context.Context, string) (session.Change, error) {
	return session.Change{}, s.fail()
}
func (s stubGames) Move(context.Context, string, string) (chess.MoveResult, chess.State, error) {
	return chess.MoveResult{}, chess.State{}, s.fail()
}
func (s stubGames) Reset(context.Context, string) (chess.State, error) {
	return chess.State{}, s.fail()
}
func (s stubGames) PossibleMoves(context.Context, string, int, int) ([]chess.Square, error) {
	return nil, s.fail()
}
func (s stubGames) OnChange(session.Listener) {}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"conflict", session.ErrConflict, http.StatusConflict, "Game was updated concurrently, try again"},
		{"wrapped not found", errors.Join(errors.New("redis"), session.ErrGameNotFound), http.StatusNotFound, "Game not found"},
		{"corrupt", session.ErrCorrupt, http.StatusInternalServerError, "Internal server error"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(New(stubGames{err: tt.err}, Options{}).Handler())
			defer ts.Close()
			resp, raw := do(t, http.MethodPost, ts.URL+"/api/game/x/move", `{"move":"e2e4"}`)
			wantError(t, resp, raw, tt.status, tt.msg)
		})
	}
}

func TestRecoversFromPanics(t *testing.T) {
	ts := httptest.NewServer(New(stubGames{}, Options{}).Handler())
	defer ts.Close()
	resp, _ := do(t, http.MethodGet, ts.URL+"/api/game/x", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}
