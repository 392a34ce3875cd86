package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chessmaster/internal/adapter/chesspresenter"
	"github.com/park285/chessmaster/internal/session"
	"github.com/park285/chessmaster/pkg/chessdto"
)

const (
	subscriberBuffer = 16
	writeTimeout     = 5 * time.Second
	pingInterval     = 30 * time.Second
)

type subscriber struct {
	gameID string
	// newest version queued so far; guarded by Hub.mu
	last   int64
	events chan chessdto.StateEvent
	// closed once the hub drops a subscriber that fell behind
	dropped chan struct{}
	once    sync.Once
}

func (s *subscriber) drop() { s.once.Do(func() { close(s.dropped) }) }

// Hub fans state changes out to websocket subscribers of each game.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// subscribe registers for events of gameID. The returned func unsubscribes.
func (h *Hub) subscribe(gameID string) (*subscriber, func()) {
	sub := &subscriber{
		gameID:  gameID,
		events:  make(chan chessdto.StateEvent, subscriberBuffer),
		dropped: make(chan struct{}),
	}
	h.mu.Lock()
	if h.closed {
		sub.drop()
	}
	set := h.subs[gameID]
	if set == nil {
		set = make(map[*subscriber]struct{})
		h.subs[gameID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub, func() {
		h.mu.Lock()
		if set := h.subs[gameID]; set != nil {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, gameID)
			}
		}
		h.mu.Unlock()
	}
}

// Publish never blocks: a subscriber whose buffer is full is dropped.
// Listeners may run out of commit order, so a change no newer than what a
// subscriber already has is skipped.
func (h *Hub) Publish(c session.Change) {
	ev := chesspresenter.ToStateEvent(c)
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[c.ID] {
		if ev.Version <= sub.last {
			continue
		}
		sub.last = ev.Version
		select {
		case sub.events <- ev:
		default:
			sub.drop()
		}
	}
}

// Close disconnects every subscriber. http.Server.Shutdown does not wait
// for hijacked connections, so call it first.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, set := range h.subs {
		for sub := range set {
			sub.drop()
		}
	}
}

// seen raises the floor below which changes are skipped for sub.
func (h *Hub) seen(sub *subscriber, version int64) {
	h.mu.Lock()
	if version > sub.last {
		sub.last = version
	}
	h.mu.Unlock()
}

// Subscribers counts live subscriptions for gameID.
func (h *Hub) Subscribers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[gameID])
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	// subscribe first so no change between the snapshot and the feed is lost
	sub, unsubscribe := s.hub.subscribe(id)
	defer unsubscribe()

	snap, err := s.games.Snapshot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.seen(sub, snap.Version)

	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		s.logger.Warn("ws_accept_error", zap.String("game_id", id), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")
	s.logger.Debug("ws_subscribe", zap.String("game_id", id))

	// clients only listen; CloseRead handles control frames and cancels ctx
	ctx := conn.CloseRead(r.Context())
	if err := writeEvent(ctx, conn, chesspresenter.ToStateEvent(snap)); err != nil {
		return
	}
	sent := snap.Version

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-sub.dropped:
			conn.Close(websocket.StatusGoingAway, "dropped")
			return
		case ev := <-sub.events:
			// queued before the snapshot was taken
			if ev.Version <= sent {
				continue
			}
			sent = ev.Version
			if err := writeEvent(ctx, conn, ev); err != nil {
				s.logger.Debug("ws_write_error", zap.String("game_id", id), zap.Error(err))
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{CompressionMode: websocket.CompressionNoContextTakeover}
	for _, o := range s.origins {
		if o == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
	}
	opts.OriginPatterns = hostPatterns(s.origins)
	return opts
}

// hostPatterns turns "https://app.example" into "app.example" as
// OriginPatterns match on the origin host.
func hostPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev chessdto.StateEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
