package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/park285/chessmaster/internal/chess"
	"github.com/park285/chessmaster/internal/msgcat"
	"github.com/park285/chessmaster/internal/obslog"
	"github.com/park285/chessmaster/internal/render"
	"github.com/park285/chessmaster/internal/session"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Games is the part of session.Manager the API needs.
type Games interface {
	Create(ctx context.Context) (string, chess.State, error)
	State(ctx context.Context, id string) (chess.State, error)
	Snapshot(ctx context.Context, id string) (session.Change, error)
	Move(ctx context.Context, id, text string) (chess.MoveResult, chess.State, error)
	Reset(ctx context.Context, id string) (chess.State, error)
	PossibleMoves(ctx context.Context, id string, row, col int) ([]chess.Square, error)
	OnChange(fn session.Listener)
}

// Feed supplies state changes for websocket subscribers.
type Feed interface {
	OnChange(fn session.Listener)
}

// Options tunes a Server. Zero values pick defaults.
type Options struct {
	// Feed replaces games as the event source, e.g. a session.Relay that
	// also carries changes made on other replicas.
	Feed           Feed
	Catalog        *msgcat.Catalog
	Renderer       render.BoardRenderer
	Logger         *zap.Logger
	AllowedOrigins []string
}

type Server struct {
	games    Games
	catalog  *msgcat.Catalog
	renderer render.BoardRenderer
	logger   *zap.Logger
	origins  []string
	hub      *Hub
	router   *mux.Router
	handler  http.Handler
}

// New builds the API and subscribes its websocket hub to games.
func New(games Games, opts Options) *Server {
	s := &Server{
		games:    games,
		catalog:  opts.Catalog,
		renderer: opts.Renderer,
		logger:   opts.Logger,
		origins:  opts.AllowedOrigins,
		hub:      NewHub(),
		router:   mux.NewRouter(),
	}
	if s.catalog == nil {
		s.catalog = msgcat.Default()
	}
	if s.renderer == nil {
		s.renderer = render.NewBoardRenderer(s.catalog)
	}
	if s.logger == nil {
		s.logger = obslog.L()
	}
	var feed Feed = games
	if opts.Feed != nil {
		feed = opts.Feed
	}
	feed.OnChange(s.hub.Publish)
	s.routes()
	s.handler = s.wrap(s.router)
	return s
}

func (s *Server) routes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody(http.StatusText(http.StatusNotFound)))
	})
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/game").Subrouter()
	api.HandleFunc("/new", s.handleNew).Methods(http.MethodPost)
	api.HandleFunc("/{id}", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/{id}/move", s.handleMove).Methods(http.MethodPost)
	api.HandleFunc("/{id}/reset", s.handleReset).Methods(http.MethodPost)
	api.HandleFunc("/{id}/possible-moves", s.handlePossibleMoves).Methods(http.MethodGet)
	api.HandleFunc("/{id}/board.png", s.handleBoard).Methods(http.MethodGet)
	api.HandleFunc("/{id}/ws", s.handleWatch).Methods(http.MethodGet)
}

// Handler returns the router wrapped in recovery, CORS and access logging.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) wrap(h http.Handler) http.Handler {
	stdlog := zap.NewStdLog(s.logger.Named("http"))
	if len(s.origins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.origins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(h)
	}
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(stdlog), handlers.PrintRecoveryStack(true))(h)
	return handlers.CombinedLoggingHandler(stdlog.Writer(), h)
}

// Hub exposes the websocket fan-out, mostly for tests and shutdown.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
