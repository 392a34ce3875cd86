package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/chessmaster/internal/config"
	"github.com/park285/chessmaster/internal/msgcat"
	"github.com/park285/chessmaster/internal/render"
	"github.com/park285/chessmaster/internal/session"
)

// Deps is everything the binaries need, built from one AppConfig.
type Deps struct {
	Manager *session.Manager
	Store   session.Store
	Repo    *session.Repository
	// Relay is set for the redis backend; run it to share changes between
	// replicas.
	Relay    *session.Relay
	Catalog  *msgcat.Catalog
	Renderer render.BoardRenderer
}

// New opens the configured store, the optional Postgres archive and the
// message catalog. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mgr := session.NewManager(store)
	deps := &Deps{
		Manager:  mgr,
		Store:    store,
		Catalog:  catalog,
		Renderer: render.NewBoardRenderer(catalog),
	}

	if rs, ok := store.(*session.RedisStore); ok {
		deps.Relay = session.NewRelay(rs.Client())
		mgr.OnChange(deps.Relay.Forward)
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := session.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close()
			_ = deps.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		deps.Repo = repo
		mgr.AttachArchive(repo)
	}

	logger.Info("chess_deps_ready",
		zap.String("store", cfg.StoreBackend),
		zap.Bool("archive", deps.Repo != nil),
		zap.Duration("game_ttl", cfg.GameTTL),
	)
	return deps, nil
}

// OpenStore returns the session store selected by cfg.StoreBackend.
func OpenStore(ctx context.Context, cfg *config.AppConfig) (session.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		return session.NewMemoryStore(cfg.GameTTL), nil
	case config.BackendRedis:
		s, err := session.NewRedisStore(ctx, cfg.RedisURL, cfg.GameTTL)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		return s, nil
	case config.BackendBadger:
		s, err := session.OpenBadgerStore(cfg.BadgerDir, cfg.GameTTL)
		if err != nil {
			return nil, fmt.Errorf("init badger store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Feed is the event source for websocket subscribers.
func (d *Deps) Feed() interface{ OnChange(session.Listener) } {
	if d.Relay != nil {
		return d.Relay
	}
	return d.Manager
}

// Close releases the store and the archive.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Manager != nil {
		errs = append(errs, d.Manager.Close())
	}
	if d.Repo != nil {
		errs = append(errs, d.Repo.Close())
	}
	return errors.Join(errs...)
}
