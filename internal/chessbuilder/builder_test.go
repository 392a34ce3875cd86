package chessbuilder

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/chessmaster/internal/config"
	"github.com/park285/chessmaster/internal/session"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{HTTPAddr: ":0", StoreBackend: config.BackendMemory, GameTTL: time.Hour}
}

func TestNewMemory(t *testing.T) {
	deps, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer deps.Close()
	if _, ok := deps.Store.(*session.MemoryStore); !ok {
		t.Fatalf("store = %T", deps.Store)
	}
	if deps.Repo != nil || deps.Catalog == nil || deps.Renderer == nil {
		t.Fatalf("deps = %+v", deps)
	}

	ctx := context.Background()
	id, _, err := deps.Manager.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res, _, err := deps.Manager.Move(ctx, id, "e2e4"); err != nil || !res.Success {
		t.Fatalf("Move = %+v %v", res, err)
	}
}

func TestOpenStoreBackends(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	tests := []struct {
		name string
		cfg  func(*config.AppConfig)
		want string
	}{
		{"memory", func(*config.AppConfig) {}, "*session.MemoryStore"},
		{"redis", func(c *config.AppConfig) {
			c.StoreBackend = config.BackendRedis
			c.RedisURL = fmt.Sprintf("redis://%s/0", mr.Addr())
		}, "*session.RedisStore"},
		{"badger", func(c *config.AppConfig) {
			c.StoreBackend = config.BackendBadger
			c.BadgerDir = t.TempDir()
		}, "*session.BadgerStore"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.cfg(cfg)
			s, err := OpenStore(context.Background(), cfg)
			if err != nil {
				t.Fatalf("OpenStore: %v", err)
			}
			defer s.Close()
			if got := fmt.Sprintf("%T", s); got != tt.want {
				t.Fatalf("store = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOpenStoreErrors(t *testing.T) {
	cfg := baseConfig()
	cfg.StoreBackend = "etcd"
	if _, err := OpenStore(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown backend")
	}

	cfg = baseConfig()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisURL = "redis://127.0.0.1:1/0"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := OpenStore(ctx, cfg); err == nil {
		t.Fatalf("expected error for unreachable redis")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	cfg := baseConfig()
	cfg.MessagesDir = t.TempDir() + "/missing"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing messages dir")
	}
}

func TestCloseNil(t *testing.T) {
	var d *Deps
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewRedisWiresRelay(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	cfg := baseConfig()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisURL = fmt.Sprintf("redis://%s/0", mr.Addr())

	deps, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer deps.Close()
	if deps.Relay == nil {
		t.Fatalf("redis backend without relay")
	}
	if deps.Feed() != deps.Relay {
		t.Fatalf("feed should be the relay")
	}

	memDeps, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("New memory: %v", err)
	}
	defer memDeps.Close()
	if memDeps.Relay != nil || memDeps.Feed() != memDeps.Manager {
		t.Fatalf("memory backend should feed from the manager")
	}
}
