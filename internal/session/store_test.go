package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := NewRedisStore(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadgerStore("", time.Hour)
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func allStores() []storeFactory {
	return []storeFactory{
		{"memory", func(t *testing.T) Store { return NewMemoryStore(time.Hour) }},
		{"redis", func(t *testing.T) Store { _, s := newTestRedis(t); return s }},
		{"badger", func(t *testing.T) Store { return newTestBadger(t) }},
	}
}

func newRecord(id string) *Record {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &Record{ID: id, Moves: []string{}, Status: StatusActive, CreatedAt: now, UpdatedAt: now}
}

func TestStoreContract(t *testing.T) {
	for _, f := range allStores() {
		f := f
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)

			if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrGameNotFound) {
				t.Fatalf("Load missing = %v", err)
			}
			if _, err := s.Update(ctx, "missing", func(*Record) error { return nil }); !errors.Is(err, ErrGameNotFound) {
				t.Fatalf("Update missing = %v", err)
			}

			rec := newRecord("g1")
			if err := s.Create(ctx, rec); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := s.Create(ctx, rec); !errors.Is(err, ErrGameExists) {
				t.Fatalf("Create twice = %v", err)
			}

			got, err := s.Update(ctx, "g1", func(r *Record) error {
				r.Moves = append(r.Moves, "e2e4")
				return nil
			})
			if err != nil || len(got.Moves) != 1 || got.Moves[0] != "e2e4" {
				t.Fatalf("Update = %+v, %v", got, err)
			}

			boom := errors.New("boom")
			if _, err := s.Update(ctx, "g1", func(r *Record) error {
				r.Moves = append(r.Moves, "e7e5")
				return boom
			}); !errors.Is(err, boom) {
				t.Fatalf("Update with failing fn = %v", err)
			}

			loaded, err := s.Load(ctx, "g1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(loaded.Moves) != 1 || loaded.Status != StatusActive || !loaded.CreatedAt.Equal(rec.CreatedAt) {
				t.Fatalf("aborted update leaked: %+v", loaded)
			}

			loaded.Moves[0] = "zzzz"
			again, _ := s.Load(ctx, "g1")
			if again.Moves[0] != "e2e4" {
				t.Fatalf("Load returned a shared record")
			}
		})
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	for _, f := range allStores() {
		f := f
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			if err := s.Create(ctx, newRecord("g1")); err != nil {
				t.Fatalf("Create: %v", err)
			}

			const writers = 8
			var wg sync.WaitGroup
			var mu sync.Mutex
			var applied []string
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					tag := fmt.Sprintf("w%d", i)
					for {
						_, err := s.Update(ctx, "g1", func(r *Record) error {
							r.Moves = append(r.Moves, tag)
							return nil
						})
						if errors.Is(err, ErrConflict) {
							continue
						}
						if err != nil {
							t.Errorf("Update: %v", err)
							return
						}
						mu.Lock()
						applied = append(applied, tag)
						mu.Unlock()
						return
					}
				}(i)
			}
			wg.Wait()

			rec, err := s.Load(ctx, "g1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			got := append([]string(nil), rec.Moves...)
			sort.Strings(got)
			sort.Strings(applied)
			if len(got) != writers || fmt.Sprint(got) != fmt.Sprint(applied) {
				t.Fatalf("lost updates: stored %v, applied %v", got, applied)
			}
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()
	if err := s.Create(ctx, newRecord("g1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	now = now.Add(59 * time.Second)
	if _, err := s.Load(ctx, "g1"); err != nil {
		t.Fatalf("Load before expiry: %v", err)
	}
	now = now.Add(time.Second)
	if _, err := s.Load(ctx, "g1"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("Load after expiry = %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d", s.Len())
	}
	if err := s.Create(ctx, newRecord("g1")); err != nil {
		t.Fatalf("Create after expiry: %v", err)
	}
}

func TestRedisStoreKeyAndTTL(t *testing.T) {
	mr, s := newTestRedis(t)
	ctx := context.Background()
	if err := s.Create(ctx, newRecord("abc")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !mr.Exists("chess:game:abc") {
		t.Fatalf("key not stored under chess:game:abc; keys=%v", mr.Keys())
	}
	if ttl := mr.TTL("chess:game:abc"); ttl != time.Hour {
		t.Fatalf("TTL = %v", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := s.Load(ctx, "abc"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("Load after TTL = %v", err)
	}
}

func TestRedisStoreCorruptDocument(t *testing.T) {
	mr, s := newTestRedis(t)
	if err := mr.Set("chess:game:bad", "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(context.Background(), "bad"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRedisStoreGivesUpOnConflict(t *testing.T) {
	mr, s := newTestRedis(t)
	ctx := context.Background()
	if err := s.Create(ctx, newRecord("g1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = other.Close() })

	calls := 0
	_, err := s.Update(ctx, "g1", func(r *Record) error {
		calls++
		// touch the watched key so EXEC aborts every time
		return other.Set(ctx, "chess:game:g1", `{"id":"g1","moves":[],"status":"ACTIVE"}`, 0).Err()
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Update = %v, want ErrConflict", err)
	}
	if calls != s.maxRetries {
		t.Fatalf("fn called %d times, want %d", calls, s.maxRetries)
	}
}

func TestStoreList(t *testing.T) {
	for _, f := range allStores() {
		f := f
		t.Run(f.name, func(t *testing.T) {
			s, ok := f.open(t).(Lister)
			if !ok {
				t.Fatalf("%s store does not list", f.name)
			}
			ctx := context.Background()
			for _, id := range []string{"b", "a", "c"} {
				if err := s.(Store).Create(ctx, newRecord(id)); err != nil {
					t.Fatalf("Create %s: %v", id, err)
				}
			}
			ids, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if fmt.Sprint(ids) != "[a b c]" {
				t.Fatalf("List = %v", ids)
			}
		})
	}
}

func TestBadgerStorePersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := OpenBadgerStore(dir, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rec := newRecord("keep")
	rec.Moves = []string{"e2e4"}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenBadgerStore(dir, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Load(ctx, "keep")
	if err != nil || len(got.Moves) != 1 {
		t.Fatalf("Load after reopen = %+v, %v", got, err)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		in       string
		addr     string
		user     string
		pass     string
		db       int
		tls      bool
		wantFail bool
	}{
		{in: "redis://localhost:6379", addr: "localhost:6379"},
		{in: "redis://localhost:6379/3", addr: "localhost:6379", db: 3},
		{in: "redis://:s3cret@cache:6380/1", addr: "cache:6380", pass: "s3cret", db: 1},
		{in: "redis://bob:pw@cache:6379", addr: "cache:6379", user: "bob", pass: "pw"},
		{in: "redis://token@cache:6379", addr: "cache:6379", pass: "token"},
		{in: "rediss://secure:6379", addr: "secure:6379", tls: true},
		{in: "http://localhost:6379", wantFail: true},
		{in: "redis://localhost:6379/x", wantFail: true},
		{in: "redis:///0", wantFail: true},
	}
	for _, tt := range tests {
		opts, err := ParseRedisURL(tt.in)
		if tt.wantFail {
			if err == nil {
				t.Fatalf("ParseRedisURL(%q) succeeded", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRedisURL(%q): %v", tt.in, err)
		}
		if opts.Addr != tt.addr || opts.Username != tt.user || opts.Password != tt.pass || opts.DB != tt.db || (opts.TLSConfig != nil) != tt.tls {
			t.Fatalf("ParseRedisURL(%q) = %+v", tt.in, opts)
		}
	}
}
