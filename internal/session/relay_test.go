package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chessmaster/internal/chess"
)

func TestRelayCrossesReplicas(t *testing.T) {
	mr, store := newTestRedis(t)

	// two replicas share one Redis
	otherClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer otherClient.Close()
	local := NewRelay(store.Client())
	remote := NewRelay(otherClient)

	got := make(chan string, 4)
	remote.OnChange(func(c Change) {
		got <- fmt.Sprintf("%s:%d:%s", c.ID, c.Version, c.State.CurrentPlayer)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- remote.Run(ctx, ready) }()
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatalf("relay did not subscribe")
	}

	m := newTestManager(t, store)
	m.OnChange(local.Forward)
	id, _, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := m.Move(ctx, id, "e2e4"); err != nil {
		t.Fatalf("Move: %v", err)
	}

	select {
	case ev := <-got:
		if ev != id+":1:black" {
			t.Fatalf("relayed %q", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("change was not relayed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestRelaySkipsGarbage(t *testing.T) {
	mr, store := newTestRedis(t)
	r := NewRelay(store.Client())
	got := make(chan string, 2)
	r.OnChange(func(c Change) { got <- c.ID })
	r.OnChange(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	go func() { _ = r.Run(ctx, ready) }()
	<-ready

	mr.Publish(relayChannelPrefix+"bad", "not json")
	r.Forward(Change{ID: "good", Version: 1, State: chess.NewGame().State()})
	select {
	case id := <-got:
		if id != "good" {
			t.Fatalf("delivered %q", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("valid message not delivered")
	}
}
