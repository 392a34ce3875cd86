package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chessmaster/internal/obslog"
)

const relayChannelPrefix = "chess:events:"

// Relay carries state changes between server replicas over Redis pub/sub.
// Forward is registered on the local Manager; listeners added with OnChange
// hear every replica, this one included, once Run is going.
type Relay struct {
	rdb            *redis.Client
	publishTimeout time.Duration

	mu        sync.RWMutex
	listeners []Listener
}

func NewRelay(rdb *redis.Client) *Relay {
	return &Relay{rdb: rdb, publishTimeout: 2 * time.Second}
}

// Client exposes the Redis client of a RedisStore for a Relay.
func (s *RedisStore) Client() *redis.Client { return s.rdb }

func (r *Relay) OnChange(fn Listener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Forward publishes a local change. Failures are logged; the move itself
// has already been stored.
func (r *Relay) Forward(c Change) {
	raw, err := json.Marshal(c)
	if err != nil {
		obslog.L().Error("relay_encode_error", zap.String("game_id", c.ID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.publishTimeout)
	defer cancel()
	if err := r.rdb.Publish(ctx, relayChannelPrefix+c.ID, raw).Err(); err != nil {
		obslog.L().Warn("relay_publish_error", zap.String("game_id", c.ID), zap.Error(err))
	}
}

// Run delivers relayed changes to listeners until ctx ends. ready, if not
// nil, is closed once the subscription is confirmed.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.rdb.PSubscribe(ctx, relayChannelPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				obslog.L().Warn("relay_decode_error", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if c.ID == "" {
				c.ID = strings.TrimPrefix(msg.Channel, relayChannelPrefix)
			}
			r.deliver(c)
		}
	}
}

// deliver passes changes on in arrival order. Replicas publish
// independently, so consumers order them by Version.
func (r *Relay) deliver(c Change) {
	r.mu.RLock()
	ls := append([]Listener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range ls {
		fn(c)
	}
}
