package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "game:"

// BadgerStore keeps records in an embedded Badger database so a local CLI can
// resume games across runs.
type BadgerStore struct {
	db         *badger.DB
	ttl        time.Duration
	maxRetries int
}

// OpenBadgerStore opens dir, or an in-memory database when dir is empty.
func OpenBadgerStore(dir string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, ttl: ttl, maxRetries: 5}, nil
}

func badgerKey(id string) []byte { return []byte(badgerKeyPrefix + id) }

func (s *BadgerStore) entry(rec *Record) (*badger.Entry, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	e := badger.NewEntry(badgerKey(rec.ID), raw)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return e, nil
}

func (s *BadgerStore) Create(ctx context.Context, rec *Record) error {
	return s.retry(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(rec.ID))
		if err == nil {
			return ErrGameExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		e, err := s.entry(rec)
		if err != nil {
			return err
		}
		return txn.SetEntry(e)
	})
}

func (s *BadgerStore) Load(_ context.Context, id string) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrGameNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BadgerStore) Update(ctx context.Context, id string, fn func(*Record) error) (*Record, error) {
	var out *Record
	err := s.retry(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrGameNotFound
		}
		if err != nil {
			return err
		}
		var cur Record
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &cur) }); err != nil {
			return err
		}
		if err := fn(&cur); err != nil {
			return err
		}
		e, err := s.entry(&cur)
		if err != nil {
			return err
		}
		if err := txn.SetEntry(e); err != nil {
			return err
		}
		out = &cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the ids of every stored game.
func (s *BadgerStore) List(_ context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(badgerKeyPrefix):]))
		}
		return nil
	})
	return ids, err
}

func (s *BadgerStore) retry(ctx context.Context, fn func(*badger.Txn) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
