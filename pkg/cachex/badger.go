package cachex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCache is an embedded Cache backed by BadgerDB. It can live purely in
// memory or persist to a directory so counters survive a restart. Expiry is
// tracked by badger itself at whole-second resolution.
//
// Writers are serialised by mu. Badger transactions are optimistic, so two
// read-modify-write transactions on one key would otherwise conflict at
// commit.
type BadgerCache struct {
	mu sync.Mutex
	db *badger.DB
}

// NewBadger opens a badger database in dir, or in memory when dir is empty.
func NewBadger(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

func (c *BadgerCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(newBadgerEntry(key, value, ttl))
	})
}

func (c *BadgerCache) Get(_ context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value, found = string(raw), true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("badger get %q: %w", key, err)
	}
	return value, found, nil
}

func (c *BadgerCache) TTL(_ context.Context, key string) (int64, error) {
	ttl := TTLMissing
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exp := item.ExpiresAt()
		if exp == 0 {
			ttl = TTLPersistent
			return nil
		}
		remaining := time.Until(time.Unix(int64(exp), 0)) // #nosec G115 - unix seconds fit in int64
		if remaining > 0 {
			ttl = ceilSeconds(remaining)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger ttl %q: %w", key, err)
	}
	return ttl, nil
}

func (c *BadgerCache) Remove(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := false
	err := c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		removed = true
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return false, fmt.Errorf("badger remove %q: %w", key, err)
	}
	return removed, nil
}

func (c *BadgerCache) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			v, err := strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrNotInteger, key)
			}
			n = v
		}
		n++
		return txn.SetEntry(newBadgerEntry(key, strconv.FormatInt(n, 10), ttl))
	})
	if err != nil {
		if errors.Is(err, ErrNotInteger) {
			return 0, err
		}
		return 0, fmt.Errorf("badger incr %q: %w", key, err)
	}
	return n, nil
}

func (c *BadgerCache) Ping(context.Context) error {
	if c.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

func (c *BadgerCache) Close() error { return c.db.Close() }

func newBadgerEntry(key, value string, ttl time.Duration) *badger.Entry {
	e := badger.NewEntry([]byte(key), []byte(value))
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}
