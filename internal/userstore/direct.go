package userstore

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kalambet/solace/internal/profile"
	"github.com/kalambet/solace/internal/storage"
)

var errConnectorClosed = errors.New("connector closed")

// OpenFunc establishes a store connection.
type OpenFunc func(ctx context.Context, dsn string) (*storage.Store, error)

// Connector owns the process-wide store connection. The first successful
// Store call caches it; concurrent callers during establishment share one
// attempt. A failed attempt is not cached.
type Connector struct {
	dsn  string
	open OpenFunc

	group singleflight.Group

	mu     sync.Mutex
	store  *storage.Store
	closed bool
}

// NewConnector returns a Connector for dsn. A nil open uses storage.Open.
func NewConnector(dsn string, open OpenFunc) *Connector {
	if open == nil {
		open = storage.Open
	}
	return &Connector{dsn: dsn, open: open}
}

func (c *Connector) cached() (*storage.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errConnectorClosed
	}
	return c.store, nil
}

// Store returns the cached connection, establishing it if needed.
func (c *Connector) Store(ctx context.Context) (*storage.Store, error) {
	if s, err := c.cached(); s != nil || err != nil {
		return s, err
	}

	ch := c.group.DoChan("connect", func() (any, error) {
		if s, err := c.cached(); s != nil || err != nil {
			return s, err
		}
		// Shared by every waiter, so one caller's cancellation must not
		// abort it for the rest.
		s, err := c.open(context.WithoutCancel(ctx), c.dsn)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			s.Close()
			return nil, errConnectorClosed
		}
		c.store = s
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*storage.Store), nil
	}
}

// Close closes the cached connection, if any. Later Store calls fail.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

// Direct talks to the SQL store through a Connector. Every operation is
// wrapped in the retry policy.
type Direct struct {
	conn  *Connector
	retry RetryPolicy
}

// NewDirect returns a Direct backend.
func NewDirect(conn *Connector, retry RetryPolicy) *Direct {
	return &Direct{conn: conn, retry: retry}
}

func (d *Direct) do(ctx context.Context, fn func(ctx context.Context, s *storage.Store) error) error {
	return d.retry.Do(ctx, func(ctx context.Context) error {
		s, err := d.conn.Store(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, s)
	})
}

func (d *Direct) Get(ctx context.Context, username string) (profile.Record, error) {
	var r profile.Record
	err := d.do(ctx, func(ctx context.Context, s *storage.Store) error {
		var err error
		r, err = s.GetUser(ctx, username)
		return err
	})
	return r, err
}

func (d *Direct) Put(ctx context.Context, username string, r profile.Record) error {
	return d.do(ctx, func(ctx context.Context, s *storage.Store) error {
		return s.PutUser(ctx, username, r)
	})
}

func (d *Direct) Patch(ctx context.Context, username string, p profile.Patch) error {
	return d.do(ctx, func(ctx context.Context, s *storage.Store) error {
		return s.PatchUser(ctx, username, p)
	})
}

// Update runs fn inside one store transaction. A retried attempt reloads
// the record, so fn may run more than once.
func (d *Direct) Update(ctx context.Context, username string, fn func(*profile.Record) error) error {
	return d.do(ctx, func(ctx context.Context, s *storage.Store) error {
		return s.UpdateUser(ctx, username, fn)
	})
}

func (d *Direct) Exists(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := d.do(ctx, func(ctx context.Context, s *storage.Store) error {
		var err error
		ok, err = s.UserExists(ctx, username)
		return err
	})
	return ok, err
}

func (d *Direct) Create(ctx context.Context, username string) error {
	return d.do(ctx, func(ctx context.Context, s *storage.Store) error {
		_, err := s.CreateUser(ctx, username)
		return err
	})
}

// Close closes the underlying connection.
func (d *Direct) Close() error {
	return d.conn.Close()
}
