package indexeddb

import (
	"context"

	"github.com/poiesic/localstore/platform/idb"
)

// connection is a single-assignment cell holding the outcome of the one
// open attempt. Waiters that arrive after it resolved see the same outcome.
type connection struct {
	done chan struct{}
	db   idb.Database
	err  error
}

func newConnection() *connection {
	return &connection{done: make(chan struct{})}
}

// resolve records the outcome. It must be called exactly once.
func (c *connection) resolve(db idb.Database, err error) {
	c.db = db
	c.err = err
	close(c.done)
}

// wait blocks until the connection resolves or ctx is done.
func (c *connection) wait(ctx context.Context) (idb.Database, error) {
	select {
	case <-c.done:
		return c.db, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolved returns the database if the connection has already succeeded.
func (c *connection) resolved() (idb.Database, bool) {
	select {
	case <-c.done:
		return c.db, c.err == nil
	default:
		return nil, false
	}
}
