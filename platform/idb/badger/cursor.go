package badger

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/localstore/platform/idb"
)

// cursor is one position of an iteration.
type cursor struct {
	key   string
	value any
	next  chan struct{}
}

var _ idb.Cursor = (*cursor)(nil)

func (c *cursor) Key() string {
	return c.key
}

func (c *cursor) Value() any {
	return c.value
}

// Continue asks for the next position. Extra calls are ignored.
func (c *cursor) Continue() {
	select {
	case c.next <- struct{}{}:
	default:
	}
}

// openCursor iterates the store on a dedicated goroutine, so a consumer
// that holds a position for long never occupies a pool worker.
func (s *objectStore) openCursor(keysOnly bool) *idb.CursorRequest {
	req := idb.NewCursorRequest()
	go s.iterate(req, keysOnly)
	return req
}

func (s *objectStore) iterate(req *idb.CursorRequest, keysOnly bool) {
	t := s.t
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.aborted:
		req.Fail(idb.ErrAbort)
		return
	default:
	}
	if t.finished {
		req.Fail(idb.ErrTransactionInactive)
		return
	}
	if t.db.closed.Load() {
		t.finish()
		req.Fail(fmt.Errorf("%w: connection is closed", idb.ErrInvalidState))
		return
	}
	defer t.finish()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = !keysOnly
	opts.Prefix = s.prefix
	iter := t.tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); ; iter.Next() {
		if !iter.Valid() {
			req.Deliver(nil)
			return
		}

		item := iter.Item()
		c := &cursor{
			key:  string(bytes.TrimPrefix(item.Key(), s.prefix)),
			next: make(chan struct{}, 1),
		}
		if !keysOnly {
			err := item.Value(func(val []byte) error {
				var err error
				c.value, err = unmarshalValue(val)
				return err
			})
			if err != nil {
				req.Fail(translate(err))
				return
			}
		}

		req.Deliver(c)
		select {
		case <-c.next:
		case <-t.aborted:
			req.Fail(idb.ErrAbort)
			return
		}
	}
}
