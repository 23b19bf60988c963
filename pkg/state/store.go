// Package state persists replication bookmarks. A bookmark holds the
// last-committed replication cursor for a stream plus an optional
// in-progress page cursor used to resume a partially-paged window.
package state

import (
	"context"
	"time"
)

// Bookmark is the persisted progress marker for one stream.
//
// Cursor only ever moves forward or stays equal; it is advanced only when
// an entire extraction window has been drained. SinceID exists solely to
// resume a partially-paged window after interruption and is cleared when
// the window completes.
type Bookmark struct {
	Stream  string
	Cursor  time.Time
	SinceID *int64
}

// Store is the durable bookmark store. Commit must not return before the
// write is durable: a crash after Commit returns may re-do work since the
// previous commit point but must never lose the committed one.
type Store interface {
	// Cursor returns the committed replication cursor for a stream.
	// ok is false when the stream has never been committed.
	Cursor(ctx context.Context, stream string) (cursor time.Time, ok bool, err error)

	// SinceID returns the in-progress page cursor for a stream, if any
	SinceID(ctx context.Context, stream string) (id int64, ok bool, err error)

	// Commit durably writes the bookmark. A nil sinceID clears any
	// in-progress page cursor; a non-nil sinceID records mid-window
	// progress without advancing past the window.
	Commit(ctx context.Context, stream string, cursor time.Time, sinceID *int64) error

	// Close releases the store
	Close() error
}
