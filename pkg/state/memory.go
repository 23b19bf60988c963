package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and dry runs. It honors the
// Store contract except durability.
type MemoryStore struct {
	mu        sync.RWMutex
	bookmarks map[string]Bookmark
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookmarks: make(map[string]Bookmark)}
}

// Cursor implements Store
func (s *MemoryStore) Cursor(_ context.Context, stream string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookmarks[stream]
	if !ok {
		return time.Time{}, false, nil
	}
	return b.Cursor, true, nil
}

// SinceID implements Store
func (s *MemoryStore) SinceID(_ context.Context, stream string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookmarks[stream]
	if !ok || b.SinceID == nil {
		return 0, false, nil
	}
	return *b.SinceID, true, nil
}

// Commit implements Store
func (s *MemoryStore) Commit(_ context.Context, stream string, cursor time.Time, sinceID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id *int64
	if sinceID != nil {
		v := *sinceID
		id = &v
	}
	s.bookmarks[stream] = Bookmark{Stream: stream, Cursor: cursor, SinceID: id}
	return nil
}

// Bookmark returns a copy of the stored bookmark, for assertions in tests
func (s *MemoryStore) Bookmark(stream string) (Bookmark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookmarks[stream]
	return b, ok
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
