// Package memory provides an in-memory block.Store implementation,
// used by the unit test suite and by single-node deployments that
// don't need durability across restarts.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sujala/deuce/pkg/store/block"
)

// Store is an in-memory implementation of block.Store.
type Store struct {
	mu     sync.RWMutex
	blocks map[string][]byte
}

// New creates a new in-memory block store.
func New() *Store {
	return &Store{blocks: make(map[string][]byte)}
}

func key(project, vault, storageID string) string {
	return project + "/" + vault + "/" + storageID
}

// Put stores data under a freshly generated storage-id.
func (s *Store) Put(_ context.Context, project, vault string, data []byte) (string, error) {
	storageID := uuid.NewString()

	copied := make([]byte, len(data))
	copy(copied, data)

	s.mu.Lock()
	s.blocks[key(project, vault, storageID)] = copied
	s.mu.Unlock()

	return storageID, nil
}

// Open returns a reader over the stored bytes.
func (s *Store) Open(_ context.Context, project, vault, storageID string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blocks[key(project, vault, storageID)]
	s.mu.RUnlock()

	if !ok {
		return nil, block.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the stored object, if present.
func (s *Store) Delete(_ context.Context, project, vault, storageID string) error {
	s.mu.Lock()
	delete(s.blocks, key(project, vault, storageID))
	s.mu.Unlock()
	return nil
}

// Exists reports whether storageID is stored.
func (s *Store) Exists(_ context.Context, project, vault, storageID string) (bool, error) {
	s.mu.RLock()
	_, ok := s.blocks[key(project, vault, storageID)]
	s.mu.RUnlock()
	return ok, nil
}

// Ensure Store implements block.Store.
var _ block.Store = (*Store)(nil)
