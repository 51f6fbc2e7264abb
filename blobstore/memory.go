package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStore keeps blobs in process memory. It is intended for tests and
// for engines that never persist snapshots across restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// Compile time check to ensure MemoryStore satisfies the Store interface.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

// Put writes a blob, replacing any existing blob of the same name.
func (ms *MemoryStore) Put(ctx context.Context, name string, data io.Reader) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.blobs[name] = buf

	return nil
}

// Get opens a blob for reading.
func (ms *MemoryStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	buf, ok := ms.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(buf)), nil
}

// Delete removes a blob.
func (ms *MemoryStore) Delete(ctx context.Context, name string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.blobs[name]; !ok {
		return ErrNotFound
	}

	delete(ms.blobs, name)

	return nil
}
