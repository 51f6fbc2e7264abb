package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore persists blobs as files under a base directory. Writes go to a
// temporary file first and are published with an atomic rename, so readers
// never observe a partially written snapshot.
type LocalStore struct {
	baseDir string
}

// Compile time check to ensure LocalStore satisfies the Store interface.
var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a blob store rooted at baseDir, creating the
// directory if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}

	return &LocalStore{baseDir: baseDir}, nil
}

// Put writes a blob atomically.
func (ls *LocalStore) Put(ctx context.Context, name string, data io.Reader) error {
	dst := ls.path(name)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write blob: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("publish blob: %w", err)
	}

	return nil
}

// Get opens a blob for reading.
func (ls *LocalStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(ls.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return f, nil
}

// Delete removes a blob.
func (ls *LocalStore) Delete(ctx context.Context, name string) error {
	if err := os.Remove(ls.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}

		return err
	}

	return nil
}

func (ls *LocalStore) path(name string) string {
	return filepath.Join(ls.baseDir, filepath.FromSlash(name))
}
