package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"local": func(t *testing.T) Store {
			ls, err := NewLocalStore(t.TempDir())
			require.NoError(t, err)

			return ls
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("PutGetRoundTrip", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Put(ctx, "idx/main.snap", strings.NewReader("payload")))

				rc, err := s.Get(ctx, "idx/main.snap")
				require.NoError(t, err)

				data, err := io.ReadAll(rc)
				require.NoError(t, err)
				require.NoError(t, rc.Close())
				require.Equal(t, "payload", string(data))
			})

			t.Run("PutReplaces", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Put(ctx, "blob", strings.NewReader("old")))
				require.NoError(t, s.Put(ctx, "blob", strings.NewReader("new")))

				rc, err := s.Get(ctx, "blob")
				require.NoError(t, err)

				data, err := io.ReadAll(rc)
				require.NoError(t, err)
				require.NoError(t, rc.Close())
				require.Equal(t, "new", string(data))
			})

			t.Run("GetMissing", func(t *testing.T) {
				s := newStore(t)

				_, err := s.Get(ctx, "missing")
				require.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("Delete", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Put(ctx, "blob", strings.NewReader("x")))
				require.NoError(t, s.Delete(ctx, "blob"))

				_, err := s.Get(ctx, "blob")
				require.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("DeleteMissing", func(t *testing.T) {
				s := newStore(t)

				require.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
			})
		})
	}
}

func TestLocalStoreNoPartialFiles(t *testing.T) {
	dir := t.TempDir()

	ls, err := NewLocalStore(dir)
	require.NoError(t, err)

	require.NoError(t, ls.Put(context.Background(), "snap", strings.NewReader("data")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "snap", entries[0].Name())
	require.Equal(t, "snap", filepath.Base(ls.path("snap")))
}
