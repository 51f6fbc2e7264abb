package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/hyperdim/hdql/blobstore"
)

// Snapshot envelope layout:
//
//	[magic uint32][version uint8][kind uint8][compression uint8][reserved uint8]
//
// followed by a single compressed block holding the gob-encoded index.
const (
	snapshotMagic   = 0x48445131 // "HDQ1"
	snapshotVersion = 1
	envelopeSize    = 8
)

// Loader constructs an empty index instance ready for gob decoding.
//
// Index implementations should typically call RegisterLoader from an init()
// function.
type Loader func() Index

var (
	loaderMu sync.RWMutex
	loaders  = map[Kind]Loader{}
)

// RegisterLoader registers a loader for an index kind.
func RegisterLoader(kind Kind, loader Loader) {
	loaderMu.Lock()
	defer loaderMu.Unlock()

	loaders[kind] = loader
}

// Save writes an index snapshot to w.
func Save(w io.Writer, idx Index, compression Compression) error {
	payload, err := idx.GobEncode()
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	block, err := compressBlock(payload, compression)
	if err != nil {
		return fmt.Errorf("compress index: %w", err)
	}

	var envelope [envelopeSize]byte

	binary.LittleEndian.PutUint32(envelope[0:4], snapshotMagic)
	envelope[4] = snapshotVersion
	envelope[5] = uint8(idx.Kind())
	envelope[6] = uint8(compression)

	if _, err := w.Write(envelope[:]); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}

	if _, err := w.Write(block); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	return nil
}

// Load reads an index snapshot from r, dispatching to the registered loader
// for the snapshot's kind.
func Load(r io.Reader) (Index, error) {
	var envelope [envelopeSize]byte

	if _, err := io.ReadFull(r, envelope[:]); err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}

	if magic := binary.LittleEndian.Uint32(envelope[0:4]); magic != snapshotMagic {
		return nil, fmt.Errorf("invalid magic number: expected 0x%08x, got 0x%08x", snapshotMagic, magic)
	}

	if version := envelope[4]; version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", version)
	}

	kind := Kind(envelope[5])
	compression := Compression(envelope[6])

	loaderMu.RLock()
	loader, ok := loaders[kind]
	loaderMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown index kind: %d", kind)
	}

	block, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	payload, err := decompressBlock(block, compression)
	if err != nil {
		return nil, fmt.Errorf("decompress index: %w", err)
	}

	idx := loader()
	if err := idx.GobDecode(payload); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	return idx, nil
}

// SaveToBlob persists an index snapshot under name in a blob store.
func SaveToBlob(ctx context.Context, bs blobstore.Store, name string, idx Index, compression Compression) error {
	var buf bytes.Buffer

	if err := Save(&buf, idx, compression); err != nil {
		return err
	}

	return bs.Put(ctx, name, &buf)
}

// LoadFromBlob restores an index snapshot from a blob store.
func LoadFromBlob(ctx context.Context, bs blobstore.Store, name string) (Index, error) {
	rc, err := bs.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Load(rc)
}
