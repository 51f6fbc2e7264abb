package hnsw

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"

	"github.com/hyperdim/hdql/distance"
	"github.com/hyperdim/hdql/index"
)

func init() {
	index.RegisterLoader(index.KindHNSW, func() index.Index {
		return &HNSW{}
	})
}

// GobEncode method for HNSW.
func (h *HNSW) GobEncode() ([]byte, error) {
	var buf bytes.Buffer

	encoder := gob.NewEncoder(&buf)

	if err := encoder.Encode(h.dimension); err != nil {
		return nil, err
	}

	if err := encoder.Encode(h.opts); err != nil {
		return nil, err
	}

	if err := encoder.Encode(h.ep); err != nil {
		return nil, err
	}

	if err := encoder.Encode(h.maxLayer); err != nil {
		return nil, err
	}

	if err := encoder.Encode(h.nodes); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GobDecode method for HNSW.
func (h *HNSW) GobDecode(data []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(data))

	if err := decoder.Decode(&h.dimension); err != nil {
		return err
	}

	if err := decoder.Decode(&h.opts); err != nil {
		return err
	}

	if err := decoder.Decode(&h.ep); err != nil {
		return err
	}

	if err := decoder.Decode(&h.maxLayer); err != nil {
		return err
	}

	if err := decoder.Decode(&h.nodes); err != nil {
		return err
	}

	distFn, err := distance.Provider(h.opts.Metric)
	if err != nil {
		return err
	}

	h.mmax = h.opts.M
	h.mmax0 = 2 * h.opts.M
	h.ml = 1 / math.Log(float64(h.opts.M))
	h.distFn = distFn
	h.rng = rand.New(rand.NewSource(h.opts.Seed))

	return nil
}
