package flat

import (
	"bytes"
	"encoding/gob"

	"github.com/hyperdim/hdql/distance"
	"github.com/hyperdim/hdql/index"
)

func init() {
	index.RegisterLoader(index.KindFlat, func() index.Index {
		return &Flat{}
	})
}

// GobEncode method for Flat.
func (f *Flat) GobEncode() ([]byte, error) {
	var buf bytes.Buffer

	encoder := gob.NewEncoder(&buf)

	if err := encoder.Encode(f.dimension); err != nil {
		return nil, err
	}

	if err := encoder.Encode(f.opts); err != nil {
		return nil, err
	}

	if err := encoder.Encode(f.vectors); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GobDecode method for Flat.
func (f *Flat) GobDecode(data []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(data))

	if err := decoder.Decode(&f.dimension); err != nil {
		return err
	}

	if err := decoder.Decode(&f.opts); err != nil {
		return err
	}

	if err := decoder.Decode(&f.vectors); err != nil {
		return err
	}

	distFn, err := distance.Provider(f.opts.Metric)
	if err != nil {
		return err
	}
	f.distFn = distFn

	return nil
}
