package ivf

import (
	"bytes"
	"encoding/gob"

	"github.com/hyperdim/hdql/distance"
	"github.com/hyperdim/hdql/index"
)

func init() {
	index.RegisterLoader(index.KindIVF, func() index.Index {
		return &IVF{}
	})
}

// GobEncode method for IVF.
func (ivf *IVF) GobEncode() ([]byte, error) {
	var buf bytes.Buffer

	encoder := gob.NewEncoder(&buf)

	if err := encoder.Encode(ivf.dimension); err != nil {
		return nil, err
	}

	if err := encoder.Encode(ivf.opts); err != nil {
		return nil, err
	}

	if err := encoder.Encode(ivf.centroids); err != nil {
		return nil, err
	}

	if err := encoder.Encode(ivf.lists); err != nil {
		return nil, err
	}

	if err := encoder.Encode(ivf.vectors); err != nil {
		return nil, err
	}

	if err := encoder.Encode(ivf.nprobe); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GobDecode method for IVF.
func (ivf *IVF) GobDecode(data []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(data))

	if err := decoder.Decode(&ivf.dimension); err != nil {
		return err
	}

	if err := decoder.Decode(&ivf.opts); err != nil {
		return err
	}

	if err := decoder.Decode(&ivf.centroids); err != nil {
		return err
	}

	if err := decoder.Decode(&ivf.lists); err != nil {
		return err
	}

	if err := decoder.Decode(&ivf.vectors); err != nil {
		return err
	}

	if err := decoder.Decode(&ivf.nprobe); err != nil {
		return err
	}

	distFn, err := distance.Provider(ivf.opts.Metric)
	if err != nil {
		return err
	}
	ivf.distFn = distFn

	return nil
}
