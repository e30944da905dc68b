package kvstore

import (
	"github.com/fxamacker/cbor/v2"
)

// Codec converts the store's map to and from the bytes of the backing file.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// CBORCodec encodes with CBOR Core Deterministic Encoding. Map keys are
// sorted, so flushing the same entries twice yields identical bytes.
//
// Values stored behind interface types come back as CBOR's default Go
// types: integers as int64, floats as float64, nested maps as
// map[interface{}]interface{}. Use concrete key and value types to get the
// original types back.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec = (*CBORCodec)(nil)

// NewCBORCodec builds the default codec.
func NewCBORCodec() (*CBORCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dec, err := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
		IntDec:    cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return &CBORCodec{enc: enc, dec: dec}, nil
}

func (c *CBORCodec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c *CBORCodec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}

var defaultCodec = mustCBORCodec()

func mustCBORCodec() *CBORCodec {
	c, err := NewCBORCodec()
	if err != nil {
		panic(err)
	}
	return c
}
