package witten

import (
	"math"

	"github.com/fumin/kestrel/ac"
	"github.com/pkg/errors"
)

// An Encoder carries the state required to arithmetic code one stream.
// The Encoder owns its model until Finish is called.
type Encoder[S any] struct {
	model ac.Model[S]

	low   uint64
	high  uint64
	fbits uint64 // underflow bits to follow the next emitted bit

	buf   byte
	nbits uint
}

// NewEncoder returns an Encoder over model. The model is reset to its uniform state.
func NewEncoder[S any](model ac.Model[S]) *Encoder[S] {
	e := &Encoder[S]{model: model}
	e.init()
	return e
}

func (e *Encoder[S]) init() {
	e.model.Reset()
	e.low = 0
	e.high = math.MaxUint64
	e.fbits = 0
	e.buf = 0
	e.nbits = 0
}

func (e *Encoder[S]) writeBit(dst []byte, bit byte) []byte {
	e.buf = e.buf<<1 | bit
	e.nbits++
	if e.nbits == 8 {
		dst = append(dst, e.buf)
		e.buf = 0
		e.nbits = 0
	}
	return dst
}

func (e *Encoder[S]) bitPlusFollow(dst []byte, bit byte) []byte {
	dst = e.writeBit(dst, bit)
	for ; e.fbits > 0; e.fbits-- {
		dst = e.writeBit(dst, bit^1)
	}
	return dst
}

// Encode codes s and appends any completed bytes to dst, returning the extended slice.
// An error wrapping ac.ErrUnknownSymbol is returned for a symbol outside the model,
// in which case the Encoder is left unchanged.
func (e *Encoder[S]) Encode(dst []byte, s S) ([]byte, error) {
	r, ok := e.model.Range(s)
	if !ok {
		return dst, errors.Wrapf(ac.ErrUnknownSymbol, "encode %v", s)
	}

	e.low, e.high = narrow(e.low, e.high, r)

	for {
		if e.high < ac.Half {
			dst = e.bitPlusFollow(dst, 0)
		} else if e.low >= ac.Half {
			dst = e.bitPlusFollow(dst, 1)
			e.low -= ac.Half
			e.high -= ac.Half
		} else if e.low >= ac.Quarter && e.high < ac.ThreeQuarters {
			e.fbits++
			e.low -= ac.Quarter
			e.high -= ac.Quarter
		} else {
			break
		}

		e.low = e.low << 1
		e.high = e.high<<1 | 1
	}

	if err := e.model.Update(s); err != nil {
		return dst, errors.Wrap(err, "")
	}
	return dst, nil
}

// Finish flushes the bits that single out the final interval, pads the last byte with zeros
// and appends it to dst. The model is reset and the Encoder is ready for a new stream.
func (e *Encoder[S]) Finish(dst []byte) []byte {
	e.fbits++
	if e.low < ac.Quarter {
		dst = e.bitPlusFollow(dst, 0)
	} else {
		dst = e.bitPlusFollow(dst, 1)
	}
	if e.nbits > 0 {
		dst = append(dst, e.buf<<(8-e.nbits))
	}

	e.init()
	return dst
}
