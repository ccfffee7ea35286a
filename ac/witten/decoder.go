package witten

import (
	"math"

	"github.com/fumin/kestrel/ac"
	"github.com/pkg/errors"
)

// maxGarbageBits is the number of bits past the end of the input a decoder may need.
// Finish leaves the last ac.CodeValueBits-2 bits of the code value implied, so any more
// than that means the decoder has run past the real data.
const maxGarbageBits = ac.CodeValueBits - 2

// A Decoder reconstructs symbols from the output of an Encoder.
// The Decoder owns its model for as long as it is in use.
type Decoder[S any] struct {
	model ac.Model[S]

	low  uint64
	high uint64
	code uint64

	src         []byte
	buf         byte
	nbits       uint
	garbageBits int
	eos         bool
}

// NewDecoder returns a Decoder reading the stream src.
// model must be over the same alphabet as the one used to encode src; it is reset to its uniform state.
func NewDecoder[S any](model ac.Model[S], src []byte) *Decoder[S] {
	d := &Decoder[S]{
		model: model,
		high:  math.MaxUint64,
		src:   src,
	}
	d.model.Reset()
	for i := 0; i < ac.CodeValueBits; i++ {
		d.code = d.code<<1 | d.readBit()
	}
	return d
}

// readBit returns the next bit of the input, most significant bit first.
// Past the end of the input it returns zeros, flagging the end of stream
// once more than maxGarbageBits of them were needed.
func (d *Decoder[S]) readBit() uint64 {
	if d.nbits == 0 {
		if len(d.src) == 0 {
			d.garbageBits++
			if d.garbageBits > maxGarbageBits {
				d.eos = true
			}
			return 0
		}
		d.buf = d.src[0]
		d.src = d.src[1:]
		d.nbits = 8
	}
	bit := uint64(d.buf >> 7)
	d.buf <<= 1
	d.nbits--
	return bit
}

// Decode returns the next symbol.
// Once the end of the stream is reached, Decode resets the model and returns ac.ErrEndOfStream,
// on this and every later call.
// Since a stream carries no terminator, callers should stop after the number of symbols they encoded;
// symbols decoded beyond that are meaningless.
// An error wrapping ac.ErrCorruptInput is returned if the input cannot have been produced by an Encoder.
func (d *Decoder[S]) Decode() (S, error) {
	var zero S
	if d.eos {
		d.model.Reset()
		return zero, ac.ErrEndOfStream
	}
	if d.code < d.low || d.code > d.high {
		return zero, errors.Wrapf(ac.ErrCorruptInput, "code %#x outside [%#x, %#x]", d.code, d.low, d.high)
	}

	value := target(d.low, d.high, d.code)
	s, ok := d.model.Symbol(value)
	if !ok {
		return zero, errors.Wrapf(ac.ErrCorruptInput, "no symbol at %#x", value)
	}
	r, ok := d.model.Range(s)
	if !ok {
		return zero, errors.Wrapf(ac.ErrCorruptInput, "no range for %v", s)
	}

	d.low, d.high = narrow(d.low, d.high, r)

	// rescale interval
	for {
		if d.high < ac.Half {
			// do nothing
		} else if d.low >= ac.Half {
			d.code -= ac.Half
			d.low -= ac.Half
			d.high -= ac.Half
		} else if d.low >= ac.Quarter && d.high < ac.ThreeQuarters {
			d.code -= ac.Quarter
			d.low -= ac.Quarter
			d.high -= ac.Quarter
		} else {
			break
		}

		d.low = d.low << 1
		d.high = d.high<<1 | 1
		d.code = d.code<<1 | d.readBit()
	}

	if err := d.model.Update(s); err != nil {
		return zero, errors.Wrap(err, "")
	}
	return s, nil
}

// EndOfStream reports whether the decoder has run past the end of its input.
func (d *Decoder[S]) EndOfStream() bool {
	return d.eos
}
