// Package ac defines the interfaces the arithmetic coding algorithm requires.
// See its subpackages for particular finite precision realizations of the algorithm.
//
// Coders work over the 64-bit domain [0, 2^64). A model partitions that domain
// into one half-open Range per symbol, the width of each Range being
// proportional to the symbol's probability.
package ac

import (
	"github.com/pkg/errors"
)

const (
	// CodeValueBits is the precision of the coding interval.
	CodeValueBits = 64

	// Quarter, Half and ThreeQuarters are the renormalization thresholds.
	// Encoders and decoders must agree on them exactly.
	Quarter       uint64 = 1 << (CodeValueBits - 2)
	Half          uint64 = 2 * Quarter
	ThreeQuarters uint64 = Half + Quarter
)

var (
	// ErrUnknownSymbol is returned when a symbol outside of a model's alphabet is coded.
	ErrUnknownSymbol = errors.New("symbol not in alphabet")

	// ErrCorruptInput is returned when the decoder meets a code value no symbol accounts for.
	ErrCorruptInput = errors.New("corrupt arithmetic coded input")

	// ErrEndOfStream is returned by decoders once the input is exhausted.
	// It is not a failure, much like io.EOF.
	ErrEndOfStream = errors.New("end of stream")
)

// A Range is the half-open interval [Low, High) a symbol occupies in the coding domain.
type Range struct {
	Low  uint64
	High uint64
}

// Contains reports whether value falls within r.
func (r Range) Contains(value uint64) bool {
	return value >= r.Low && value < r.High
}

// A Model is an adaptive probabilistic model on a sequence of symbols,
// as expected by the arithmetic coding algorithm.
//
// A Model holds mutable state and must be owned by a single coder at a time.
type Model[S any] interface {
	// Range returns the interval of s in the coding domain.
	// ok is false if s is not part of the alphabet.
	Range(s S) (r Range, ok bool)

	// Symbol returns the symbol whose interval contains value.
	// ok is false if no symbol does.
	Symbol(value uint64) (s S, ok bool)

	// Update informs the Model that s is observed from the sequence.
	Update(s S) error

	// Reset returns the Model to its initial, uniform state.
	Reset()
}
