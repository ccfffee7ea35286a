// Package witten implements the arithmetic coding algorithm described in
// Witten, Ian H.; Neal, Radford M.; Cleary, John G. (June 1987). "Arithmetic Coding for Data Compression". Communications of the ACM 30 (6): 520–540.
//
// The coding interval is 64 bits wide. Symbol ranges are taken from an
// ac.Model as fixed-point fractions of 2^64, so an interval [low, high] is
// narrowed to [low + width*r.Low/2^64, low + width*r.High/2^64 - 1].
//
// The output is a plain sequence of bytes, most significant bit first,
// without any header. Callers must convey the number of coded symbols out of band.
package witten

import (
	"math"
	"math/bits"

	"github.com/fumin/kestrel/ac"
)

// scale returns floor(width * x / 2^64), a width of 0 standing for 2^64.
func scale(width, x uint64) uint64 {
	if width == 0 {
		return x
	}
	hi, _ := bits.Mul64(width, x)
	return hi
}

// narrow returns the sub interval of [low, high] occupied by r.
func narrow(low, high uint64, r ac.Range) (uint64, uint64) {
	width := high - low + 1
	return low + scale(width, r.Low), low + scale(width, r.High) - 1
}

// target inverts narrow: it returns the point of the coding domain that code
// maps to within [low, high], that is floor(((code-low+1) * 2^64 - 1) / width).
// code must lie within [low, high].
func target(low, high, code uint64) uint64 {
	width := high - low + 1
	d := code - low
	if width == 0 {
		return d
	}
	q, _ := bits.Div64(d, math.MaxUint64, width)
	return q
}
