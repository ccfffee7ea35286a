// Package freq implements an adaptive order-0 frequency model for arithmetic coding.
//
// A Model starts with every symbol of its alphabet at frequency 1 and counts
// each observed symbol. After every change the 64-bit coding domain is
// partitioned again, in ascending symbol order, into ranges proportional to
// the frequencies. Encoder and decoder stay in sync as long as both start
// from models over the same alphabet and observe the same symbols.
package freq

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"github.com/fumin/kestrel/ac"
	"github.com/pkg/errors"
)

const (
	// DefaultMaxTotal is the total frequency above which counts are halved.
	DefaultMaxTotal uint64 = 1 << 32

	// MaxTotalLimit is the largest ceiling a Model accepts.
	// Below it, every symbol's range stays at least 16 units wide,
	// which the 64-bit coders need to keep each symbol decodable.
	MaxTotalLimit uint64 = 1 << 60
)

// An Option configures a Model.
type Option func(*options)

type options struct {
	maxTotal uint64
}

// WithMaxTotal sets the total frequency ceiling.
// When an update would exceed it, all frequencies are halved first.
// Values above MaxTotalLimit are clamped.
func WithMaxTotal(n uint64) Option {
	return func(o *options) {
		o.maxTotal = n
	}
}

type entry[S cmp.Ordered] struct {
	symbol    S
	frequency uint64
	rng       ac.Range
}

// A Model is an adaptive frequency table over an ordered alphabet.
// Model implements the ac.Model interface.
type Model[S cmp.Ordered] struct {
	entries  []entry[S]
	index    map[S]int
	total    uint64
	maxTotal uint64

	dirty   bool
	isReset bool
}

// New returns a Model over the distinct symbols of alphabet, each at frequency 1.
// The order of alphabet does not matter; symbols are kept in ascending order.
func New[S cmp.Ordered](alphabet []S, opts ...Option) *Model[S] {
	o := options{maxTotal: DefaultMaxTotal}
	for _, opt := range opts {
		opt(&o)
	}

	symbols := slices.Clone(alphabet)
	slices.Sort(symbols)
	symbols = slices.Compact(symbols)

	m := &Model[S]{
		entries:  make([]entry[S], len(symbols)),
		index:    make(map[S]int, len(symbols)),
		total:    uint64(len(symbols)),
		maxTotal: o.maxTotal,
		dirty:    true,
		isReset:  true,
	}
	if m.maxTotal > MaxTotalLimit {
		m.maxTotal = MaxTotalLimit
	}
	if m.maxTotal < m.total {
		m.maxTotal = m.total
	}
	for i, s := range symbols {
		m.entries[i] = entry[S]{symbol: s, frequency: 1}
		m.index[s] = i
	}
	m.Commit()
	return m
}

// Update increments the frequency of s.
// An error wrapping ac.ErrUnknownSymbol is returned if s is not in the alphabet,
// in which case the model is left untouched.
func (m *Model[S]) Update(s S) error {
	i, ok := m.index[s]
	if !ok {
		return errors.Wrapf(ac.ErrUnknownSymbol, "%v", s)
	}

	if m.total >= m.maxTotal {
		m.halve()
	}
	m.entries[i].frequency++
	m.total++
	m.dirty = true
	m.isReset = false

	m.Commit()
	return nil
}

// halve halves all frequencies, rounding up so that none drops to zero.
func (m *Model[S]) halve() {
	m.total = 0
	for i := range m.entries {
		f := (m.entries[i].frequency + 1) / 2
		m.entries[i].frequency = f
		m.total += f
	}
}

// Commit recomputes the partition of the coding domain if the frequencies changed.
// Update and Reset call it, so readers never observe a stale partition.
func (m *Model[S]) Commit() {
	if !m.dirty || len(m.entries) == 0 {
		m.dirty = false
		return
	}

	unit := math.MaxUint64 / m.total
	var prev uint64
	for i := range m.entries {
		e := &m.entries[i]
		e.rng.Low = prev
		e.rng.High = prev + e.frequency*unit
		prev = e.rng.High
	}
	// Absorb the rounding loss of the division.
	m.entries[len(m.entries)-1].rng.High = math.MaxUint64

	m.dirty = false
}

// Range returns the interval of s in the coding domain.
func (m *Model[S]) Range(s S) (ac.Range, bool) {
	i, ok := m.index[s]
	if !ok {
		return ac.Range{}, false
	}
	return m.entries[i].rng, true
}

// Symbol returns the symbol whose range contains value.
func (m *Model[S]) Symbol(value uint64) (S, bool) {
	// Ranges are contiguous and ascending, so the first range ending after value is the candidate.
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].rng.High > value
	})
	if i == len(m.entries) || !m.entries[i].rng.Contains(value) {
		var zero S
		return zero, false
	}
	return m.entries[i].symbol, true
}

// Frequency returns the count of s, or 0 if s is not in the alphabet.
func (m *Model[S]) Frequency(s S) uint64 {
	i, ok := m.index[s]
	if !ok {
		return 0
	}
	return m.entries[i].frequency
}

// TotalFrequency returns the sum of all frequencies.
func (m *Model[S]) TotalFrequency() uint64 {
	return m.total
}

// Len returns the size of the alphabet.
func (m *Model[S]) Len() int {
	return len(m.entries)
}

// Alphabet returns the symbols of the model in ascending order.
func (m *Model[S]) Alphabet() []S {
	symbols := make([]S, len(m.entries))
	for i, e := range m.entries {
		symbols[i] = e.symbol
	}
	return symbols
}

// Reset sets every frequency back to 1.
// It does nothing if the model is already in that state.
func (m *Model[S]) Reset() {
	if m.isReset {
		return
	}

	for i := range m.entries {
		m.entries[i].frequency = 1
	}
	m.total = uint64(len(m.entries))
	m.dirty = true
	m.isReset = true

	m.Commit()
}

// IsReset reports whether all frequencies are 1.
func (m *Model[S]) IsReset() bool {
	return m.isReset
}
