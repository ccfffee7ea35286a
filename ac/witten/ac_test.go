package witten

import (
	"bytes"
	"math"
	"math/rand"
	"os"
	"testing"

	"github.com/fumin/kestrel/ac"
	"github.com/fumin/kestrel/freq"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func encode[S any](t *testing.T, model ac.Model[S], x []S) []byte {
	enc := NewEncoder(model)
	var encoded []byte
	for _, s := range x {
		var err error
		encoded, err = enc.Encode(encoded, s)
		if err != nil {
			t.Fatalf("%+v", err)
		}
	}
	return enc.Finish(encoded)
}

func decode[S any](t *testing.T, model ac.Model[S], encoded []byte, n int) []S {
	dec := NewDecoder(model, encoded)
	decoded := make([]S, 0, n)
	for i := 0; i < n; i++ {
		s, err := dec.Decode()
		if err != nil {
			t.Fatalf("%d: %+v", i, err)
		}
		decoded = append(decoded, s)
	}
	return decoded
}

func testRoundTrip[S comparable](t *testing.T, newModel func() ac.Model[S], x []S) []byte {
	encoded := encode(t, newModel(), x)
	t.Logf("encoded bytes: %d, original symbols: %d", len(encoded), len(x))

	decoded := decode(t, newModel(), encoded, len(x))
	if diff := cmp.Diff(x, decoded); diff != "" {
		t.Fatalf("decoded mismatch (-want +got):\n%s", diff)
	}
	return encoded
}

func TestEncodeGettysburg(t *testing.T) {
	contents, err := os.ReadFile("testdata/gettysburg.txt")
	if err != nil {
		t.Fatalf("%v", err)
	}
	model := func() ac.Model[byte] { return freq.New(contents) }

	encoded := testRoundTrip(t, model, contents)
	if len(encoded) >= len(contents) {
		t.Errorf("no compression: %d >= %d", len(encoded), len(contents))
	}
}

func TestEncodeSmallAlphabet(t *testing.T) {
	x := []byte("AABBBCCDDE")
	testRoundTrip(t, func() ac.Model[byte] { return freq.New(x) }, x)
}

func TestEncodeEmpty(t *testing.T) {
	model := freq.New([]byte("abc"))
	encoded := encode[byte](t, model, nil)

	// "01" and padding: the final interval is the whole domain.
	if !bytes.Equal(encoded, []byte{0x40}) {
		t.Fatalf("%08b", encoded)
	}

	dec := NewDecoder[byte](model, encoded)
	if dec.EndOfStream() {
		t.Fatalf("unexpected end of stream")
	}
}

func TestEncodeDeterministic(t *testing.T) {
	x := []byte("abracadabra, abracadabra")
	a := encode[byte](t, freq.New(x), x)
	b := encode[byte](t, freq.New(x), x)
	if !bytes.Equal(a, b) {
		t.Fatalf("%x != %x", a, b)
	}

	// An encoder is reusable after Finish.
	model := freq.New(x)
	enc := NewEncoder[byte](model)
	for round := 0; round < 2; round++ {
		var out []byte
		for _, s := range x {
			var err error
			if out, err = enc.Encode(out, s); err != nil {
				t.Fatalf("%+v", err)
			}
		}
		out = enc.Finish(out)
		if !bytes.Equal(a, out) {
			t.Fatalf("round %d: %x != %x", round, a, out)
		}
		if !model.IsReset() {
			t.Fatalf("round %d: model not reset after Finish", round)
		}
	}
}

func TestEncodeRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	testCases := []struct {
		name     string
		alphabet int
		length   int
		skew     float64
		opts     []freq.Option
	}{
		{name: "single symbol", alphabet: 1, length: 1000},
		{name: "binary", alphabet: 2, length: 5000},
		{name: "bytes uniform", alphabet: 256, length: 20000},
		{name: "bytes skewed", alphabet: 256, length: 20000, skew: 0.97},
		{name: "highly skewed", alphabet: 4, length: 50000, skew: 0.9999},
		{name: "small ceiling", alphabet: 16, length: 20000, skew: 0.8, opts: []freq.Option{freq.WithMaxTotal(64)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			alphabet := make([]uint16, tc.alphabet)
			for i := range alphabet {
				alphabet[i] = uint16(i * 7)
			}
			x := make([]uint16, tc.length)
			for i := range x {
				if rng.Float64() < tc.skew {
					x[i] = alphabet[0]
				} else {
					x[i] = alphabet[rng.Intn(len(alphabet))]
				}
			}
			testRoundTrip(t, func() ac.Model[uint16] { return freq.New(alphabet, tc.opts...) }, x)
		})
	}
}

func TestEncodeRunes(t *testing.T) {
	x := []rune("日本語のテキスト、テキスト。")
	testRoundTrip(t, func() ac.Model[rune] { return freq.New(x) }, x)
}

func TestEncodeUnknownSymbol(t *testing.T) {
	x := []byte("abcabc")
	model := freq.New(x)
	enc := NewEncoder[byte](model)

	var out []byte
	for i, s := range x {
		var err error
		if out, err = enc.Encode(out, s); err != nil {
			t.Fatalf("%+v", err)
		}
		if i == 2 {
			_, err := enc.Encode(out, 'z')
			if errors.Cause(err) != ac.ErrUnknownSymbol {
				t.Fatalf("%+v", err)
			}
		}
	}
	out = enc.Finish(out)

	decoded := decode[byte](t, freq.New(x), out, len(x))
	if !bytes.Equal(x, decoded) {
		t.Fatalf("%q != %q", x, decoded)
	}
}

func TestDecodeEndOfStream(t *testing.T) {
	dec := NewDecoder[byte](freq.New([]byte("abc")), nil)
	if !dec.EndOfStream() {
		t.Fatalf("empty input should be at end of stream")
	}
	for i := 0; i < 3; i++ {
		s, err := dec.Decode()
		if err != ac.ErrEndOfStream || s != 0 {
			t.Fatalf("%d: %v %v", i, s, err)
		}
	}

	// Decoding past the real data eventually runs out of input.
	x := []byte("cabbage")
	newModel := func() *freq.Model[byte] { return freq.New(x, freq.WithMaxTotal(16)) }
	encoded := encode[byte](t, newModel(), x)
	model := newModel()
	dec = NewDecoder[byte](model, encoded)
	for i := 0; i < len(x); i++ {
		s, err := dec.Decode()
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if s != x[i] {
			t.Fatalf("%d: %c != %c", i, x[i], s)
		}
	}
	for i := 0; ; i++ {
		if i > 100000 {
			t.Fatalf("no end of stream")
		}
		if _, err := dec.Decode(); err == ac.ErrEndOfStream {
			break
		} else if err != nil {
			t.Fatalf("%+v", err)
		}
	}
	if !dec.EndOfStream() || !model.IsReset() {
		t.Fatalf("%v %v", dec.EndOfStream(), model.IsReset())
	}
}

func TestDecodeCorrupt(t *testing.T) {
	// A code value of all ones falls in the sliver above the last symbol's range.
	src := bytes.Repeat([]byte{0xff}, 8)
	dec := NewDecoder[byte](freq.New([]byte("abc")), src)
	if _, err := dec.Decode(); errors.Cause(err) != ac.ErrCorruptInput {
		t.Fatalf("%+v", err)
	}
}

func TestNarrowTarget(t *testing.T) {
	low, high := narrow(0, math.MaxUint64, ac.Range{Low: 0, High: ac.Half})
	if low != 0 || high != ac.Half-1 {
		t.Fatalf("%#x %#x", low, high)
	}
	low, high = narrow(ac.Quarter, ac.ThreeQuarters-1, ac.Range{Low: ac.Half, High: math.MaxUint64})
	if low != ac.Half || high != ac.ThreeQuarters-2 {
		t.Fatalf("%#x %#x", low, high)
	}

	testCases := []struct {
		low, high, code uint64
		want            uint64
	}{
		{low: 0, high: math.MaxUint64, code: 12345, want: 12345},
		{low: ac.Quarter, high: ac.ThreeQuarters - 1, code: ac.Quarter, want: 1},
		{low: ac.Quarter, high: ac.ThreeQuarters - 1, code: ac.Half, want: ac.Half + 1},
		{low: ac.Quarter, high: ac.ThreeQuarters - 1, code: ac.ThreeQuarters - 1, want: math.MaxUint64},
	}
	for _, tc := range testCases {
		if got := target(tc.low, tc.high, tc.code); got != tc.want {
			t.Errorf("target(%#x, %#x, %#x) = %#x, want %#x", tc.low, tc.high, tc.code, got, tc.want)
		}
	}
}
