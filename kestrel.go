// Package kestrel provides lossless compression based on adaptive arithmetic coding.
//
// The coder itself lives in the ac/witten package and the adaptive order-0
// model in the freq package. This package wraps them into a small container
// that records what the raw coder stream does not carry: the alphabet and the
// number of symbols.
//
// Below is an example of using the command line programs to compress Lincoln's Gettysburg address:
//    go run ./compress testdata/gettysburg.txt > gettys.kpk
//    go run ./decompress gettys.kpk > gettys.txt
//    diff testdata/gettysburg.txt gettys.txt
//
// Reference:
// Witten, Ian H.; Neal, Radford M.; Cleary, John G. (June 1987). "Arithmetic Coding for Data Compression". Communications of the ACM 30 (6): 520–540.
package kestrel

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"io"
	"math"

	"github.com/fumin/kestrel/ac"
	"github.com/fumin/kestrel/ac/witten"
	"github.com/fumin/kestrel/freq"
	"github.com/pkg/errors"
)

const (
	magic   = "KPK"
	version = 1

	maxAlphabet = 256
)

// ErrFormat is returned when the input is not a valid container.
var ErrFormat = errors.New("kestrel: invalid format")

// EncodeSymbols arithmetic codes symbols with an adaptive model over alphabet.
// The returned stream carries neither the alphabet nor len(symbols).
func EncodeSymbols[S cmp.Ordered](alphabet, symbols []S) ([]byte, error) {
	enc := witten.NewEncoder[S](freq.New(alphabet))
	var dst []byte
	for _, s := range symbols {
		var err error
		dst, err = enc.Encode(dst, s)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return enc.Finish(dst), nil
}

// DecodeSymbols decodes n symbols from a stream produced by EncodeSymbols with the same alphabet.
func DecodeSymbols[S cmp.Ordered](alphabet []S, stream []byte, n int) ([]S, error) {
	dec := witten.NewDecoder[S](freq.New(alphabet), stream)
	symbols := make([]S, 0, min(n, 1<<20))
	for i := 0; i < n; i++ {
		s, err := dec.Decode()
		if err != nil {
			if errors.Cause(err) == ac.ErrEndOfStream {
				return nil, errors.Wrapf(ac.ErrCorruptInput, "stream ended after %d of %d symbols", i, n)
			}
			return nil, errors.Wrapf(err, "symbol %d", i)
		}
		symbols = append(symbols, s)
	}
	return symbols, nil
}

// Encode compresses src into a self-describing container.
func Encode(src []byte) ([]byte, error) {
	var seen [maxAlphabet]bool
	for _, b := range src {
		seen[b] = true
	}
	// Ascending, the order in which the model partitions the domain.
	alphabet := make([]byte, 0, maxAlphabet)
	for b, ok := range seen {
		if ok {
			alphabet = append(alphabet, byte(b))
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(magic)+1+2*binary.MaxVarintLen64+len(alphabet)+len(src)/2))
	buf.WriteString(magic)
	buf.WriteByte(version)
	buf.Write(binary.AppendUvarint(nil, uint64(len(alphabet))))
	buf.Write(alphabet)
	buf.Write(binary.AppendUvarint(nil, uint64(len(src))))
	if len(src) == 0 {
		return buf.Bytes(), nil
	}

	stream, err := EncodeSymbols(alphabet, src)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	buf.Write(stream)
	return buf.Bytes(), nil
}

// Decode decompresses a container produced by Encode.
func Decode(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte(magic)) {
		return nil, errors.Wrap(ErrFormat, "bad magic")
	}
	data = data[len(magic):]
	if len(data) == 0 || data[0] != version {
		return nil, errors.Wrap(ErrFormat, "unsupported version")
	}
	data = data[1:]

	alphabetLen, n := binary.Uvarint(data)
	if n <= 0 || alphabetLen > maxAlphabet || uint64(len(data)-n) < alphabetLen {
		return nil, errors.Wrap(ErrFormat, "bad alphabet length")
	}
	data = data[n:]
	alphabet := data[:alphabetLen]
	data = data[alphabetLen:]
	for i := 1; i < len(alphabet); i++ {
		if alphabet[i-1] >= alphabet[i] {
			return nil, errors.Wrap(ErrFormat, "alphabet not sorted")
		}
	}

	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, errors.Wrap(ErrFormat, "bad symbol count")
	}
	data = data[n:]
	if count == 0 {
		return []byte{}, nil
	}
	if alphabetLen == 0 || count > math.MaxInt {
		return nil, errors.Wrapf(ErrFormat, "%d symbols over alphabet of %d", count, alphabetLen)
	}

	out, err := DecodeSymbols(alphabet, data, int(count))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return out, nil
}

// Compress reads all of r and writes its compressed form to w.
func Compress(w io.Writer, r io.Reader) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "")
	}
	data, err := Encode(src)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Decompress reads a container from r and writes the original data to w.
func Decompress(w io.Writer, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "")
	}
	out, err := Decode(data)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if _, err := w.Write(out); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
