// Package chunk implements the stream chunker (component C4): splitting an
// arbitrarily large stream value (a byte slice, a reader, or a
// name-value-pair set) into frame-sized (<=65535 byte) pieces. The
// matching accumulator on the receive side is record/defrag.
package chunk

import (
	"io"

	"github.com/fcgicore/fastcgi/record"
)

// MaxChunk is the largest payload a single stream frame may carry.
const MaxChunk = record.MaxContentLength

// Source produces successive chunks of a stream value. Next writes up to
// len(buf) bytes into buf and returns how many were written. ok is false
// exactly when the source is drained (n is always 0 in that case); the
// caller is then responsible for emitting the empty terminator frame.
// An error return is fatal to the stream (e.g. a single logical unit, such
// as one name-value pair, that cannot fit even an empty buf).
type Source interface {
	Next(buf []byte) (n int, ok bool, err error)
}

// ByteSliceSource chunks a single, already-materialized byte slice.
type ByteSliceSource struct {
	data []byte
	off  int
}

// NewByteSliceSource wraps data for chunked encoding.
func NewByteSliceSource(data []byte) *ByteSliceSource {
	return &ByteSliceSource{data: data}
}

// Next copies min(remaining, len(buf)) bytes per call, as specified.
func (s *ByteSliceSource) Next(buf []byte) (int, bool, error) {
	if s.off >= len(s.data) {
		return 0, false, nil
	}
	n := copy(buf, s.data[s.off:])
	s.off += n
	return n, true, nil
}

// ReaderSource chunks a lazily-produced io.Reader, reading up to len(buf)
// bytes per call.
type ReaderSource struct {
	r    io.Reader
	done bool
}

// NewReaderSource wraps r for chunked encoding.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

func (s *ReaderSource) Next(buf []byte) (int, bool, error) {
	if s.done {
		return 0, false, nil
	}
	n, err := s.r.Read(buf)
	if err != nil {
		if err == io.EOF {
			s.done = true
			if n == 0 {
				return 0, false, nil
			}
			return n, true, nil
		}
		return 0, false, err
	}
	if n == 0 {
		s.done = true
		return 0, false, nil
	}
	return n, true, nil
}

// PairSource chunks a sequence of name-value pairs (Params, GetValues,
// GetValuesResult), packing as many complete pairs as fit per call. A
// single pair that exceeds the buffer capacity is an encode error, per
// spec §4.3.
type PairSource struct {
	pairs []record.Pair
	idx   int
}

// NewPairSource wraps pairs for chunked encoding.
func NewPairSource(pairs []record.Pair) *PairSource {
	return &PairSource{pairs: pairs}
}

func (s *PairSource) Next(buf []byte) (int, bool, error) {
	if s.idx >= len(s.pairs) {
		return 0, false, nil
	}

	first := s.pairs[s.idx]
	if pairSize(first) > len(buf) {
		return 0, false, errInsufficientBuffer
	}

	off := 0
	n := s.idx
	for n < len(s.pairs) {
		p := s.pairs[n]
		size := pairSize(p)
		if off+size > len(buf) {
			break
		}
		off += record.EncodePairs(buf[off:off+size], []record.Pair{p})
		n++
	}
	s.idx = n
	return off, true, nil
}

func pairSize(p record.Pair) int {
	return record.NVPSizeHint([]record.Pair{p})
}

var errInsufficientBuffer = errInsufficientBufferErr{}

type errInsufficientBufferErr struct{}

func (errInsufficientBufferErr) Error() string {
	return "chunk: a single name-value pair exceeds the maximum frame payload size"
}

// EncodeAll drains src into a sequence of chunks, invoking emit for each
// non-empty chunk (reusing a MaxChunk-sized scratch buffer), then returns.
// It does not emit the terminating empty frame itself — spec §4.3 leaves
// that to the caller, since the terminator is a property of the record
// type (e.g. Stdin), not of the chunker.
func EncodeAll(src Source, emit func(chunk []byte) error) error {
	buf := make([]byte, MaxChunk)
	for {
		n, ok, err := src.Next(buf)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if n == 0 {
			continue
		}
		if err := emit(buf[:n]); err != nil {
			return err
		}
	}
}
