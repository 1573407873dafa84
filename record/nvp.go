package record

import (
	"encoding/binary"

	"github.com/fcgicore/fastcgi/fcgierr"
)

// Pair is a single FastCGI name-value pair. Value is nil to represent
// "value absent" (legal only for GetValues queries); an empty, non-nil
// Value represents a present-but-empty value.
type Pair struct {
	Name  []byte
	Value []byte
}

// ValuePresent reports whether this pair carries a value at all, as
// opposed to a GetValues-style bare name.
func (p Pair) ValuePresent() bool { return p.Value != nil }

// sizeHint returns the encoded length of the pair's length prefixes plus
// its name/value bytes.
func (p Pair) sizeHint() int {
	n := lengthPrefixSize(len(p.Name)) + len(p.Name)
	n += lengthPrefixSize(len(p.Value)) + len(p.Value)
	return n
}

func lengthPrefixSize(n int) int {
	if n > 127 {
		return 4
	}
	return 1
}

// EncodeLength writes a FastCGI length prefix: one byte if n <= 127 (top
// bit 0), otherwise four bytes with the top bit set and the lower 31 bits
// holding n.
func EncodeLength(dst []byte, n uint32) int {
	if n > 127 {
		binary.BigEndian.PutUint32(dst, n|0x80000000)
		return 4
	}
	dst[0] = byte(n)
	return 1
}

// DecodeLength reads a FastCGI length prefix from the start of src,
// returning the decoded value and the number of bytes consumed. Returns
// (0, 0) if src is too short to hold a full length field.
func DecodeLength(src []byte) (uint32, int) {
	if len(src) == 0 {
		return 0, 0
	}
	if src[0]>>7 == 0 {
		return uint32(src[0]), 1
	}
	if len(src) < 4 {
		return 0, 0
	}
	n := binary.BigEndian.Uint32(src) &^ (1 << 31)
	return n, 4
}

// EncodePairs writes a sequence of name-value pairs into dst, which must
// have enough capacity (use NVPSizeHint to compute it). A nil Value is
// encoded the same as an empty one (a zero-length value-length prefix),
// which is exactly the GetValues wire shape.
func EncodePairs(dst []byte, pairs []Pair) int {
	off := 0
	lenBuf := make([]byte, 4)
	for _, p := range pairs {
		n := EncodeLength(lenBuf, uint32(len(p.Name)))
		off += copy(dst[off:], lenBuf[:n])

		valueLen := len(p.Value)
		n = EncodeLength(lenBuf, uint32(valueLen))
		off += copy(dst[off:], lenBuf[:n])

		off += copy(dst[off:], p.Name)
		off += copy(dst[off:], p.Value)
	}
	return off
}

// NVPSizeHint returns the total encoded size of pairs.
func NVPSizeHint(pairs []Pair) int {
	total := 0
	for _, p := range pairs {
		total += p.sizeHint()
	}
	return total
}

// DecodePairs parses the entire contents of src as a sequence of
// name-value pairs. It does not itself enforce which record types may
// carry a value and which must not (a zero-length value decodes the
// same as a present-but-empty one); per-record callers enforce that
// invariant themselves, e.g. DecodeGetValues rejects any pair whose
// value length is non-zero.
//
// A name length of 0 or a payload shorter than declared is CorruptedFrame,
// per spec §4.2.
func DecodePairs(src []byte) ([]Pair, error) {
	var pairs []Pair
	for len(src) > 0 {
		nameLen, n := DecodeLength(src)
		if n == 0 {
			return nil, fcgierr.ErrCorruptedFrame
		}
		src = src[n:]

		valueLen, n := DecodeLength(src)
		if n == 0 {
			return nil, fcgierr.ErrCorruptedFrame
		}
		src = src[n:]

		if nameLen == 0 {
			return nil, fcgierr.ErrCorruptedFrame
		}
		if uint64(nameLen)+uint64(valueLen) > uint64(len(src)) {
			return nil, fcgierr.ErrCorruptedFrame
		}

		name := make([]byte, nameLen)
		copy(name, src[:nameLen])
		src = src[nameLen:]

		var value []byte
		if valueLen > 0 {
			value = make([]byte, valueLen)
			copy(value, src[:valueLen])
		} else {
			value = []byte{}
		}
		src = src[valueLen:]

		pairs = append(pairs, Pair{Name: name, Value: value})
	}
	return pairs, nil
}

// PairsToMap converts a decoded pair sequence into a map[string]string,
// the representation callers of Params/GetValuesResult actually use.
func PairsToMap(pairs []Pair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[string(p.Name)] = string(p.Value)
	}
	return m
}

// MapToPairs converts a map[string]string into an ordering-stable-enough
// pair sequence ready for EncodePairs. Order is not significant on the
// wire; callers that need deterministic output should sort m's keys
// themselves before building pairs by hand.
func MapToPairs(m map[string]string) []Pair {
	pairs := make([]Pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair{Name: []byte(k), Value: []byte(v)})
	}
	return pairs
}

// NamesToBarePairs builds a GetValues-style query: names with no value.
func NamesToBarePairs(names []string) []Pair {
	pairs := make([]Pair, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, Pair{Name: []byte(name), Value: nil})
	}
	return pairs
}
