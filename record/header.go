package record

import (
	"encoding/binary"

	"github.com/fcgicore/fastcgi/fcgierr"
)

// Header is the 8-byte record header: version, type, request id, content
// length, padding length, and a reserved byte that must be zero.
type Header struct {
	Version       uint8
	Type          Type
	ID            uint16
	ContentLength uint16
	PaddingLength uint8
}

// EncodeHeader writes the 8-byte wire representation of h into dst, which
// must have at least HeaderLen bytes of capacity starting at dst[:0].
func EncodeHeader(h Header, dst []byte) {
	_ = dst[7]
	dst[0] = Version
	dst[1] = byte(h.Type)
	binary.BigEndian.PutUint16(dst[2:4], h.ID)
	binary.BigEndian.PutUint16(dst[4:6], h.ContentLength)
	dst[6] = h.PaddingLength
	dst[7] = 0
}

// DecodeHeader parses the 8-byte wire representation in src (which must be
// at least HeaderLen bytes). It validates the version and reserved byte,
// the only two invariants that are fatal to the whole connection rather
// than to one request.
func DecodeHeader(src []byte) (Header, error) {
	_ = src[7]
	if src[0] != Version {
		return Header{}, fcgierr.ErrIncompatibleVersion
	}
	if src[7] != 0 {
		return Header{}, fcgierr.ErrCorruptedHeader
	}
	return Header{
		Version:       src[0],
		Type:          Type(src[1]),
		ID:            binary.BigEndian.Uint16(src[2:4]),
		ContentLength: binary.BigEndian.Uint16(src[4:6]),
		PaddingLength: src[6],
	}, nil
}

// Padding is the policy used to compute a record's padding_length from its
// content length when emitting a frame.
type Padding interface {
	padLen(contentLength uint16) uint8
}

// AutomaticPadding pads content to the next multiple of 8 bytes, the
// default and the behavior this spec preserves from the original source.
type AutomaticPadding struct{}

func (AutomaticPadding) padLen(n uint16) uint8 {
	if n == 0 {
		return 0
	}
	length := uint32(n)
	return uint8(((length+7)&^7 - length))
}

// AdaptivePadding calls a caller-supplied function of the content length.
type AdaptivePadding func(uint16) uint8

func (f AdaptivePadding) padLen(n uint16) uint8 { return f(n) }

// StaticPadding always applies a fixed padding count.
type StaticPadding uint8

func (s StaticPadding) padLen(uint16) uint8 { return uint8(s) }

// NoPadding never pads.
type NoPadding struct{}

func (NoPadding) padLen(uint16) uint8 { return 0 }

// PadLen computes the padding_length for a frame of content length n under
// policy p. A nil policy behaves like NoPadding.
func PadLen(p Padding, n uint16) uint8 {
	if p == nil {
		return 0
	}
	return p.padLen(n)
}
