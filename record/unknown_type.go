package record

import "github.com/fcgicore/fastcgi/fcgierr"

// UnknownTypeBody is the fixed 8-byte payload of an UnknownType record: the
// offending record type byte followed by 7 reserved bytes.
type UnknownTypeBody struct {
	Type Type
}

// EncodeUnknownType renders an UnknownTypeBody to its 8-byte wire form.
func EncodeUnknownType(b UnknownTypeBody) []byte {
	buf := make([]byte, 8)
	buf[0] = byte(b.Type)
	return buf
}

// DecodeUnknownType parses an 8-byte UnknownType payload.
func DecodeUnknownType(payload []byte) (UnknownTypeBody, error) {
	if len(payload) != 8 {
		return UnknownTypeBody{}, fcgierr.ErrCorruptedFrame
	}
	for _, b := range payload[1:8] {
		if b != 0 {
			return UnknownTypeBody{}, fcgierr.ErrCorruptedFrame
		}
	}
	return UnknownTypeBody{Type: Type(payload[0])}, nil
}
