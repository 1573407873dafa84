package record

import (
	"encoding/binary"

	"github.com/fcgicore/fastcgi/fcgierr"
)

// KeepConnFlag is bit 0 of the BeginRequest flags byte.
const KeepConnFlag uint8 = 1

// BeginRequestBody is the fixed 8-byte payload of a BeginRequest record.
type BeginRequestBody struct {
	Role     Role
	KeepConn bool
}

// EncodeBeginRequest renders a BeginRequestBody to its 8-byte wire form.
func EncodeBeginRequest(b BeginRequestBody) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], uint16(b.Role))
	if b.KeepConn {
		buf[2] = KeepConnFlag
	}
	return buf
}

// DecodeBeginRequest parses an 8-byte BeginRequest payload. An
// out-of-range role, a wrong length, or non-zero reserved bytes are all
// CorruptedFrame, per spec §4.2.
func DecodeBeginRequest(payload []byte) (BeginRequestBody, error) {
	if len(payload) != 8 {
		return BeginRequestBody{}, fcgierr.ErrCorruptedFrame
	}
	role := Role(binary.BigEndian.Uint16(payload[0:2]))
	if role != RoleResponder && role != RoleAuthorizer && role != RoleFilter {
		return BeginRequestBody{}, fcgierr.ErrCorruptedFrame
	}
	flags := payload[2]
	for _, b := range payload[3:8] {
		if b != 0 {
			return BeginRequestBody{}, fcgierr.ErrCorruptedFrame
		}
	}
	return BeginRequestBody{Role: role, KeepConn: flags&KeepConnFlag != 0}, nil
}
