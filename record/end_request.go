package record

import (
	"encoding/binary"

	"github.com/fcgicore/fastcgi/fcgierr"
)

// EndRequestBody is the fixed 8-byte payload of an EndRequest record.
type EndRequestBody struct {
	AppStatus      uint32
	ProtocolStatus ProtocolStatus
}

// EncodeEndRequest renders an EndRequestBody to its 8-byte wire form.
func EncodeEndRequest(b EndRequestBody) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], b.AppStatus)
	buf[4] = uint8(b.ProtocolStatus)
	return buf
}

// DecodeEndRequest parses an 8-byte EndRequest payload. An unknown
// protocol_status value maps to StatusUnknownRole per spec §4.2 ("unknown
// values map to UnknownRole"); non-zero reserved bytes are CorruptedFrame.
func DecodeEndRequest(payload []byte) (EndRequestBody, error) {
	if len(payload) != 8 {
		return EndRequestBody{}, fcgierr.ErrCorruptedFrame
	}
	for _, b := range payload[5:8] {
		if b != 0 {
			return EndRequestBody{}, fcgierr.ErrCorruptedFrame
		}
	}
	status := ProtocolStatus(payload[4])
	switch status {
	case StatusRequestComplete, StatusCantMpxConn, StatusOverloaded, StatusUnknownRole:
	default:
		status = StatusUnknownRole
	}
	return EndRequestBody{
		AppStatus:      binary.BigEndian.Uint32(payload[0:4]),
		ProtocolStatus: status,
	}, nil
}
