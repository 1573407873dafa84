package record

import "github.com/fcgicore/fastcgi/fcgierr"

// EncodeAbortRequest returns the zero-length AbortRequest payload.
func EncodeAbortRequest() []byte { return nil }

// DecodeAbortRequest validates that an AbortRequest payload is empty, as
// required by spec §3.
func DecodeAbortRequest(payload []byte) error {
	if len(payload) != 0 {
		return fcgierr.ErrCorruptedFrame
	}
	return nil
}
