package record

import (
	"io"

	"github.com/pkg/errors"
)

// Frame is an unparsed record as seen by the codec: a request id, a record
// type, and the raw payload bytes (padding never reaches this layer).
type Frame struct {
	ID      uint16
	Type    Type
	Payload []byte
}

// IsEmpty reports whether this frame is the empty terminator of a stream.
func (f Frame) IsEmpty() bool { return len(f.Payload) == 0 }

// Decoder pulls frames off a byte source one at a time. It is the Go
// rendering of the three-state pull machine described by the protocol:
// AwaitHeader -> AwaitBody -> SkipPadding -> AwaitHeader. Because the
// transport contract here is a blocking io.Reader rather than a
// non-blocking buffer, the states are folded into a single Decode call,
// but the key property is preserved: padding from the previous frame is
// skipped at the *start* of the next Decode call, so a decoded Frame is
// handed back without waiting on its own padding bytes.
type Decoder struct {
	r              io.Reader
	pendingPadding uint8
	header         [HeaderLen]byte
}

// NewDecoder returns a Decoder reading records from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads and returns the next frame. Errors from a malformed header
// (IncompatibleVersion, CorruptedHeader) are fatal to the connection, per
// spec §4.1/§7; all other I/O errors are returned wrapped with context
// (errors.Is still matches the underlying error, e.g. io.EOF).
func (d *Decoder) Decode() (Frame, error) {
	if d.pendingPadding > 0 {
		if err := skipN(d.r, int(d.pendingPadding)); err != nil {
			return Frame{}, errors.Wrap(err, "record: skipping padding")
		}
		d.pendingPadding = 0
	}

	if _, err := io.ReadFull(d.r, d.header[:]); err != nil {
		return Frame{}, errors.Wrap(err, "record: reading header")
	}

	h, err := DecodeHeader(d.header[:])
	if err != nil {
		return Frame{}, err
	}

	payload := make([]byte, h.ContentLength)
	if h.ContentLength > 0 {
		if _, err := io.ReadFull(d.r, payload); err != nil {
			return Frame{}, errors.Wrap(err, "record: reading payload")
		}
	}

	d.pendingPadding = h.PaddingLength

	return Frame{ID: h.ID, Type: h.Type, Payload: payload}, nil
}

func skipN(r io.Reader, n int) error {
	if n == 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, r, int64(n))
	return err
}

// Encoder emits frames to a byte sink, applying a padding policy per call.
type Encoder struct {
	w       io.Writer
	padding Padding
	scratch []byte
}

// NewEncoder returns an Encoder writing records to w under the given
// padding policy. A nil policy means no padding is ever emitted.
func NewEncoder(w io.Writer, padding Padding) *Encoder {
	return &Encoder{w: w, padding: padding}
}

// EncodeFrame serializes a single record: header, body, and zero padding
// bytes. Content length is derived from len(body); the caller stages the
// body bytes first, matching spec §4.1 ("callers stage the body bytes
// first, then call the encoder with the header").
func (e *Encoder) EncodeFrame(id uint16, typ Type, body []byte) error {
	if len(body) > MaxContentLength {
		return errors.New("record: content length exceeds 65535 bytes")
	}

	contentLength := uint16(len(body))
	padLen := PadLen(e.padding, contentLength)

	total := HeaderLen + len(body) + int(padLen)
	if cap(e.scratch) < total {
		e.scratch = make([]byte, total)
	}
	buf := e.scratch[:total]

	h := Header{Type: typ, ID: id, ContentLength: contentLength, PaddingLength: padLen}
	EncodeHeader(h, buf[:HeaderLen])
	n := copy(buf[HeaderLen:], body)
	for i := HeaderLen + n; i < total; i++ {
		buf[i] = 0
	}

	_, err := e.w.Write(buf)
	return errors.Wrap(err, "record: writing frame")
}
