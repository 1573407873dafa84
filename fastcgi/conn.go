package fastcgi

import (
	"io"

	"github.com/fcgicore/fastcgi/record"
	"github.com/fcgicore/fastcgi/record/chunk"
)

// Conn is the connection façade (component C8) over one byte transport,
// combining the frame codec and the stream chunker. It keeps no
// per-request state and holds no parser: routing and parsing the frames
// PollFrame returns is left to the caller. The server package and the
// multiplexed Client's dispatcher both build on it, as do tests that
// exercise one request/response pair directly.
type Conn struct {
	dec     *record.Decoder
	enc     *record.Encoder
	padding record.Padding
}

// NewConn wraps rw for simplex request/response traffic.
func NewConn(rw io.ReadWriter, padding record.Padding) *Conn {
	return &Conn{
		dec:     record.NewDecoder(rw),
		enc:     record.NewEncoder(rw, padding),
		padding: padding,
	}
}

// FeedFrame serializes a single discrete record.
func (c *Conn) FeedFrame(id uint16, typ record.Type, payload []byte) error {
	return c.enc.EncodeFrame(id, typ, payload)
}

// FeedStream drives src to completion as a sequence of typ frames,
// followed by the empty terminator frame.
func (c *Conn) FeedStream(id uint16, typ record.Type, src chunk.Source) error {
	err := chunk.EncodeAll(src, func(payload []byte) error {
		return c.enc.EncodeFrame(id, typ, payload)
	})
	if err != nil {
		return err
	}
	return c.FeedEmpty(id, typ)
}

// FeedEmpty emits the empty terminator frame for a stream type.
func (c *Conn) FeedEmpty(id uint16, typ record.Type) error {
	return c.enc.EncodeFrame(id, typ, nil)
}

// PollFrame reads the next frame off the transport. Management frames
// (id 0) are returned as-is; the caller is responsible for routing them
// separately from the per-request parser.
func (c *Conn) PollFrame() (record.Frame, error) {
	return c.dec.Decode()
}
