package server

import (
	"io"
	"sync"

	"github.com/fcgicore/fastcgi"
	"github.com/fcgicore/fastcgi/record"
	"github.com/fcgicore/fastcgi/record/chunk"
)

// responseWriter streams one request's Stdout/Stderr back over a
// shared connection, serialized by writeMu since several requests'
// goroutines may be replying concurrently (spec §4.8's multiplexing
// applies symmetrically to the server side of a connection).
type responseWriter struct {
	conn    *fastcgi.Conn
	writeMu *sync.Mutex
	id      uint16

	ended bool
}

func newResponseWriter(conn *fastcgi.Conn, writeMu *sync.Mutex, id uint16) *responseWriter {
	return &responseWriter{conn: conn, writeMu: writeMu, id: id}
}

// Write streams p as one or more Stdout frames (without a terminator;
// the stream stays open until End).
func (w *responseWriter) Write(p []byte) (int, error) {
	if err := w.writeStream(record.TypeStdout, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *responseWriter) ErrWriter() io.Writer {
	return stderrWriter{w}
}

type stderrWriter struct{ w *responseWriter }

func (s stderrWriter) Write(p []byte) (int, error) {
	if err := s.w.writeStream(record.TypeStderr, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *responseWriter) writeStream(typ record.Type, p []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	return chunk.EncodeAll(chunk.NewByteSliceSource(p), func(part []byte) error {
		return w.conn.FeedFrame(w.id, typ, part)
	})
}

// End closes both streams and sends the terminating EndRequest record.
// Only the first call writes anything; later calls return nil. ServeConn
// calls it on the Handler's behalf if the Handler didn't.
func (w *responseWriter) End(appStatus uint32, status record.ProtocolStatus) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.ended {
		return nil
	}
	w.ended = true

	if err := w.conn.FeedEmpty(w.id, record.TypeStdout); err != nil {
		return err
	}
	if err := w.conn.FeedEmpty(w.id, record.TypeStderr); err != nil {
		return err
	}
	body := record.EncodeEndRequest(record.EndRequestBody{AppStatus: appStatus, ProtocolStatus: status})
	return w.conn.FeedFrame(w.id, record.TypeEndRequest, body)
}

func (w *responseWriter) finish() {
	_ = w.End(0, record.StatusRequestComplete)
}
