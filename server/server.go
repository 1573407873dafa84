package server

import (
	"io"
	"sync"

	"github.com/fcgicore/fastcgi"
	"github.com/fcgicore/fastcgi/fcgilog"
	"github.com/fcgicore/fastcgi/parser"
	"github.com/fcgicore/fastcgi/record"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Request is one fully-assembled inbound FastCGI request, handed to a
// Handler once the server parser has validated BeginRequest, Params,
// Stdin and (for Filter) Data.
type Request struct {
	ID       uint16
	Role     record.Role
	KeepConn bool
	Params   map[string]string
	Stdin    []byte
	Data     []byte
}

// ResponseWriter streams a Handler's reply back to the client: writes
// go to Stdout, ErrWriter to Stderr, and End sends the terminating
// EndRequest record. Only the first End call writes anything; if the
// Handler returns without calling End, the server calls
// End(0, record.StatusRequestComplete) for it.
type ResponseWriter interface {
	io.Writer
	ErrWriter() io.Writer
	End(appStatus uint32, status record.ProtocolStatus) error
}

// Handler answers one FastCGI request.
type Handler interface {
	ServeFastCGI(w ResponseWriter, r *Request)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(w ResponseWriter, r *Request)

func (f HandlerFunc) ServeFastCGI(w ResponseWriter, r *Request) { f(w, r) }

// Server answers FastCGI requests on accepted connections: one or more
// application requests multiplexed onto a connection's ids, plus
// management queries addressed to id 0.
type Server struct {
	Handler      Handler
	Capabilities Capabilities
	Padding      record.Padding
	Logger       logrus.FieldLogger
}

// New returns a Server with the given Handler and DefaultCapabilities.
func New(h Handler) *Server {
	return &Server{
		Handler:      h,
		Capabilities: DefaultCapabilities(),
		Padding:      record.AutomaticPadding{},
		Logger:       fcgilog.Discard(),
	}
}

// ServeConn drives one connection until the transport closes or a
// fatal framing error occurs. Each request id is handled by its own
// goroutine once fully parsed; writes to the shared connection are
// serialized by writeMu.
func (s *Server) ServeConn(rw io.ReadWriter) error {
	conn := fastcgi.NewConn(rw, s.Padding)

	var writeMu sync.Mutex
	parsers := make(map[uint16]*parser.RequestParser)
	partial := make(map[uint16]*Request)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		frame, err := conn.PollFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "server: read frame")
		}

		if record.IsManagement(frame.ID) {
			s.handleManagement(conn, &writeMu, frame)
			continue
		}

		rp, ok := parsers[frame.ID]
		if !ok {
			rp = parser.NewRequestParser(0)
			parsers[frame.ID] = rp
			partial[frame.ID] = &Request{ID: frame.ID, Params: make(map[string]string)}
		}

		part, err := rp.Feed(frame)
		if err != nil {
			s.Logger.WithFields(fcgilog.RecordFields(frame.ID, frame.Type.String())).WithError(err).Warn("server: request parse error")
			delete(parsers, frame.ID)
			delete(partial, frame.ID)
			continue
		}
		if part == nil {
			continue
		}

		req := partial[frame.ID]
		switch part.Kind {
		case parser.RequestPartBeginRequest:
			req.Role = part.BeginRequest.Role
			req.KeepConn = part.BeginRequest.KeepConn

		case parser.RequestPartParams:
			req.Params = part.Params
			s.Logger.WithFields(fcgilog.RecordFields(frame.ID, frame.Type.String())).
				WithField("params", fcgilog.DumpPairs(part.Params)).
				Debug("server: assembled request params")

		case parser.RequestPartStdin:
			if part.StdinPresent {
				req.Stdin = part.Stdin
			}
			if req.Role != record.RoleFilter {
				s.dispatch(conn, &writeMu, &wg, req)
				delete(parsers, frame.ID)
				delete(partial, frame.ID)
			}

		case parser.RequestPartData:
			req.Data = part.Data
			s.dispatch(conn, &writeMu, &wg, req)
			delete(parsers, frame.ID)
			delete(partial, frame.ID)

		case parser.RequestPartAbortRequest:
			delete(parsers, frame.ID)
			delete(partial, frame.ID)
		}
	}
}

func (s *Server) dispatch(conn *fastcgi.Conn, writeMu *sync.Mutex, wg *sync.WaitGroup, req *Request) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := newResponseWriter(conn, writeMu, req.ID)
		s.Handler.ServeFastCGI(w, req)
		w.finish()
	}()
}

func (s *Server) handleManagement(conn *fastcgi.Conn, writeMu *sync.Mutex, frame record.Frame) {
	writeMu.Lock()
	defer writeMu.Unlock()

	switch frame.Type {
	case record.TypeGetValues:
		names, err := record.DecodeGetValues(frame.Payload)
		if err != nil {
			s.Logger.WithError(err).Warn("server: malformed GetValues")
			return
		}
		result := make(map[string]string)
		for _, name := range names {
			if v, ok := s.Capabilities.Answer(name); ok {
				result[name] = v
			}
		}
		s.Logger.WithField("result", fcgilog.DumpPairs(result)).Debug("server: answering GetValues")
		pairs := record.MapToPairs(result)
		payload := make([]byte, record.NVPSizeHint(pairs))
		record.EncodePairs(payload, pairs)
		if err := conn.FeedFrame(0, record.TypeGetValuesResult, payload); err != nil {
			s.Logger.WithError(err).Warn("server: write GetValuesResult")
		}

	default:
		payload := record.EncodeUnknownType(record.UnknownTypeBody{Type: frame.Type})
		if err := conn.FeedFrame(0, record.TypeUnknownType, payload); err != nil {
			s.Logger.WithError(err).Warn("server: write UnknownType")
		}
	}
}
