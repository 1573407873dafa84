package fastcgi

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/fcgicore/fastcgi/fcgierr"
	"github.com/fcgicore/fastcgi/record"
	"github.com/fcgicore/fastcgi/service"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Client is a multiplexed FastCGI client (component C9) over one
// bidirectional transport. It is cheap to share: every exported method
// is safe to call concurrently, and a single background dispatcher
// owns the connection. Create one per transport; it cannot be reused
// once its underlying connection closes.
type Client struct {
	disp *dispatcher
	cfg  Config
	rw   io.ReadWriter
	grp  *errgroup.Group

	mgmtMu sync.Mutex
}

// New starts a Client over rw, applying opts on top of DefaultConfig.
// It launches the dispatcher's writer and reader goroutines immediately,
// supervised by an errgroup.Group so Wait can report whichever one
// fails first.
func New(rw io.ReadWriter, opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	conn := NewConn(rw, cfg.Padding)
	disp := newDispatcher(conn, cfg)

	grp := &errgroup.Group{}
	grp.Go(disp.writerLoop)
	grp.Go(disp.readerLoop)

	return &Client{disp: disp, cfg: cfg, rw: rw, grp: grp}
}

// Wait blocks until both the writer and reader goroutines have exited
// (which happens once the connection is closed, gracefully or not),
// returning the first non-nil error either reported.
func (c *Client) Wait() error {
	return c.grp.Wait()
}

// Send assigns req an id and begins transmitting it. The returned
// Pending's Result method must be called to observe the response (and
// to free the id once the request completes).
//
// Send fails with ErrIDAssign if the client's 65,534-slot table is
// full or the dispatcher has already shut down.
func (c *Client) Send(req *Request) (*Pending, error) {
	rx := make(chan record.Frame, c.cfg.RecvChannelLimit)
	reply := make(chan registerReply, 1)

	select {
	case c.disp.cmdCh <- command{kind: commandRegister, tx: rx, reply: reply}:
	case <-c.disp.closing:
		return nil, fcgierr.ErrIDAssign
	}

	select {
	case r := <-reply:
		if !r.ok {
			return nil, fcgierr.ErrIDAssign
		}

		pending := newPending(r.id, c.disp, rx, req, time.Now().Add(c.cfg.Timeout))
		go pending.send()
		return pending, nil

	case <-c.disp.closing:
		return nil, fcgierr.ErrIDAssign
	}
}

// GetValues queries the server's management capabilities (well-known
// names like record.MaxConns, record.MaxReqs, record.MpxsConns).
// Management calls are serialized on this Client since FastCGI
// management records carry no per-call correlation id.
func (c *Client) GetValues(ctx context.Context, names []string) (map[string]string, error) {
	c.mgmtMu.Lock()
	defer c.mgmtMu.Unlock()

	pairs := record.NamesToBarePairs(names)
	payload := make([]byte, record.NVPSizeHint(pairs))
	record.EncodePairs(payload, pairs)

	select {
	case c.disp.mgmtCh <- outboundManagement{typ: record.TypeGetValues, payload: payload}:
	case <-c.disp.closing:
		return nil, fcgierr.ErrClientClosed
	}

	select {
	case frame := <-c.disp.mgmtReply:
		switch frame.Type {
		case record.TypeGetValuesResult:
			return record.DecodeGetValuesResult(frame.Payload)
		case record.TypeUnknownType:
			body, err := record.DecodeUnknownType(frame.Payload)
			if err != nil {
				return nil, err
			}
			return nil, errors.Wrapf(fcgierr.ErrUnknownManagementType, "server rejected management type %v", body.Type)
		default:
			return nil, &fcgierr.UnexpectedRecordType{Type: byte(frame.Type)}
		}

	case <-ctx.Done():
		return nil, ctx.Err()

	case <-c.disp.closing:
		return nil, fcgierr.ErrClientClosed
	}
}

// Err returns the dispatcher's terminal error, or nil while the
// connection is still live.
func (c *Client) Err() error {
	select {
	case <-c.disp.closing:
		return c.disp.closeErr
	default:
		return nil
	}
}

// State reports the dispatcher's lifecycle stage (service.Running
// through service.Done).
func (c *Client) State() service.Status {
	return c.disp.life.Get()
}

// Close stops the dispatcher: in-flight pending requests observe
// ErrClientClosed, and any transport that implements io.Closer is
// closed. It is safe to call more than once.
func (c *Client) Close() error {
	c.disp.requestClose()
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
