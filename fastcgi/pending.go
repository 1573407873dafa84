package fastcgi

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fcgicore/fastcgi/fcgierr"
	"github.com/fcgicore/fastcgi/parser"
	"github.com/fcgicore/fastcgi/record"
	"github.com/fcgicore/fastcgi/record/chunk"
	"github.com/pkg/errors"
)

// Pending is the handle returned by Client.Send: a request that has
// been assigned an id and is being transmitted and answered
// concurrently. Result blocks until the response arrives, the deadline
// passes, or ctx is cancelled.
type Pending struct {
	id   uint16
	disp *dispatcher
	rx   chan record.Frame

	req *Request

	deadline time.Time
	began    int32 // atomic: 1 once BeginRequest has been enqueued

	sendErr chan error
}

func newPending(id uint16, disp *dispatcher, rx chan record.Frame, req *Request, deadline time.Time) *Pending {
	return &Pending{
		id:       id,
		disp:     disp,
		rx:       rx,
		req:      req,
		deadline: deadline,
		sendErr:  make(chan error, 1),
	}
}

// send runs in its own goroutine: it writes BeginRequest, then the
// Params, Stdin and (Filter only) Data streams in order, each frame
// enqueued onto the shared application queue only after the previous
// one was accepted, per spec §4.8's send ordering rule.
func (p *Pending) send() {
	p.sendErr <- p.sendInner()
}

func (p *Pending) sendInner() error {
	begin := record.BeginRequestBody{Role: p.req.Role, KeepConn: p.req.KeepConn}
	if err := p.enqueue(record.TypeBeginRequest, record.EncodeBeginRequest(begin)); err != nil {
		return err
	}
	atomic.StoreInt32(&p.began, 1)

	pairs := record.EncodeParamsPairs(p.req.Params)
	if err := p.sendStream(record.TypeParams, chunk.NewPairSource(pairs)); err != nil {
		return err
	}

	if p.req.Stdin != nil {
		if err := p.sendStream(record.TypeStdin, chunk.NewReaderSource(p.req.Stdin)); err != nil {
			return err
		}
	} else if err := p.enqueue(record.TypeStdin, nil); err != nil {
		return err
	}

	if p.req.Role == record.RoleFilter {
		var src chunk.Source
		if p.req.Data != nil {
			src = chunk.NewReaderSource(p.req.Data)
		} else {
			src = chunk.NewByteSliceSource(nil)
		}
		if err := p.sendStream(record.TypeData, src); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pending) sendStream(typ record.Type, src chunk.Source) error {
	if err := chunk.EncodeAll(src, func(payload []byte) error {
		// EncodeAll reuses payload's backing array for the next chunk,
		// while the writer goroutine may not have sent this one yet.
		return p.enqueue(typ, append([]byte(nil), payload...))
	}); err != nil {
		return err
	}
	return p.enqueue(typ, nil)
}

func (p *Pending) enqueue(typ record.Type, payload []byte) error {
	select {
	case p.disp.appCh <- outboundFrame{id: p.id, typ: typ, payload: payload}:
		return nil
	case <-p.disp.closing:
		return fcgierr.ErrSenderClosed
	}
}

// Result waits for the response, or for ctx / the per-request deadline
// to elapse first. On any terminal outcome it schedules cleanup, which
// aborts the request on the wire when that's still meaningful.
func (p *Pending) Result(ctx context.Context) (*Response, error) {
	resp, err := p.wait(ctx)
	go p.cleanup(err)
	return resp, err
}

func (p *Pending) wait(ctx context.Context) (*Response, error) {
	timer := time.NewTimer(time.Until(p.deadline))
	defer timer.Stop()

	rp := parser.NewResponseParser(p.disp.cfg.MaxStreamPayloadSize)
	resp := &Response{}

	for {
		select {
		case frame, ok := <-p.rx:
			if !ok {
				// shutdown closes every rx after closing, so a teardown
				// reports its cause rather than a generic early close.
				select {
				case <-p.disp.closing:
					return nil, p.disp.closeErr
				default:
				}
				return nil, fcgierr.ErrRecvChannelClosedEarly
			}
			part, err := rp.Feed(frame)
			if err != nil {
				return nil, err
			}
			if part == nil {
				continue
			}
			switch part.Kind {
			case parser.ResponsePartStdout:
				if part.StdoutPresent {
					resp.Stdout = part.Stdout
				}
			case parser.ResponsePartStderr:
				if part.StderrPresent {
					resp.Stderr = part.Stderr
				}
			case parser.ResponsePartEndRequest:
				resp.AppStatus = part.EndRequest.AppStatus
				resp.ProtocolStatus = part.EndRequest.ProtocolStatus
				return resp, resp.ProtocolStatus.Err()
			}

		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timer.C:
			return nil, fcgierr.ErrExpired

		case <-p.disp.closing:
			// closeErr is set before closing is closed, so this is
			// race-free; it carries the real teardown cause (a framing
			// or transport error) rather than a generic "closed".
			return nil, p.disp.closeErr
		}
	}
}

// cleanup enqueues an Abort command unless err implies the server
// already sent EndRequest (a protocol-status failure or a successful
// result), mirroring spec §4.8's abort-on-cleanup rule.
func (p *Pending) cleanup(err error) {
	abortRequired := err != nil && atomic.LoadInt32(&p.began) == 1

	switch {
	case errors.Is(err, fcgierr.ErrCantMpxConn),
		errors.Is(err, fcgierr.ErrOverloaded),
		errors.Is(err, fcgierr.ErrUnknownRole):
		abortRequired = false
	}

	if abortRequired {
		select {
		case p.disp.cmdCh <- command{kind: commandAbort, id: p.id}:
		case <-p.disp.closing:
		}
	}
}
