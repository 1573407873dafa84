// Package fastcgi implements a multiplexed FastCGI client (component C9)
// on top of the record, record/chunk, record/defrag and parser packages:
// a single Client owns one transport connection and fans concurrent
// Send calls out over up to 65,534 simultaneously open request ids.
package fastcgi

import (
	"io"

	"github.com/fcgicore/fastcgi/record"
)

// Request is a thin builder over the wire-level fields a BeginRequest /
// Params / Stdin / Data sequence needs. It carries no behavior of its
// own; Client.Send is what turns it into frames.
type Request struct {
	Role     record.Role
	KeepConn bool
	Params   map[string]string
	Stdin    io.Reader

	// Data is only sent when Role is record.RoleFilter; it is ignored
	// (and may be nil) for Responder and Authorizer requests.
	Data io.Reader
}

// OptionRequest mutates a Request under construction, in the style of a
// functional option.
type OptionRequest func(*Request)

// NewRequest returns a Responder request with an empty Params map, ready
// to be customized by opts.
func NewRequest(opts ...OptionRequest) *Request {
	req := &Request{
		Role:   record.RoleResponder,
		Params: make(map[string]string),
	}

	for _, opt := range opts {
		opt(req)
	}

	return req
}

// WithRole sets the request's role.
func WithRole(role record.Role) OptionRequest {
	return func(req *Request) { req.Role = role }
}

// WithKeepConn marks the request as not closing the connection once its
// response has been delivered.
func WithKeepConn() OptionRequest {
	return func(req *Request) { req.KeepConn = true }
}

// WithParam sets a single Params entry.
func WithParam(name, value string) OptionRequest {
	return func(req *Request) { req.Params[name] = value }
}

// WithParams merges a whole Params map into the request.
func WithParams(params map[string]string) OptionRequest {
	return func(req *Request) {
		for k, v := range params {
			req.Params[k] = v
		}
	}
}

// WithStdin sets the request's stdin stream.
func WithStdin(r io.Reader) OptionRequest {
	return func(req *Request) { req.Stdin = r }
}

// WithData sets the request's data stream, used only for Filter requests.
func WithData(r io.Reader) OptionRequest {
	return func(req *Request) { req.Data = r }
}
