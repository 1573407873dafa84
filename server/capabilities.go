// Package server implements the FastCGI application side: a Serve loop
// over one accepted connection that drives the parser package's server-side
// request parser (component C7), dispatches completed requests to a
// Handler, and answers management queries, analogous in shape to
// net/http/fcgi's Serve but built directly on this module's record and
// parser packages instead of the standard library's internal codec.
package server

import (
	"strconv"

	"github.com/fcgicore/fastcgi/record"
)

// Capabilities are the well-known values a server answers GetValues
// queries with (FCGI_MAX_CONNS, FCGI_MAX_REQS, FCGI_MPXS_CONNS), per
// the management record supplement to the data model.
type Capabilities struct {
	MaxConns  int
	MaxReqs   int
	MpxsConns bool
}

// DefaultCapabilities reports one connection, one request per
// connection at a time, multiplexing disabled — the safest answer for
// a Handler that hasn't opted into concurrency.
func DefaultCapabilities() Capabilities {
	return Capabilities{MaxConns: 1, MaxReqs: 1, MpxsConns: false}
}

// Answer resolves a single queried name to its string value, or
// ("", false) if name isn't one this server reports.
func (c Capabilities) Answer(name string) (string, bool) {
	switch name {
	case record.MaxConns:
		return strconv.Itoa(c.MaxConns), true
	case record.MaxReqs:
		return strconv.Itoa(c.MaxReqs), true
	case record.MpxsConns:
		if c.MpxsConns {
			return "1", true
		}
		return "0", true
	default:
		return "", false
	}
}
