// Package parser implements the two record-parser state machines
// described by the protocol: the server-side request parser (this file,
// component C7) and the client-side response parser (response.go,
// component C6). Both validate a legal sequence of frames and assemble it
// into high-level parts. The request parser shares one
// record/defrag.Defragmenter across its stream phases; the response
// parser keeps one each for Stdout and Stderr.
package parser

import (
	"github.com/fcgicore/fastcgi/fcgierr"
	"github.com/fcgicore/fastcgi/record"
	"github.com/fcgicore/fastcgi/record/defrag"
)

type requestState uint8

const (
	stateBeginRequest requestState = iota
	stateParams
	stateStdin
	stateData
	stateFinished
	stateAborted
)

// RequestPartKind tags which field of RequestPart is populated.
type RequestPartKind uint8

const (
	RequestPartBeginRequest RequestPartKind = iota
	RequestPartParams
	RequestPartStdin
	RequestPartData
	RequestPartAbortRequest
)

// RequestPart is one fully-assembled piece of an incoming request, yielded
// by RequestParser.Feed exactly once per part per spec property 6.
type RequestPart struct {
	Kind RequestPartKind

	BeginRequest record.BeginRequestBody
	Params       map[string]string

	// Stdin is present (StdinPresent) iff at least one non-empty Stdin
	// frame was received; an all-empty Stdin stream is legal (spec §4.4).
	Stdin        []byte
	StdinPresent bool

	// Data is always present when emitted: spec §4.6 requires a non-empty
	// Data stream for Filter requests, so an empty one is an error, not a
	// nil Part.
	Data []byte
}

// RequestParser is the server-side parser state machine (component C7):
// BeginRequest -> Params -> Stdin -> (Data if Filter else Finished) ->
// Finished, plus a terminal Aborted reachable from any middle state.
type RequestParser struct {
	state  requestState
	role   record.Role
	defrag *defrag.Defragmenter
}

// NewRequestParser returns a parser ready to receive a new request's
// frames, sharing one defragmenter capped at maxStreamSize bytes (<=0 for
// the default) across all of its stream phases.
func NewRequestParser(maxStreamSize int64) *RequestParser {
	return &RequestParser{
		state:  stateBeginRequest,
		defrag: defrag.New(maxStreamSize),
	}
}

// Feed advances the parser with the next frame for this request id. It
// returns a non-nil RequestPart exactly when one was fully assembled;
// (nil, nil) means the frame was consumed but no part completed yet.
func (p *RequestParser) Feed(frame record.Frame) (*RequestPart, error) {
	empty := frame.IsEmpty()

	if empty && frame.Type == record.TypeAbortRequest {
		switch p.state {
		case stateParams, stateStdin, stateData:
			p.state = stateAborted
			return &RequestPart{Kind: RequestPartAbortRequest}, nil
		default:
			return nil, fcgierr.ErrUnexpectedAbortRequest
		}
	}

	switch p.state {
	case stateBeginRequest:
		if frame.Type != record.TypeBeginRequest || empty {
			return nil, unexpectedRecordType(frame.Type)
		}
		body, err := record.DecodeBeginRequest(frame.Payload)
		if err != nil {
			return nil, err
		}
		p.role = body.Role
		p.state = stateParams
		return &RequestPart{Kind: RequestPartBeginRequest, BeginRequest: body}, nil

	case stateParams:
		if frame.Type != record.TypeParams {
			return nil, unexpectedRecordType(frame.Type)
		}
		if !empty {
			if err := p.defrag.Feed(frame.Payload); err != nil {
				return nil, err
			}
			return nil, nil
		}
		if p.defrag.Len() == 0 {
			return nil, fcgierr.ErrUnexpectedEndOfStream
		}
		params, err := record.DecodeParams(p.defrag.Bytes())
		p.defrag.Reset()
		if err != nil {
			return nil, err
		}
		p.state = stateStdin
		return &RequestPart{Kind: RequestPartParams, Params: params}, nil

	case stateStdin:
		if frame.Type != record.TypeStdin {
			return nil, unexpectedRecordType(frame.Type)
		}
		if !empty {
			if err := p.defrag.Feed(frame.Payload); err != nil {
				return nil, err
			}
			return nil, nil
		}
		present := p.defrag.Len() > 0
		var stdin []byte
		if present {
			stdin = append([]byte(nil), p.defrag.Bytes()...)
		}
		p.defrag.Reset()
		if p.role == record.RoleFilter {
			p.state = stateData
		} else {
			p.state = stateFinished
		}
		return &RequestPart{Kind: RequestPartStdin, Stdin: stdin, StdinPresent: present}, nil

	case stateData:
		if frame.Type != record.TypeData {
			return nil, unexpectedRecordType(frame.Type)
		}
		if !empty {
			if err := p.defrag.Feed(frame.Payload); err != nil {
				return nil, err
			}
			return nil, nil
		}
		if p.defrag.Len() == 0 {
			return nil, fcgierr.ErrUnexpectedEndOfStream
		}
		data := append([]byte(nil), p.defrag.Bytes()...)
		p.defrag.Reset()
		p.state = stateFinished
		return &RequestPart{Kind: RequestPartData, Data: data}, nil

	case stateFinished, stateAborted:
		return nil, fcgierr.ErrInvalidState

	default:
		return nil, fcgierr.ErrInvalidState
	}
}

// Done reports whether the parser has reached a terminal state (Finished
// or Aborted) and will accept no further frames.
func (p *RequestParser) Done() bool {
	return p.state == stateFinished || p.state == stateAborted
}

// Role returns the role fixed by the BeginRequest frame, valid only once
// Feed has processed it.
func (p *RequestParser) Role() record.Role { return p.role }

func unexpectedRecordType(t record.Type) error {
	return &fcgierr.UnexpectedRecordType{Type: byte(t)}
}
