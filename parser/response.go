package parser

import (
	"github.com/fcgicore/fastcgi/fcgierr"
	"github.com/fcgicore/fastcgi/record"
	"github.com/fcgicore/fastcgi/record/defrag"
)

type streamPhase uint8

const (
	phaseInit streamPhase = iota
	phaseStarted
	phaseEnded
)

// ResponsePartKind tags which field of ResponsePart is populated.
type ResponsePartKind uint8

const (
	ResponsePartStdout ResponsePartKind = iota
	ResponsePartStderr
	ResponsePartEndRequest
)

// ResponsePart is one fully-assembled piece of an incoming response.
type ResponsePart struct {
	Kind ResponsePartKind

	Stdout        []byte
	StdoutPresent bool

	Stderr        []byte
	StderrPresent bool

	EndRequest record.EndRequestBody
}

// ResponseParser is the client-side parser state machine (component C6):
// independent Stdout/Stderr phases (Init -> Started -> Ended), each with
// its own defragmenter since the two streams may interleave on the wire,
// followed by EndRequest once Stdout has ended and Stderr has either
// ended or never started.
type ResponseParser struct {
	out, err     streamPhase
	finished     bool
	outDefrag    *defrag.Defragmenter
	errDefrag    *defrag.Defragmenter
}

// NewResponseParser returns a parser ready to receive one response's
// frames, with independent stdout/stderr defragmenters each capped at
// maxStreamSize bytes (<=0 for the default).
func NewResponseParser(maxStreamSize int64) *ResponseParser {
	return &ResponseParser{
		outDefrag: defrag.New(maxStreamSize),
		errDefrag: defrag.New(maxStreamSize),
	}
}

// Feed advances the parser with the next frame for this request id.
func (p *ResponseParser) Feed(frame record.Frame) (*ResponsePart, error) {
	empty := frame.IsEmpty()

	switch frame.Type {
	case record.TypeStdout:
		return p.feedStream(&p.out, p.outDefrag, empty, frame.Payload, ResponsePartStdout)

	case record.TypeStderr:
		return p.feedStream(&p.err, p.errDefrag, empty, frame.Payload, ResponsePartStderr)

	case record.TypeEndRequest:
		if empty {
			return nil, fcgierr.ErrInsufficientDataInBuffer
		}
		if !(p.out == phaseEnded && (p.err == phaseInit || p.err == phaseEnded)) {
			return nil, fcgierr.ErrInvalidState
		}
		body, err := record.DecodeEndRequest(frame.Payload)
		if err != nil {
			return nil, err
		}
		p.finished = true
		return &ResponsePart{Kind: ResponsePartEndRequest, EndRequest: body}, nil

	default:
		return nil, unexpectedRecordType(frame.Type)
	}
}

func (p *ResponseParser) feedStream(phase *streamPhase, d *defrag.Defragmenter, empty bool, payload []byte, kind ResponsePartKind) (*ResponsePart, error) {
	switch *phase {
	case phaseInit:
		if !empty {
			if err := d.Feed(payload); err != nil {
				return nil, err
			}
			*phase = phaseStarted
			return nil, nil
		}
		*phase = phaseEnded
		return &ResponsePart{Kind: kind}, nil

	case phaseStarted:
		if !empty {
			if err := d.Feed(payload); err != nil {
				return nil, err
			}
			return nil, nil
		}
		present := d.Len() > 0
		var data []byte
		if present {
			data = append([]byte(nil), d.Bytes()...)
		}
		d.Reset()
		*phase = phaseEnded
		part := &ResponsePart{Kind: kind}
		if kind == ResponsePartStdout {
			part.Stdout, part.StdoutPresent = data, present
		} else {
			part.Stderr, part.StderrPresent = data, present
		}
		return part, nil

	default: // phaseEnded
		return nil, fcgierr.ErrInvalidState
	}
}

// Done reports whether the parser has delivered EndRequest.
func (p *ResponseParser) Done() bool { return p.finished }
