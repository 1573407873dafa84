// Package record implements the FastCGI wire format: the fixed 8-byte
// header, the record type taxonomy, and the per-record-type body codecs.
// It has no notion of connections, state machines, or concurrency — those
// live in parser, record/chunk, record/defrag, and the root fastcgi package.
package record

import "github.com/fcgicore/fastcgi/fcgierr"

// Version is the only FastCGI protocol version this module understands.
// Any other value on the wire is a fatal IncompatibleVersion error.
const Version uint8 = 1

// Type identifies a FastCGI record type (FCGI_BEGIN_REQUEST and friends).
type Type uint8

// Application record types (IDs 1-8), scoped to a non-zero request id.
const (
	TypeBeginRequest Type = 1
	TypeAbortRequest Type = 2
	TypeEndRequest   Type = 3
	TypeParams       Type = 4
	TypeStdin        Type = 5
	TypeStdout       Type = 6
	TypeStderr       Type = 7
	TypeData         Type = 8
)

// Management record types (IDs 9+), addressing the peer rather than a
// specific request (request id 0).
const (
	TypeGetValues       Type = 9
	TypeGetValuesResult Type = 10
	TypeUnknownType     Type = 11
)

func (t Type) String() string {
	switch t {
	case TypeBeginRequest:
		return "FCGI_BEGIN_REQUEST"
	case TypeAbortRequest:
		return "FCGI_ABORT_REQUEST"
	case TypeEndRequest:
		return "FCGI_END_REQUEST"
	case TypeParams:
		return "FCGI_PARAMS"
	case TypeStdin:
		return "FCGI_STDIN"
	case TypeStdout:
		return "FCGI_STDOUT"
	case TypeStderr:
		return "FCGI_STDERR"
	case TypeData:
		return "FCGI_DATA"
	case TypeGetValues:
		return "FCGI_GET_VALUES"
	case TypeGetValuesResult:
		return "FCGI_GET_VALUES_RESULT"
	case TypeUnknownType:
		return "FCGI_UNKNOWN_TYPE"
	default:
		return "FCGI_UNKNOWN"
	}
}

// DataKind distinguishes a record type with a single fixed-shape payload
// (Discrete) from one carrying an unbounded byte sequence terminated by an
// empty frame (Stream).
type DataKind uint8

const (
	Discrete DataKind = iota
	Stream
)

// SentBy identifies which endpoint is permitted to originate a record type.
type SentBy uint8

const (
	SentByClient SentBy = iota
	SentByServer
)

// Meta is the classification table entry consulted by the codec and the
// parser state machines: a small static map from record type to
// {data kind, sent-by}, playing the role the Rust source gives to sealed
// traits on each record type.
type Meta struct {
	DataKind DataKind
	SentBy   SentBy
}

var metaTable = map[Type]Meta{
	TypeBeginRequest:    {Discrete, SentByClient},
	TypeAbortRequest:    {Discrete, SentByClient},
	TypeEndRequest:      {Discrete, SentByServer},
	TypeParams:          {Stream, SentByClient},
	TypeStdin:           {Stream, SentByClient},
	TypeStdout:          {Stream, SentByServer},
	TypeStderr:          {Stream, SentByServer},
	TypeData:            {Stream, SentByClient},
	TypeGetValues:       {Discrete, SentByClient},
	TypeGetValuesResult: {Discrete, SentByServer},
	TypeUnknownType:     {Discrete, SentByServer},
}

// MetaOf returns the classification for t. User-defined management types
// (id >= 12) are classified as discrete, server-sent, since this module's
// scope ends at routing/classification for those (spec §1 Non-goals).
func MetaOf(t Type) Meta {
	if m, ok := metaTable[t]; ok {
		return m
	}
	if t >= TypeUnknownType {
		return Meta{Discrete, SentByServer}
	}
	return Meta{Discrete, SentByClient}
}

// IsManagement reports whether id 0 (a management record, addressing the
// peer endpoint rather than a specific request) was used.
func IsManagement(id uint16) bool { return id == 0 }

// IsStream reports whether t is one of the five stream-typed records.
func IsStream(t Type) bool { return MetaOf(t).DataKind == Stream }

// Role is the BeginRequest role field.
type Role uint16

const (
	RoleResponder Role = 1
	RoleAuthorizer Role = 2
	RoleFilter     Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleResponder:
		return "Responder"
	case RoleAuthorizer:
		return "Authorizer"
	case RoleFilter:
		return "Filter"
	default:
		return "UnknownRole"
	}
}

// ProtocolStatus is the EndRequest protocol_status field.
type ProtocolStatus uint8

const (
	StatusRequestComplete ProtocolStatus = 0
	StatusCantMpxConn     ProtocolStatus = 1
	StatusOverloaded      ProtocolStatus = 2
	StatusUnknownRole     ProtocolStatus = 3
)

func (s ProtocolStatus) String() string {
	switch s {
	case StatusRequestComplete:
		return "RequestComplete"
	case StatusCantMpxConn:
		return "CantMpxConn"
	case StatusOverloaded:
		return "Overloaded"
	case StatusUnknownRole:
		return "UnknownRole"
	default:
		return "UnknownRole"
	}
}

// Err maps a non-complete protocol status to its fcgierr sentinel, or
// nil for StatusRequestComplete. It lives here rather than in fcgierr
// to avoid a dependency cycle (fcgierr describes errors independent of
// the wire types).
func (s ProtocolStatus) Err() error {
	switch s {
	case StatusRequestComplete:
		return nil
	case StatusCantMpxConn:
		return fcgierr.ErrCantMpxConn
	case StatusOverloaded:
		return fcgierr.ErrOverloaded
	default:
		return fcgierr.ErrUnknownRole
	}
}

// Well-known GetValues query names (FastCGI spec §GetValues).
const (
	MaxConns  = "FCGI_MAX_CONNS"
	MaxReqs   = "FCGI_MAX_REQS"
	MpxsConns = "FCGI_MPXS_CONNS"
)

// MaxContentLength is the largest payload a single record can carry.
const MaxContentLength = 65535

// MaxPadding is the largest padding_length a single record can carry.
const MaxPadding = 255

// HeaderLen is the fixed 8-byte header size.
const HeaderLen = 8
