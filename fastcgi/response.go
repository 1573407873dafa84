package fastcgi

import "github.com/fcgicore/fastcgi/record"

// Response is the fully-assembled result of one request: the
// concatenated Stdout/Stderr streams plus the application and protocol
// status carried by EndRequest.
type Response struct {
	Stdout []byte
	Stderr []byte

	AppStatus      uint32
	ProtocolStatus record.ProtocolStatus
}
