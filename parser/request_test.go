package parser

import (
	"testing"

	"github.com/fcgicore/fastcgi/fcgierr"
	"github.com/fcgicore/fastcgi/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedRequest(t *testing.T, p *RequestParser, frames ...record.Frame) []*RequestPart {
	t.Helper()
	var parts []*RequestPart
	for _, f := range frames {
		part, err := p.Feed(f)
		require.NoError(t, err)
		if part != nil {
			parts = append(parts, part)
		}
	}
	return parts
}

func TestRequestParserResponderFullSequence(t *testing.T) {
	p := NewRequestParser(0)

	begin := record.EncodeBeginRequest(record.BeginRequestBody{Role: record.RoleResponder, KeepConn: true})
	paramPairs := record.EncodeParamsPairs(map[string]string{"REQUEST_METHOD": "GET"})
	paramsPayload := make([]byte, record.NVPSizeHint(paramPairs))
	record.EncodePairs(paramsPayload, paramPairs)

	parts := feedRequest(t, p,
		record.Frame{ID: 1, Type: record.TypeBeginRequest, Payload: begin},
		record.Frame{ID: 1, Type: record.TypeParams, Payload: paramsPayload},
		record.Frame{ID: 1, Type: record.TypeParams, Payload: nil},
		record.Frame{ID: 1, Type: record.TypeStdin, Payload: []byte("body")},
		record.Frame{ID: 1, Type: record.TypeStdin, Payload: nil},
	)

	require.Len(t, parts, 3)
	assert.Equal(t, RequestPartBeginRequest, parts[0].Kind)
	assert.Equal(t, record.RoleResponder, parts[0].BeginRequest.Role)
	assert.Equal(t, RequestPartParams, parts[1].Kind)
	assert.Equal(t, map[string]string{"REQUEST_METHOD": "GET"}, parts[1].Params)
	assert.Equal(t, RequestPartStdin, parts[2].Kind)
	assert.Equal(t, []byte("body"), parts[2].Stdin)
	assert.True(t, parts[2].StdinPresent)
	assert.True(t, p.Done())
}

func TestRequestParserFilterRequiresData(t *testing.T) {
	p := NewRequestParser(0)
	begin := record.EncodeBeginRequest(record.BeginRequestBody{Role: record.RoleFilter})

	parts := feedRequest(t, p,
		record.Frame{ID: 1, Type: record.TypeBeginRequest, Payload: begin},
		record.Frame{ID: 1, Type: record.TypeParams, Payload: []byte{1, 1, 'x', '1'}},
		record.Frame{ID: 1, Type: record.TypeParams, Payload: nil},
		record.Frame{ID: 1, Type: record.TypeStdin, Payload: nil},
	)
	require.Len(t, parts, 3)
	assert.False(t, p.Done(), "Filter must wait for a Data stream before finishing")

	_, err := p.Feed(record.Frame{ID: 1, Type: record.TypeData, Payload: nil})
	assert.ErrorIs(t, err, fcgierr.ErrUnexpectedEndOfStream)

	part, err := p.Feed(record.Frame{ID: 1, Type: record.TypeData, Payload: []byte("filter-data")})
	require.NoError(t, err)
	assert.Nil(t, part)
	part, err = p.Feed(record.Frame{ID: 1, Type: record.TypeData, Payload: nil})
	require.NoError(t, err)
	require.NotNil(t, part)
	assert.Equal(t, RequestPartData, part.Kind)
	assert.Equal(t, []byte("filter-data"), part.Data)
	assert.True(t, p.Done())
}

func TestRequestParserEmptyParamsIsError(t *testing.T) {
	p := NewRequestParser(0)
	begin := record.EncodeBeginRequest(record.BeginRequestBody{Role: record.RoleResponder})

	_, err := p.Feed(record.Frame{ID: 1, Type: record.TypeBeginRequest, Payload: begin})
	require.NoError(t, err)

	_, err = p.Feed(record.Frame{ID: 1, Type: record.TypeParams, Payload: nil})
	assert.ErrorIs(t, err, fcgierr.ErrUnexpectedEndOfStream)
}

func TestRequestParserUnexpectedRecordType(t *testing.T) {
	p := NewRequestParser(0)
	_, err := p.Feed(record.Frame{ID: 1, Type: record.TypeStdin, Payload: []byte("x")})

	var bad *fcgierr.UnexpectedRecordType
	assert.ErrorAs(t, err, &bad)
	assert.ErrorIs(t, err, fcgierr.ErrInvalidState)
}

func TestRequestParserAbortFromParams(t *testing.T) {
	p := NewRequestParser(0)
	begin := record.EncodeBeginRequest(record.BeginRequestBody{Role: record.RoleResponder})

	_, err := p.Feed(record.Frame{ID: 1, Type: record.TypeBeginRequest, Payload: begin})
	require.NoError(t, err)

	part, err := p.Feed(record.Frame{ID: 1, Type: record.TypeAbortRequest, Payload: nil})
	require.NoError(t, err)
	require.NotNil(t, part)
	assert.Equal(t, RequestPartAbortRequest, part.Kind)
	assert.True(t, p.Done())
}

func TestRequestParserAbortBeforeBeginRequestIsUnexpected(t *testing.T) {
	p := NewRequestParser(0)
	_, err := p.Feed(record.Frame{ID: 1, Type: record.TypeAbortRequest, Payload: nil})
	assert.ErrorIs(t, err, fcgierr.ErrUnexpectedAbortRequest)
}

func TestRequestParserRejectsFeedAfterFinished(t *testing.T) {
	p := NewRequestParser(0)
	begin := record.EncodeBeginRequest(record.BeginRequestBody{Role: record.RoleResponder})
	feedRequest(t, p,
		record.Frame{ID: 1, Type: record.TypeBeginRequest, Payload: begin},
		record.Frame{ID: 1, Type: record.TypeParams, Payload: []byte{1, 1, 'x', '1'}},
		record.Frame{ID: 1, Type: record.TypeParams, Payload: nil},
		record.Frame{ID: 1, Type: record.TypeStdin, Payload: nil},
	)
	require.True(t, p.Done())

	_, err := p.Feed(record.Frame{ID: 1, Type: record.TypeStdin, Payload: nil})
	assert.ErrorIs(t, err, fcgierr.ErrInvalidState)
}
