package parser

import (
	"testing"

	"github.com/fcgicore/fastcgi/fcgierr"
	"github.com/fcgicore/fastcgi/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseParserFullSequence(t *testing.T) {
	p := NewResponseParser(0)

	part, err := p.Feed(record.Frame{Type: record.TypeStdout, Payload: []byte("hello")})
	require.NoError(t, err)
	assert.Nil(t, part)

	part, err = p.Feed(record.Frame{Type: record.TypeStdout, Payload: nil})
	require.NoError(t, err)
	require.NotNil(t, part)
	assert.Equal(t, ResponsePartStdout, part.Kind)
	assert.Equal(t, []byte("hello"), part.Stdout)
	assert.True(t, part.StdoutPresent)

	part, err = p.Feed(record.Frame{Type: record.TypeStderr, Payload: nil})
	require.NoError(t, err)
	require.NotNil(t, part)
	assert.Equal(t, ResponsePartStderr, part.Kind)
	assert.False(t, part.StderrPresent)

	end := record.EncodeEndRequest(record.EndRequestBody{AppStatus: 0, ProtocolStatus: record.StatusRequestComplete})
	part, err = p.Feed(record.Frame{Type: record.TypeEndRequest, Payload: end})
	require.NoError(t, err)
	require.NotNil(t, part)
	assert.Equal(t, ResponsePartEndRequest, part.Kind)
	assert.True(t, p.Done())
}

func TestResponseParserInterleavedStdoutStderr(t *testing.T) {
	p := NewResponseParser(0)

	_, err := p.Feed(record.Frame{Type: record.TypeStdout, Payload: []byte("out-1")})
	require.NoError(t, err)
	_, err = p.Feed(record.Frame{Type: record.TypeStderr, Payload: []byte("err-1")})
	require.NoError(t, err)
	_, err = p.Feed(record.Frame{Type: record.TypeStdout, Payload: []byte("out-2")})
	require.NoError(t, err)

	part, err := p.Feed(record.Frame{Type: record.TypeStdout, Payload: nil})
	require.NoError(t, err)
	assert.Equal(t, []byte("out-1out-2"), part.Stdout)

	part, err = p.Feed(record.Frame{Type: record.TypeStderr, Payload: nil})
	require.NoError(t, err)
	assert.Equal(t, []byte("err-1"), part.Stderr)
}

func TestResponseParserEndRequestBeforeStdoutEndedIsInvalid(t *testing.T) {
	p := NewResponseParser(0)
	end := record.EncodeEndRequest(record.EndRequestBody{})
	_, err := p.Feed(record.Frame{Type: record.TypeEndRequest, Payload: end})
	assert.ErrorIs(t, err, fcgierr.ErrInvalidState)
}

func TestResponseParserEndRequestMustNotBeEmpty(t *testing.T) {
	p := NewResponseParser(0)
	_, err := p.Feed(record.Frame{Type: record.TypeStdout, Payload: nil})
	require.NoError(t, err)
	_, err = p.Feed(record.Frame{Type: record.TypeStderr, Payload: nil})
	require.NoError(t, err)

	_, err = p.Feed(record.Frame{Type: record.TypeEndRequest, Payload: nil})
	assert.ErrorIs(t, err, fcgierr.ErrInsufficientDataInBuffer)
}

func TestResponseParserUnexpectedType(t *testing.T) {
	p := NewResponseParser(0)
	_, err := p.Feed(record.Frame{Type: record.TypeParams, Payload: []byte("x")})
	var bad *fcgierr.UnexpectedRecordType
	assert.ErrorAs(t, err, &bad)
}
