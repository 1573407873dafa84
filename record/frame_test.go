package record

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, AutomaticPadding{})

	body := []byte("hello world")
	require.NoError(t, enc.EncodeFrame(7, TypeStdout, body))

	dec := NewDecoder(&buf)
	frame, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), frame.ID)
	assert.Equal(t, TypeStdout, frame.Type)
	assert.Equal(t, body, frame.Payload)

	_, err = dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, buf.Len(), "padding bytes must be consumed before EOF")
}

func TestDecoderSkipsPaddingBeforeNextHeader(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, StaticPadding(5))
	require.NoError(t, enc.EncodeFrame(1, TypeParams, []byte("a")))
	require.NoError(t, enc.EncodeFrame(1, TypeParams, nil))

	dec := NewDecoder(&buf)

	first, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), first.Payload)

	second, err := dec.Decode()
	require.NoError(t, err)
	assert.True(t, second.IsEmpty())

	_, err = dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEncodeFrameRejectsOversizedBody(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, NoPadding{})
	err := enc.EncodeFrame(1, TypeStdin, make([]byte, MaxContentLength+1))
	assert.Error(t, err)
}

func TestFrameIsEmpty(t *testing.T) {
	assert.True(t, Frame{Payload: nil}.IsEmpty())
	assert.True(t, Frame{Payload: []byte{}}.IsEmpty())
	assert.False(t, Frame{Payload: []byte{0}}.IsEmpty())
}
