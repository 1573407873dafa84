package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleGetSet(t *testing.T) {
	var l Lifecycle
	assert.Equal(t, Running, l.Get())

	l.Set(ReceiveOnly)
	assert.True(t, l.Is(ReceiveOnly))
}

func TestLifecycleAdvanceSucceedsOnlyFromExpectedState(t *testing.T) {
	var l Lifecycle

	assert.True(t, l.Advance(Running, StoppedSending))
	assert.Equal(t, StoppedSending, l.Get())

	assert.False(t, l.Advance(Running, StoppedSending), "already past Running")
	assert.True(t, l.Advance(StoppedSending, Done))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Running", Running.String())
	assert.Equal(t, "StoppedSending", StoppedSending.String())
	assert.Equal(t, "ReceiveOnly", ReceiveOnly.String())
	assert.Equal(t, "Done", Done.String())
	assert.Equal(t, "Unknown", Status(99).String())
}
