package fastcgi

import (
	"net"
	"testing"
	"time"

	"github.com/fcgicore/fastcgi/fcgierr"
	"github.com/fcgicore/fastcgi/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, conn net.Conn) *dispatcher {
	t.Helper()
	cfg := DefaultConfig()
	return newDispatcher(NewConn(conn, cfg.Padding), cfg)
}

func TestRegisterReleaseReusesIDsLIFO(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	d := newTestDispatcher(t, clientConn)

	id1, ok := d.register(make(chan record.Frame, 1))
	require.True(t, ok)
	id2, ok := d.register(make(chan record.Frame, 1))
	require.True(t, ok)
	assert.Equal(t, id1+1, id2)

	d.release(id1)
	d.release(id2)

	// Free list is LIFO: the most recently released id comes back first.
	id3, ok := d.register(make(chan record.Frame, 1))
	require.True(t, ok)
	assert.Equal(t, id2, id3)

	id4, ok := d.register(make(chan record.Frame, 1))
	require.True(t, ok)
	assert.Equal(t, id1, id4)
}

func TestRegisterFailsOnceIDSpaceExhausted(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	d := newTestDispatcher(t, clientConn)
	d.nextID = 65535

	_, ok := d.register(make(chan record.Frame, 1))
	assert.False(t, ok)
}

func TestReleaseClosesChannelAndIsIdempotentOnUnknownID(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	d := newTestDispatcher(t, clientConn)
	tx := make(chan record.Frame, 1)
	id, ok := d.register(tx)
	require.True(t, ok)

	d.release(id)
	_, stillOpen := <-tx
	assert.False(t, stillOpen)

	// Releasing an id that is no longer registered must be a no-op, not
	// a double-close panic.
	assert.NotPanics(t, func() { d.release(id) })
}

func TestWriterLoopDrainsCommandsBeforeApplicationFrames(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	d := newTestDispatcher(t, clientConn)
	tx := make(chan record.Frame, 1)
	id, ok := d.register(tx)
	require.True(t, ok)

	// Queue an application frame and a management frame before starting
	// the writer so all three are already buffered when it first looks;
	// the abort command must still reach the wire first regardless.
	d.appCh <- outboundFrame{id: id, typ: record.TypeParams, payload: nil}
	d.mgmtCh <- outboundManagement{typ: record.TypeGetValues, payload: nil}
	d.cmdCh <- command{kind: commandAbort, id: id}

	errCh := make(chan error, 1)
	go func() { errCh <- d.writerLoop() }()

	srvDec := record.NewDecoder(serverConn)
	first, err := srvDec.Decode()
	require.NoError(t, err)
	assert.Equal(t, record.TypeAbortRequest, first.Type)

	// Keep draining so the writer's still-queued mgmt/app frames don't
	// block it forever on the pipe, then tear the connection down.
	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		for {
			if _, err := srvDec.Decode(); err != nil {
				return
			}
		}
	}()

	d.requestClose()
	<-errCh
	serverConn.Close()
	<-drainDone
}

func TestCleanupSkipsAbortForProtocolStatusOutcomes(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	d := newTestDispatcher(t, clientConn)
	tx := make(chan record.Frame, 1)
	id, ok := d.register(tx)
	require.True(t, ok)

	p := newPending(id, d, tx, NewRequest(), time.Now().Add(time.Minute))
	p.began = 1

	p.cleanup(fcgierr.ErrCantMpxConn)
	select {
	case <-d.cmdCh:
		t.Fatal("expected no abort command for a protocol-status outcome")
	default:
	}
}

func TestCleanupAbortsAfterBeginRequestOnGenericError(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	d := newTestDispatcher(t, clientConn)
	tx := make(chan record.Frame, 1)
	id, ok := d.register(tx)
	require.True(t, ok)

	p := newPending(id, d, tx, NewRequest(), time.Now().Add(time.Minute))
	p.began = 1

	p.cleanup(fcgierr.ErrExpired)

	select {
	case cmd := <-d.cmdCh:
		assert.Equal(t, commandAbort, cmd.kind)
		assert.Equal(t, id, cmd.id)
	case <-time.After(time.Second):
		t.Fatal("expected an abort command to be enqueued")
	}
}

func TestCleanupSkipsAbortWhenBeginRequestNeverSent(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	d := newTestDispatcher(t, clientConn)
	tx := make(chan record.Frame, 1)
	id, ok := d.register(tx)
	require.True(t, ok)

	p := newPending(id, d, tx, NewRequest(), time.Now().Add(time.Minute))

	p.cleanup(fcgierr.ErrExpired)
	select {
	case <-d.cmdCh:
		t.Fatal("expected no abort command when BeginRequest was never enqueued")
	default:
	}
}
