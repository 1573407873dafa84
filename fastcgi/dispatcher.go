package fastcgi

import (
	"io"
	"runtime"
	"sync"

	"github.com/fcgicore/fastcgi/fcgierr"
	"github.com/fcgicore/fastcgi/record"
	"github.com/fcgicore/fastcgi/service"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// commandKind distinguishes the two control messages the dispatcher's
// command channel carries. Commands take priority over outbound data,
// per spec.
type commandKind uint8

const (
	commandRegister commandKind = iota
	commandAbort
)

type command struct {
	kind commandKind

	// register
	tx    chan record.Frame
	reply chan registerReply

	// abort
	id uint16
}

type registerReply struct {
	id uint16
	ok bool
}

type outboundFrame struct {
	id      uint16
	typ     record.Type
	payload []byte
}

type outboundManagement struct {
	typ     record.Type
	payload []byte
}

// dispatcher owns the transport, the ID slot table and the outbound
// send order for one Client (component C9). It runs as a writer
// goroutine and a reader goroutine, both started from Client.New; the
// slot table is the only state shared between them, guarded by mu.
type dispatcher struct {
	conn    *Conn
	logger  logrus.FieldLogger
	cfg     Config

	cmdCh  chan command
	mgmtCh chan outboundManagement
	appCh  chan outboundFrame

	mu      sync.Mutex
	slots   map[uint16]chan record.Frame
	nextID  uint16
	free    []uint16

	mgmtReply chan record.Frame

	life    service.Lifecycle
	closing chan struct{}
	closeErr error
	once     sync.Once
}

func newDispatcher(conn *Conn, cfg Config) *dispatcher {
	return &dispatcher{
		conn:      conn,
		logger:    cfg.Logger,
		cfg:       cfg,
		cmdCh:     make(chan command, cfg.SendChannelLimit),
		mgmtCh:    make(chan outboundManagement, cfg.SendChannelLimit),
		appCh:     make(chan outboundFrame, cfg.SendChannelLimit),
		slots:     make(map[uint16]chan record.Frame),
		nextID:    1,
		mgmtReply: make(chan record.Frame, 1),
		closing:   make(chan struct{}),
	}
}

// shutdown records the terminal error (first one wins) and unblocks
// every goroutine waiting on the dispatcher, advancing the lifecycle
// straight to Done (spec's Running -> StoppedSending -> ReceiveOnly ->
// Done collapses to an immediate Done on any fatal transport error,
// since nothing further can be sent or received).
func (d *dispatcher) shutdown(err error) {
	d.once.Do(func() {
		d.closeErr = err
		d.life.Set(service.Done)
		close(d.closing)

		d.mu.Lock()
		for id, tx := range d.slots {
			close(tx)
			delete(d.slots, id)
		}
		d.mu.Unlock()
	})
}

// requestClose advances the lifecycle to StoppedSending (a graceful,
// caller-initiated close, as opposed to shutdown's fatal-error path)
// before tearing the dispatcher down the same way.
func (d *dispatcher) requestClose() {
	d.life.Advance(service.Running, service.StoppedSending)
	d.shutdown(fcgierr.ErrClientClosed)
}

// register allocates the next free slot, bounded at 65,534 concurrent
// IDs (id 0 is reserved for management records, 65535 is excluded to
// keep the +1 arithmetic below simple and matches the reference
// implementation's slab capacity).
func (d *dispatcher) register(tx chan record.Frame) (uint16, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var id uint16
	if n := len(d.free); n > 0 {
		id = d.free[n-1]
		d.free = d.free[:n-1]
	} else if d.nextID != 0 && d.nextID < 65535 {
		id = d.nextID
		d.nextID++
	} else {
		return 0, false
	}

	d.slots[id] = tx
	return id, true
}

func (d *dispatcher) release(id uint16) {
	d.mu.Lock()
	if tx, ok := d.slots[id]; ok {
		delete(d.slots, id)
		close(tx)
		d.free = append(d.free, id)
	}
	d.mu.Unlock()
}

// writerLoop drains cmdCh, then mgmtCh, then appCh, in that priority
// order, per spec §4.8's dispatch loop. Abort commands race the
// sending goroutine's own in-order frames for the same id if that
// goroutine has enqueued BeginRequest onto appCh but the writer hasn't
// drained it yet; this mirrors a known rough edge in the reference
// implementation rather than a hazard introduced here.
// writerLoop runs until the dispatcher shuts down, returning the
// terminal error (nil on a graceful, caller-initiated close) so the
// errgroup supervising it in Client.New can report it.
func (d *dispatcher) writerLoop() error {
	exit := func() error {
		if errors.Is(d.closeErr, fcgierr.ErrClientClosed) {
			return nil
		}
		return d.closeErr
	}

	sent := 0
	for {
		select {
		case cmd := <-d.cmdCh:
			d.handleCommand(cmd)
			continue
		default:
		}

		select {
		case m := <-d.mgmtCh:
			if err := d.conn.FeedFrame(0, m.typ, m.payload); err != nil {
				d.shutdown(errors.Wrap(err, "fastcgi: write management record"))
				return exit()
			}
			continue
		default:
		}

		select {
		case cmd := <-d.cmdCh:
			d.handleCommand(cmd)
		case m := <-d.mgmtCh:
			if err := d.conn.FeedFrame(0, m.typ, m.payload); err != nil {
				d.shutdown(errors.Wrap(err, "fastcgi: write management record"))
				return exit()
			}
		case f := <-d.appCh:
			d.mu.Lock()
			_, ok := d.slots[f.id]
			d.mu.Unlock()
			if !ok {
				continue
			}
			if err := d.conn.FeedFrame(f.id, f.typ, f.payload); err != nil {
				d.shutdown(errors.Wrap(err, "fastcgi: write application record"))
				return exit()
			}
			sent++
			if d.cfg.YieldSenderAfter > 0 && sent%d.cfg.YieldSenderAfter == 0 {
				runtime.Gosched()
			}
		case <-d.closing:
			return exit()
		}
	}
}

func (d *dispatcher) handleCommand(cmd command) {
	switch cmd.kind {
	case commandRegister:
		id, ok := d.register(cmd.tx)
		if ok {
			cmd.reply <- registerReply{id: id, ok: true}
		} else {
			cmd.reply <- registerReply{ok: false}
		}
	case commandAbort:
		d.mu.Lock()
		_, ok := d.slots[cmd.id]
		d.mu.Unlock()
		if !ok {
			return
		}
		if err := d.conn.FeedFrame(cmd.id, record.TypeAbortRequest, nil); err != nil {
			d.shutdown(errors.Wrap(err, "fastcgi: write abort request"))
		}
	}
}

// readerLoop reads frames off the transport and routes them by id,
// delivering management frames (id 0) to mgmtReply and application
// frames to the matching pending request's inbound channel.
func (d *dispatcher) readerLoop() error {
	for {
		frame, err := d.conn.PollFrame()
		if err != nil {
			cause := err
			if errors.Is(err, io.EOF) {
				cause = fcgierr.ErrClientClosed
			}
			d.shutdown(errors.Wrap(cause, "fastcgi: read frame"))
			if errors.Is(d.closeErr, fcgierr.ErrClientClosed) {
				return nil
			}
			return d.closeErr
		}

		if record.IsManagement(frame.ID) {
			select {
			case d.mgmtReply <- frame:
			default:
				d.logger.WithField("record", "management").Warn("fastcgi: dropped unsolicited management reply")
			}
			continue
		}

		d.mu.Lock()
		tx, ok := d.slots[frame.ID]
		d.mu.Unlock()

		if !ok {
			d.logger.WithField("id", frame.ID).Debug("fastcgi: frame for unknown request id")
			continue
		}

		delivered := false
		select {
		case tx <- frame:
			delivered = true
		default:
		}

		// Both paths give the id back to the free-list through release,
		// the only place an id returns to the free-list; shutdown also
		// clears d.slots, but only once the dispatcher is done for good.
		switch {
		case !delivered:
			d.logger.WithField("id", frame.ID).Warn("fastcgi: inbound channel full or closed, dropping request")
			d.release(frame.ID)
		case frame.Type == record.TypeEndRequest:
			d.release(frame.ID)
		}
	}
}
