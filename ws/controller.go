package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ilyaferilo/royalbed/wire"
)

// bufferSize is the fixed read buffer a Controller uses per readFrame
// call, matching the original's std::array<std::uint8_t, 65000> m_buf
// (_examples/original_source/lib/royalbed/server/web-socket.cpp). A single
// frame's header + payload must fit within it; larger payloads are a
// protocol error rather than something this controller reassembles across
// reads (only fragmentation via CONTINUATION frames is reassembled).
const bufferSize = 65000

// DefaultPingInterval and DefaultCloseTimeout match the original's nhope::setInterval(15s)
// liveness ping and nhope::setTimeout(4s) close handshake bound.
const (
	DefaultPingInterval = 15 * time.Second
	DefaultCloseTimeout = 4 * time.Second
)

// ErrPingTimeout is delivered through WaitForClose when the peer doesn't
// answer a liveness ping before the next one would be due, mirroring the
// original's "не получен пинг от клиента" ("no ping received from
// client") failure path.
var ErrPingTimeout = errors.New("ws: ping timeout: no pong received from peer")

// ControllerOptions configures a Controller. Zero values select the
// spec's defaults (SPEC_FULL.md §2).
type ControllerOptions struct {
	PingInterval time.Duration
	CloseTimeout time.Duration
	Logger       *slog.Logger
	Metrics      *Metrics
}

func (o ControllerOptions) pingInterval() time.Duration {
	if o.PingInterval > 0 {
		return o.PingInterval
	}
	return DefaultPingInterval
}

func (o ControllerOptions) closeTimeout() time.Duration {
	if o.CloseTimeout > 0 {
		return o.CloseTimeout
	}
	return DefaultCloseTimeout
}

// Controller drives a single WebSocket connection: it owns the read loop,
// replies to PING with PONG, reassembles fragmented messages, sends its
// own liveness pings, and performs the close handshake. It is the Go
// counterpart of WebSocketController::Impl
// (_examples/original_source/lib/royalbed/server/web-socket.cpp), with
// futures/promises replaced by channels and nhope::AOContext replaced by
// context.Context, per this module's ambient-stack conventions.
type Controller struct {
	r   io.Reader
	w   io.Writer
	id  uuid.UUID
	log *slog.Logger
	met *Metrics

	pingInterval time.Duration
	closeTimeout time.Duration

	writeMu sync.Mutex

	closeOnce  sync.Once
	finishOnce sync.Once
	closed     chan struct{}
	closeErr   error
	closeErrMu sync.Mutex

	incoming chan []byte // delivers reassembled message payloads to readFrame's caller

	pongCh chan struct{}
}

// NewController starts a Controller over r/w. The read loop and the ping
// ticker both start immediately, matching the original constructor, which
// calls readFrame() and schedules the interval before returning.
func NewController(ctx context.Context, r io.Reader, w io.Writer, opts ControllerOptions) *Controller {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	c := &Controller{
		r:            r,
		w:            w,
		id:           uuid.New(),
		log:          log,
		met:          opts.Metrics,
		pingInterval: opts.pingInterval(),
		closeTimeout: opts.closeTimeout(),
		closed:       make(chan struct{}),
		incoming:     make(chan []byte),
		pongCh:       make(chan struct{}, 1),
	}

	go c.readLoop()
	go c.pingLoop(ctx)

	return c
}

// ID returns the connection's correlation id, attached to every log line
// this Controller emits. Metrics do not carry it.
func (c *Controller) ID() uuid.UUID { return c.id }

func (c *Controller) readLoop() {
	buf := make([]byte, bufferSize)
	var reassembled []byte
	var reassembling bool
	var pending []byte // bytes of the last read not yet parsed into frames

	for {
		if len(pending) == 0 {
			n, err := c.r.Read(buf)
			if err != nil {
				c.finish(err)
				return
			}
			if n == 0 {
				continue
			}
			pending = buf[:n]
		}

		frame, consumed, err := ParseFrame(pending)
		if err != nil {
			c.finish(err)
			return
		}
		pending = pending[consumed:]
		c.countFrame(frame.Opcode)

		switch frame.Opcode {
		case OpClose:
			c.finish(nil)
			return

		case OpContinuation:
			if !reassembling {
				c.finish(errors.New("ws: continuation frame without a preceding message start"))
				return
			}
			reassembled = append(reassembled, frame.Payload...)
			if frame.Fin {
				c.deliver(reassembled)
				reassembling = false
				reassembled = nil
			}

		case OpText, OpBinary:
			reassembled = append([]byte(nil), frame.Payload...)
			if frame.Fin {
				c.deliver(reassembled)
				reassembled = nil
			} else {
				reassembling = true
			}

		case OpPing:
			if err := c.writeFrame(OpPong, frame.Payload); err != nil {
				c.finish(err)
				return
			}

		case OpPong:
			select {
			case c.pongCh <- struct{}{}:
			default:
			}
		}
	}
}

func (c *Controller) countFrame(op Opcode) {
	if c.met != nil {
		c.met.recordFrame(op)
	}
}

func (c *Controller) deliver(payload []byte) {
	select {
	case c.incoming <- payload:
	case <-c.closed:
	}
}

// ReadFrame blocks until a complete (possibly reassembled) message
// arrives, the connection closes, or ctx is cancelled. It is the
// counterpart of WebSocketController::readFrame's returned future. Once the
// connection has closed it returns the error that closed it, or io.EOF
// after a clean close.
func (c *Controller) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-c.incoming:
		return payload, nil
	case <-c.closed:
		if err := c.closeError(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, wire.ErrCancelled
	}
}

// WriteText sends payload as a single unmasked TEXT frame, the server
// counterpart of writeFrame(const std::string&).
func (c *Controller) WriteText(payload string) error {
	return c.writeFrame(OpText, []byte(payload))
}

// WriteBinary sends payload as a single unmasked BINARY frame, the server
// counterpart of writeFrame(const std::vector<uint8_t>&).
func (c *Controller) WriteBinary(payload []byte) error {
	return c.writeFrame(OpBinary, payload)
}

func (c *Controller) writeFrame(opcode Opcode, payload []byte) error {
	frame := CreateFrame(true, opcode, false, 0, payload)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.w.Write(frame)
	return err
}

func (c *Controller) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	// The original seeds m_pingPromise as already satisfied so the first
	// tick always sends a ping rather than immediately timing out.
	awaitingPong := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case <-ticker.C:
			if awaitingPong {
				c.recordPingTimeout()
				c.finish(ErrPingTimeout)
				return
			}
			if err := c.writeFrame(OpPing, []byte("ping")); err != nil {
				c.finish(err)
				return
			}
			awaitingPong = true
		case <-c.pongCh:
			awaitingPong = false
		}
	}
}

func (c *Controller) recordPingTimeout() {
	if c.met != nil {
		c.met.PingTimeouts.Add(context.Background(), 1)
	}
}

// Close begins an orderly shutdown: it sends a CLOSE frame with the
// literal status-1000 payload the original uses (doClose's {0x03, 0xE8}),
// then waits up to CloseTimeout for the peer's own CLOSE frame (observed
// by readLoop) before declaring the connection closed regardless. Close
// returns at once: the CLOSE frame is written and the timeout runs in the
// background, so a peer that never reads cannot block it. Close is
// idempotent, matching the original's `if (!m_isClosed)` guard.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		go func() { _ = c.writeFrame(OpClose, []byte{0x03, 0xE8}) }()
		go func() {
			select {
			case <-c.closed:
			case <-time.After(c.closeTimeout):
				c.finish(nil)
			}
		}()
	})
}

// WaitForClose blocks until the connection has closed, for any reason,
// returning the error that caused it (nil for a clean close).
func (c *Controller) WaitForClose(ctx context.Context) error {
	select {
	case <-c.closed:
		return c.closeError()
	case <-ctx.Done():
		return wire.ErrCancelled
	}
}

func (c *Controller) finish(err error) {
	c.finishOnce.Do(func() {
		c.closeErrMu.Lock()
		c.closeErr = err
		c.closeErrMu.Unlock()
		close(c.closed)
		if err != nil {
			c.log.Debug("ws connection closed", "conn_id", c.id, "error", err)
		}
	})
}

func (c *Controller) closeError() error {
	c.closeErrMu.Lock()
	defer c.closeErrMu.Unlock()
	return c.closeErr
}
