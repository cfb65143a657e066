package wire

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Ilyaferilo/royalbed/pushback"
)

// ReceiverOptions configures a Receiver. Zero values select the spec's
// defaults.
type ReceiverOptions struct {
	// MaxHeaderBytes bounds the buffered start-line + header block. 0
	// selects DefaultMaxHeaderBytes.
	MaxHeaderBytes int
	// ReadBufferSize is the chunk size used to pull bytes from the
	// underlying reader while headers are being parsed. 0 selects 4096.
	ReadBufferSize int
	Logger         *slog.Logger
	Metrics        *Metrics
}

func (o ReceiverOptions) readBufferSize() int {
	if o.ReadBufferSize > 0 {
		return o.ReadBufferSize
	}
	return 4096
}

// Receiver orchestrates a Parser and a pushback.Reader into a decoded
// Response with a streaming Body, matching the original's ResponseReceiver
// (original_source/lib/royalbed/client/send-request.cpp): read chunks
// until the parser pauses at headers-complete, then hand whatever the
// parser didn't consume back to the connection via Unread before building
// the BodyReader, so the body stream picks up exactly where headers left
// off.
type Receiver struct {
	opts ReceiverOptions
	id   uuid.UUID
	log  *slog.Logger
}

// NewReceiver builds a Receiver. A nil logger in opts defaults to
// slog.Default(), and with a nil Metrics nothing is reported.
func NewReceiver(opts ReceiverOptions) *Receiver {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Receiver{opts: opts, id: uuid.New(), log: log}
}

// Receive reads a full status-line + header block from src, returning a
// Response whose Body streams the remainder of the message. It blocks
// until headers are available, an error occurs, or ctx is cancelled.
func (r *Receiver) Receive(ctx context.Context, src pushback.Reader) (*Response, error) {
	type result struct {
		resp *Response
		err  error
	}
	done := make(chan result, 1)

	go func() {
		resp, err := r.receiveSync(src)
		done <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ErrCancelled
	case res := <-done:
		return res.resp, res.err
	}
}

func (r *Receiver) receiveSync(src pushback.Reader) (*Response, error) {
	parser := NewParser(ModeResponse, r.opts.MaxHeaderBytes)
	buf := make([]byte, r.opts.readBufferSize())

	for {
		n, err := src.Read(buf)
		if n > 0 {
			consumed, ferr := parser.Feed(buf[:n])
			if ferr != nil {
				r.recordProtocolError()
				return nil, ferr
			}
			if parser.State() == Paused {
				if consumed < n {
					src.Unread(buf[consumed:n])
				}
				return r.buildResponse(parser, src), nil
			}
		}
		if err != nil {
			r.log.Error("receive: connection error before headers complete", "conn_id", r.id, "error", err)
			return nil, err
		}
	}
}

func (r *Receiver) buildResponse(parser *Parser, src pushback.Reader) *Response {
	sl := parser.StartLine()
	headers := parser.Headers()

	var body *BodyReader
	switch {
	case parser.Chunked():
		body = NewChunkedBodyReader(src)
	default:
		if n, ok := parser.ContentLength(); ok {
			body = NewBodyReader(src, n)
		} else {
			body = NewUnboundedBodyReader(src)
		}
	}
	body.SetMetrics(r.opts.Metrics)

	r.log.Debug("received response headers", "conn_id", r.id, "status", sl.StatusCode)

	return &Response{
		Status:        sl.StatusCode,
		StatusMessage: sl.Reason,
		Version:       sl.Version,
		Headers:       headers,
		Body:          noopCloser{body},
	}
}

func (r *Receiver) recordProtocolError() {
	if r.opts.Metrics != nil {
		r.opts.Metrics.ProtocolErrors.Add(context.Background(), 1)
	}
}

// noopCloser adapts a BodyReader (an io.Reader) to io.ReadCloser: closing
// simply stops reading, since the underlying pushback.Reader's lifetime is
// owned by whoever dialed the connection, not by the response.
type noopCloser struct {
	*BodyReader
}

func (noopCloser) Close() error { return nil }
