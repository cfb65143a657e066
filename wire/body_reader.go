package wire

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/Ilyaferilo/royalbed/pushback"
)

// BodyReader streams an HTTP message body in one of three framings, per
// spec.md §4.3: a known Content-Length, chunked transfer-encoding, or (for
// responses only) read-until-close. The chunked state machine is
// independent of the header Parser, matching the original's
// BodyReaderImpl (original_source/lib/royalbed/common/body-reader.cpp),
// which switches on m_isChunked rather than sharing state with the
// header-parsing llhttp instance. The original's debug std::cout lines and
// unused counter field are scaffolding, not semantics, and are not
// reproduced (see DESIGN.md).
type BodyReader struct {
	src pushback.Reader
	br  *bufio.Reader // buffers chunk-size/trailer scanning; nil unless chunked

	chunked   bool
	remaining int64 // fixed-length mode; -1 means read-until-EOF
	chunkLeft int64

	eof       bool
	bytesRead int64

	metrics *Metrics
}

// SetMetrics attaches a Metrics to record the total body size, once EOF is
// reached, to the body-size histogram (SPEC_FULL.md §2). Optional — a
// BodyReader with no Metrics attached simply doesn't report.
func (b *BodyReader) SetMetrics(m *Metrics) { b.metrics = m }

func (b *BodyReader) recordEOF() {
	if b.metrics != nil {
		b.metrics.recordBodyBytes(b.bytesRead)
	}
}

// NewBodyReader builds a fixed-length BodyReader for a known
// Content-Length.
func NewBodyReader(src pushback.Reader, contentLength int64) *BodyReader {
	return &BodyReader{src: src, remaining: contentLength}
}

// NewUnboundedBodyReader builds a BodyReader that reads until the
// underlying stream closes — the framing spec.md §4.3 describes for a
// response with neither Content-Length nor chunked Transfer-Encoding.
func NewUnboundedBodyReader(src pushback.Reader) *BodyReader {
	return &BodyReader{src: src, remaining: -1}
}

// NewChunkedBodyReader builds a BodyReader that decodes
// Transfer-Encoding: chunked.
func NewChunkedBodyReader(src pushback.Reader) *BodyReader {
	return &BodyReader{src: src, chunked: true, br: bufio.NewReader(src)}
}

// BytesRead reports how many body bytes have been delivered so far, used
// to feed the body-size metric histogram (SPEC_FULL.md §2).
func (b *BodyReader) BytesRead() int64 { return b.bytesRead }

func (b *BodyReader) Read(p []byte) (int, error) {
	if b.eof {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if b.chunked {
		return b.readChunked(p)
	}
	return b.readFixed(p)
}

func (b *BodyReader) readFixed(p []byte) (int, error) {
	if b.remaining == 0 {
		b.eof = true
		b.recordEOF()
		return 0, io.EOF
	}

	limit := len(p)
	if b.remaining > 0 && int64(limit) > b.remaining {
		limit = int(b.remaining)
	}

	n, err := b.src.Read(p[:limit])
	b.bytesRead += int64(n)

	if b.remaining > 0 {
		b.remaining -= int64(n)
		if b.remaining == 0 {
			b.eof = true
			b.recordEOF()
			return n, nil
		}
		if err == io.EOF {
			return n, io.ErrUnexpectedEOF
		}
		return n, err
	}

	// remaining < 0: unbounded, read-until-close mode.
	if err == io.EOF {
		b.eof = true
		b.recordEOF()
	}
	return n, err
}

func (b *BodyReader) readChunked(p []byte) (int, error) {
	if b.chunkLeft == 0 {
		size, err := b.readChunkSize()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			if err := b.consumeTrailer(); err != nil {
				return 0, err
			}
			b.finishChunked()
			return 0, io.EOF
		}
		b.chunkLeft = size
	}

	limit := len(p)
	if int64(limit) > b.chunkLeft {
		limit = int(b.chunkLeft)
	}

	n, err := b.br.Read(p[:limit])
	b.bytesRead += int64(n)
	b.chunkLeft -= int64(n)
	if err != nil && err != io.EOF {
		return n, err
	}
	if err == io.EOF && b.chunkLeft > 0 {
		return n, io.ErrUnexpectedEOF
	}

	if b.chunkLeft == 0 {
		if err := b.expectCRLF(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (b *BodyReader) readChunkSize() (int64, error) {
	line, err := b.br.ReadString('\n')
	if err != nil {
		return 0, newProtocolError(400, "truncated chunk size line")
	}
	line = strings.TrimRight(line, "\r\n")
	if i := strings.IndexAny(line, "; \t"); i >= 0 {
		line = line[:i]
	}
	if line == "" {
		return 0, newProtocolError(400, "empty chunk size")
	}
	size, err := strconv.ParseInt(line, 16, 64)
	if err != nil || size < 0 {
		return 0, newProtocolError(400, "invalid chunk size: "+line)
	}
	return size, nil
}

func (b *BodyReader) expectCRLF() error {
	b1, err := b.br.ReadByte()
	if err != nil || b1 != '\r' {
		return newProtocolError(400, "malformed chunk terminator")
	}
	b2, err := b.br.ReadByte()
	if err != nil || b2 != '\n' {
		return newProtocolError(400, "malformed chunk terminator")
	}
	return nil
}

func (b *BodyReader) consumeTrailer() error {
	for {
		line, err := b.br.ReadString('\n')
		if err != nil {
			return newProtocolError(400, "truncated trailer")
		}
		if line == "\r\n" || line == "\n" {
			return nil
		}
	}
}

// finishChunked hands any bytes bufio buffered past the terminating blank
// line back to the underlying pushback.Reader, so a pipelined next message
// (or leftover data on a reused connection) isn't lost inside br.
func (b *BodyReader) finishChunked() {
	b.eof = true
	b.recordEOF()
	if n := b.br.Buffered(); n > 0 {
		extra, _ := b.br.Peek(n)
		b.src.Unread(extra)
	}
}
