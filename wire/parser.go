package wire

import (
	"bytes"
	"strconv"
	"strings"
)

// State names the parser's position in the message grammar, matching
// spec.md's five-state model. AwaitingStartLine and AwaitingHeaders both
// mean "need more bytes"; HeadersComplete and Paused are the same instant
// as observed from outside (Feed returns as soon as the blank line after
// headers is seen) — Paused is the steady state a caller sees between
// Feed calls once headers are done and a body remains to be streamed.
type State int

const (
	AwaitingStartLine State = iota
	AwaitingHeaders
	HeadersComplete
	Paused
	ParseError
)

func (s State) String() string {
	switch s {
	case AwaitingStartLine:
		return "AwaitingStartLine"
	case AwaitingHeaders:
		return "AwaitingHeaders"
	case HeadersComplete:
		return "HeadersComplete"
	case Paused:
		return "Paused"
	case ParseError:
		return "ParseError"
	default:
		return "Unknown"
	}
}

// DefaultMaxHeaderBytes bounds the start-line + header block a Parser will
// buffer before giving up, matching the 4 KiB default carried by
// ReceiverOptions.
const DefaultMaxHeaderBytes = 4096

// Parser incrementally decodes an HTTP/1.1 start-line and header block. It
// is resumable: Feed may be called repeatedly with successive chunks of a
// byte stream, and consumes only as much as it needs, reporting the
// remainder back to the caller so it can be handed to a BodyReader or the
// next message.
//
// The design generalizes the same incremental, no-backtracking approach
// _examples/fakefloordiv-at/internal/scan/http1 uses (an explicit state
// field driving a switch instead of buffering the whole message), but
// captures the full header set rather than special-casing Host and
// Content-Length, since spec.md requires arbitrary header access.
type Parser struct {
	mode  Mode
	state State
	err   error

	buf       []byte // accumulated start-line/header bytes not yet parsed
	maxHeader int

	startLine   StartLine
	headers     *Headers
	sawStartLn  bool
	contentLen  int64
	hasLen      bool
	chunked     bool
	bodyStartAt int // offset into the last Feed's input where the body begins
}

// NewParser returns a Parser for the given mode. maxHeaderBytes<=0 selects
// DefaultMaxHeaderBytes.
func NewParser(mode Mode, maxHeaderBytes int) *Parser {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = DefaultMaxHeaderBytes
	}
	return &Parser{
		mode:      mode,
		state:     AwaitingStartLine,
		maxHeader: maxHeaderBytes,
		headers:   NewHeaders(),
	}
}

// State returns the parser's current state.
func (p *Parser) State() State { return p.state }

// StartLine returns the decoded start-line. Valid once State() is
// HeadersComplete/Paused or later.
func (p *Parser) StartLine() StartLine { return p.startLine }

// Headers returns the decoded header set. Valid once State() is
// HeadersComplete/Paused or later.
func (p *Parser) Headers() *Headers { return p.headers }

// ContentLength returns the parsed Content-Length, if the header was
// present and well-formed.
func (p *Parser) ContentLength() (int64, bool) { return p.contentLen, p.hasLen }

// Chunked reports whether Transfer-Encoding named "chunked".
func (p *Parser) Chunked() bool { return p.chunked }

// Err returns the error that moved the parser into ParseError, if any.
func (p *Parser) Err() error { return p.err }

// Feed consumes as much of data as belongs to the start-line and headers.
// It returns the number of bytes consumed. Once headers complete, Feed
// stops consuming immediately (state becomes Paused) so the unconsumed
// remainder — which belongs to the body, or to the next message on a
// keep-alive connection — is left for the caller to redirect, typically
// via a pushback.Reader.
//
// Calling Feed again after Paused or ParseError is an error from the
// caller's perspective (a fresh Parser is used per message); Feed panics
// in that case since it indicates a bug in the caller, not malformed input.
func (p *Parser) Feed(data []byte) (consumed int, err error) {
	switch p.state {
	case Paused, HeadersComplete, ParseError:
		panic("wire: Parser.Feed called after headers were already parsed")
	}

	p.buf = append(p.buf, data...)
	if len(p.buf) > p.maxHeader {
		p.fail(newProtocolError(431, "header block too long"))
		return len(data), p.err
	}

	for {
		switch p.state {
		case AwaitingStartLine:
			line, rest, ok := cutLine(p.buf)
			if !ok {
				return len(data), nil
			}
			if err := p.parseStartLine(line); err != nil {
				p.fail(err)
				return len(data), err
			}
			p.buf = rest
			p.state = AwaitingHeaders
			p.sawStartLn = true

		case AwaitingHeaders:
			line, rest, ok := cutLine(p.buf)
			if !ok {
				return len(data), nil
			}
			if len(line) == 0 {
				// blank line: headers complete. rest belongs to the body.
				p.buf = nil
				p.state = HeadersComplete
				p.finishHeaders()
				consumedTotal := len(data) - len(rest)
				if consumedTotal < 0 {
					consumedTotal = len(data)
				}
				p.state = Paused
				return consumedTotal, nil
			}
			if err := p.parseHeaderLine(line); err != nil {
				p.fail(err)
				return len(data), err
			}
			p.buf = rest

		default:
			panic("wire: BUG: unreachable parser state")
		}
	}
}

func (p *Parser) fail(err error) {
	p.state = ParseError
	p.err = err
}

// cutLine splits buf at the first CRLF, returning the line (without the
// CRLF) and the remainder. A bare LF is tolerated (some clients omit the
// CR), matching the leniency shapestone-shape-http__parser.go's parser
// applies.
func cutLine(buf []byte) (line, rest []byte, ok bool) {
	i := bytes.IndexByte(buf, '\n')
	if i == -1 {
		return nil, buf, false
	}
	end := i
	if end > 0 && buf[end-1] == '\r' {
		end--
	}
	return buf[:end], buf[i+1:], true
}

func (p *Parser) parseStartLine(line []byte) error {
	if p.mode == ModeRequest {
		return p.parseRequestLine(line)
	}
	return p.parseStatusLine(line)
}

func (p *Parser) parseRequestLine(line []byte) error {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return newProtocolError(400, "malformed request line")
	}
	p.startLine.Method = string(parts[0])
	p.startLine.Target = string(parts[1])
	version := string(parts[2])
	if !strings.HasPrefix(version, "HTTP/") {
		return newProtocolError(400, "malformed request line: bad version")
	}
	p.startLine.Version = version
	return nil
}

func (p *Parser) parseStatusLine(line []byte) error {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) < 2 {
		return newProtocolError(400, "malformed status line")
	}
	version := string(parts[0])
	if !strings.HasPrefix(version, "HTTP/") {
		return newProtocolError(400, "malformed status line: bad version")
	}
	p.startLine.Version = version

	code, err := strconv.Atoi(string(parts[1]))
	if err != nil || code < 100 || code > 999 {
		return newProtocolError(400, "malformed status line: bad status code")
	}
	p.startLine.StatusCode = code

	if len(parts) == 3 {
		p.startLine.Reason = string(parts[2])
	}
	return nil
}

func (p *Parser) parseHeaderLine(line []byte) error {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return newProtocolError(400, "malformed header line")
	}
	key := string(bytes.TrimSpace(line[:colon]))
	value := string(bytes.TrimSpace(line[colon+1:]))
	if key == "" {
		return newProtocolError(400, "empty header name")
	}
	p.headers.Add(key, value)
	return nil
}

func (p *Parser) finishHeaders() {
	if n, ok := p.headers.ContentLength(); ok {
		p.contentLen = n
		p.hasLen = true
	}
	p.chunked = p.headers.IsChunked()
}
