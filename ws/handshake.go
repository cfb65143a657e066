package ws

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Ilyaferilo/royalbed/wire"
)

// HandshakeError describes a malformed or disallowed opening handshake,
// matching the teacher's HandshakeError
// (_examples/gorilla-websocket/server.go) and the original's makeHandShake
// contract (a bad Sec-WebSocket-Key never reaches makeHandShake at all —
// validation happens first, exactly as here).
type HandshakeError struct {
	Message string
}

func (e HandshakeError) Error() string { return e.Message }

// ErrBadHandshake is returned when a client-side handshake's response
// isn't a valid 101 Switching Protocols reply.
var ErrBadHandshake = errors.New("ws: bad handshake")

// AcceptKey computes the Sec-WebSocket-Accept value for a client's
// Sec-WebSocket-Key, per RFC 6455 §1.3: sha1(key + GUID), base64-encoded.
// This is the original's sha1(...) + toBase64(...) pair in makeHandShake
// (_examples/original_source/lib/royalbed/server/web-socket.cpp),
// implemented with the teacher's computeAcceptKey (ws/util.go).
func AcceptKey(challengeKey string) string {
	return computeAcceptKey(challengeKey)
}

// validateUpgradeRequest checks the handshake preconditions RFC 6455
// requires of the request (version 13, Connection: Upgrade, Upgrade:
// websocket, a present Sec-WebSocket-Key), matching Upgrader.Upgrade's
// checks in the teacher before it builds a response.
//
// wire.Headers looks up by exact, case-sensitive name (spec.md's data
// model), so the literal names here must match headersFromHTTP's source:
// net/http canonicalizes incoming header names via
// textproto.CanonicalMIMEHeaderKey, which lowercases everything after the
// first letter of each hyphen-separated segment ("Sec-Websocket-Version",
// not "Sec-WebSocket-Version").
func validateUpgradeRequest(headers *wire.Headers) (challengeKey string, err error) {
	if v := headers.Get("Sec-Websocket-Version"); v != "13" {
		return "", HandshakeError{"ws: version != 13"}
	}
	if !headerTokenContains(headers.Get("Connection"), "upgrade") {
		return "", HandshakeError{"ws: connection header != upgrade"}
	}
	if !strings.EqualFold(strings.TrimSpace(headers.Get("Upgrade")), "websocket") {
		return "", HandshakeError{"ws: upgrade != websocket"}
	}
	challengeKey = headers.Get("Sec-Websocket-Key")
	if challengeKey == "" {
		return "", HandshakeError{"ws: key missing or blank"}
	}
	return challengeKey, nil
}

func headerTokenContains(header, value string) bool {
	for _, tok := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(tok), value) {
			return true
		}
	}
	return false
}

// writeHandshakeResponse writes the literal "101 Switching Protocols"
// reply, matching makeHandShake's fmt::format template exactly (field
// order: Upgrade, Connection, Sec-WebSocket-Accept), plus an optional
// negotiated subprotocol line the original doesn't model but
// Upgrader.Subprotocols negotiation needs.
func writeHandshakeResponse(w io.Writer, acceptKey, subprotocol string) error {
	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + acceptKey + "\r\n"
	if subprotocol != "" {
		resp += "Sec-WebSocket-Protocol: " + subprotocol + "\r\n"
	}
	resp += "\r\n"
	_, err := io.WriteString(w, resp)
	return err
}

// Upgrader upgrades an incoming HTTP request to a WebSocket connection,
// producing a Controller instead of gorilla's Conn — this module's
// controller surface is readFrame/writeFrame/close/waitForClose, not an
// io.Reader/io.Writer pair. Adapted from
// _examples/gorilla-websocket/server.go's Upgrader/Upgrade.
type Upgrader struct {
	Subprotocols      []string
	CheckOrigin       func(r *http.Request) bool
	ControllerOptions ControllerOptions
}

func (u *Upgrader) hasSubprotocol(p string) bool {
	for _, s := range u.Subprotocols {
		if s == p {
			return true
		}
	}
	return false
}

// Upgrade performs the handshake over a hijacked net/http connection and
// starts a Controller. Buffered bytes the client already sent past the
// handshake (br.Buffered() > 0) are rejected exactly as the teacher
// rejects them — pipelined WebSocket frames before the 101 response would
// require this module to invent framing the original never specified.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (*Controller, error) {
	headers := headersFromHTTP(r.Header)

	challengeKey, err := validateUpgradeRequest(headers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}
	if u.CheckOrigin != nil && !u.CheckOrigin(r) {
		err := HandshakeError{"ws: origin not allowed"}
		http.Error(w, err.Error(), http.StatusForbidden)
		return nil, err
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		return nil, errors.New("ws: response does not implement http.Hijacker")
	}
	netConn, rw, err := hj.Hijack()
	if err != nil {
		return nil, err
	}
	if rw.Reader.Buffered() > 0 {
		netConn.Close()
		return nil, errors.New("ws: client sent data before handshake is complete")
	}

	subprotocol := ""
	if u.Subprotocols != nil {
		for _, p := range Subprotocols(r) {
			if u.hasSubprotocol(p) {
				subprotocol = p
				break
			}
		}
	}

	if err := writeHandshakeResponse(netConn, AcceptKey(challengeKey), subprotocol); err != nil {
		netConn.Close()
		return nil, err
	}

	return NewController(context.Background(), netConn, netConn, u.ControllerOptions), nil
}

func headersFromHTTP(h http.Header) *wire.Headers {
	out := wire.NewHeaders()
	for k, vs := range h {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}

// Subprotocols returns the subprotocols requested by the client in the
// Sec-WebSocket-Protocol header.
func Subprotocols(r *http.Request) []string {
	h := strings.TrimSpace(r.Header.Get("Sec-Websocket-Protocol"))
	if h == "" {
		return nil
	}
	protocols := strings.Split(h, ",")
	for i := range protocols {
		protocols[i] = strings.TrimSpace(protocols[i])
	}
	return protocols
}

// ClientHandshake performs the client side of the opening handshake over
// an already-connected rw (dialing and TLS are the caller's
// responsibility, per spec.md's Reader/Writer-only transport boundary)
// and, on success, starts a Controller over the same rw. It mirrors
// NewClient's request-building and 101-response validation
// (_examples/gorilla-websocket/client.go) without net.Dial/tls.Client,
// which belong to the excluded transport layer.
func ClientHandshake(ctx context.Context, rw io.ReadWriter, host, path string, requestHeader *wire.Headers, opts ControllerOptions) (*Controller, *wire.Headers, error) {
	challengeKey, err := generateChallengeKey()
	if err != nil {
		return nil, nil, err
	}

	headers := wire.NewHeaders()
	if requestHeader != nil {
		for _, k := range requestHeader.Keys() {
			for _, v := range requestHeader.Values(k) {
				headers.Add(k, v)
			}
		}
	}
	headers.Set("Host", host)
	headers.Set("Upgrade", "websocket")
	headers.Set("Connection", "Upgrade")
	headers.Set("Sec-WebSocket-Version", "13")
	headers.Set("Sec-WebSocket-Key", challengeKey)

	req := &wire.Request{
		Method:  "GET",
		URI:     wire.URI{Path: path},
		Headers: headers,
	}
	if _, err := wire.WriteRequest(rw, req); err != nil {
		return nil, nil, err
	}

	br := bufio.NewReader(rw)
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, nil, err
	}
	if !strings.Contains(line, "101") {
		return nil, nil, ErrBadHandshake
	}

	respHeaders := wire.NewHeaders()
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return nil, nil, ErrBadHandshake
		}
		respHeaders.Add(strings.TrimSpace(line[:colon]), strings.TrimSpace(line[colon+1:]))
	}

	if !strings.EqualFold(respHeaders.Get("Upgrade"), "websocket") ||
		!headerTokenContains(respHeaders.Get("Connection"), "upgrade") ||
		respHeaders.Get("Sec-WebSocket-Accept") != AcceptKey(challengeKey) {
		return nil, respHeaders, ErrBadHandshake
	}

	// Any bytes bufio buffered past the header block belong to the first
	// WebSocket frame; hand them to the Controller by wrapping rw so its
	// read loop sees them first.
	src := &prefixedReader{prefix: bufferedBytes(br), r: rw}
	return NewController(ctx, src, rw, opts), respHeaders, nil
}

func bufferedBytes(br *bufio.Reader) []byte {
	n := br.Buffered()
	if n == 0 {
		return nil
	}
	b, _ := br.Peek(n)
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// prefixedReader replays prefix before delegating to r, the same
// single-slot pushback shape as the teacher's mergedConn.go (not carried
// in this module), kept just large enough for this one handshake-leftover
// use.
type prefixedReader struct {
	prefix []byte
	r      io.Reader
}

func (p *prefixedReader) Read(b []byte) (int, error) {
	if len(p.prefix) > 0 {
		n := copy(b, p.prefix)
		p.prefix = p.prefix[n:]
		return n, nil
	}
	return p.r.Read(b)
}
