package wire

import (
	"io"
)

// WriteRequest serializes req's start-line, headers, and body (if any) to
// w, returning the total bytes written. It mirrors the original's
// writeStartLine + makeRequestHeaderStream + makeRequestStream pipeline
// (original_source/lib/royalbed/client/send-request.cpp), collapsed into a
// single synchronous call since this module has no async-stream
// abstraction to preserve.
//
// A missing Host header is synthesized from req.URI, matching
// sendRequest's behavior of defaulting the port to 80 and filling in Host
// when the caller didn't set one. WriteRequest does not infer
// Content-Length or Transfer-Encoding: the caller sets those headers
// themselves, exactly as the original's Request struct requires.
func WriteRequest(w io.Writer, req *Request) (int64, error) {
	if req.Headers == nil {
		req.Headers = NewHeaders()
	}
	if !req.Headers.Has("Host") && req.URI.Host != "" {
		req.Headers.Set("Host", req.URI.HostHeader())
	}
	if err := req.Headers.Validate(); err != nil {
		return 0, err
	}

	version := req.Version
	if version == "" {
		version = "HTTP/1.1"
	}

	var total int64

	line := req.Method + " " + req.URI.RequestTarget() + " " + version + "\r\n"
	n, err := io.WriteString(w, line)
	total += int64(n)
	if err != nil {
		return total, err
	}

	headerBlock := req.Headers.WriteTo(make([]byte, 0, 256))
	headerBlock = append(headerBlock, '\r', '\n')
	hn, err := w.Write(headerBlock)
	total += int64(hn)
	if err != nil {
		return total, err
	}

	if req.Body == nil {
		return total, nil
	}

	bn, err := io.Copy(w, req.Body)
	total += bn
	return total, err
}

// WriteResponse serializes resp's status-line and headers (and body, if
// present) to w. Used by the WebSocket handshake reply and by tests that
// exercise ResponseReceiver against a canned response, matching
// ResponseMocReader::makeResp / writeStartLine in
// original_source/tests/client/send-request-tests.cpp.
func WriteResponse(w io.Writer, resp *Response) (int64, error) {
	if resp.Headers == nil {
		resp.Headers = NewHeaders()
	}
	if err := resp.Headers.Validate(); err != nil {
		return 0, err
	}

	version := resp.Version
	if version == "" {
		version = "HTTP/1.1"
	}
	message := resp.StatusMessage
	if message == "" {
		message = StatusText(resp.Status)
	}

	var total int64

	line := version + " " + itoa(resp.Status) + " " + message + "\r\n"
	n, err := io.WriteString(w, line)
	total += int64(n)
	if err != nil {
		return total, err
	}

	headerBlock := resp.Headers.WriteTo(make([]byte, 0, 256))
	headerBlock = append(headerBlock, '\r', '\n')
	hn, err := w.Write(headerBlock)
	total += int64(hn)
	if err != nil {
		return total, err
	}

	if resp.Body == nil {
		return total, nil
	}

	bn, err := io.Copy(w, resp.Body)
	total += bn
	return total, err
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
