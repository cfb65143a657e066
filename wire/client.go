package wire

import (
	"bytes"
	"context"
	"io"

	"github.com/Ilyaferilo/royalbed/pushback"
)

// Do writes req to conn and receives the response, matching the
// primitives the original exposes as sendRequest(aoCtx, req, writer) /
// makeRequest(aoCtx, req, writer, reader)
// (original_source/lib/royalbed/client/send-request.cpp). The caller owns
// conn's lifetime and framing (dialing, TLS, keep-alive reuse) — this
// module only ever needs a Reader/Writer pair, per spec.md §1.
func Do(ctx context.Context, conn io.ReadWriter, req *Request, opts ReceiverOptions) (*Response, error) {
	if _, err := WriteRequest(conn, req); err != nil {
		return nil, err
	}

	src := pushback.New(conn)
	return NewReceiver(opts).Receive(ctx, src)
}

// DoAndReadAll is Do plus reading the response body to completion and
// replacing it with an in-memory reader, for callers who don't want a
// streaming body — the same convenience the original's top-level
// sendRequest(aoCtx, request) provides over its lower-level primitives.
func DoAndReadAll(ctx context.Context, conn io.ReadWriter, req *Request, opts ReceiverOptions) (*Response, []byte, error) {
	resp, err := Do(ctx, conn, req, opts)
	if err != nil {
		return nil, nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, body, nil
}
