// Package pushback wraps a byte source with the ability to return
// already-read bytes to the front of the stream.
//
// The HTTP parser in package wire consumes bytes in chunks; the tail of a
// chunk routinely straddles a message boundary (headers/body, or one
// chunked-encoding piece and the next). The parser reports the exact offset
// where it stopped; everything past that offset must be handed back so the
// next reader — a BodyReader, or the next message's parser — sees it first,
// without an extra round trip to the kernel.
package pushback

import "io"

// Reader is a byte source that lets a consumer return unconsumed bytes.
//
// Unread bytes are returned in reverse call order: the most recent Unread
// call's bytes are drained first, in their original internal order, before
// falling back to an older Unread call's bytes or to the underlying reader.
// This mirrors the original implementation this package is modeled on
// (royalbed's nhope::PushbackReader, see original_source/tests), where a
// second Unread effectively supersedes the first — the newest unread tail
// is always the one closest to the front of the stream.
type Reader interface {
	io.Reader

	// Unread returns bytes to the front of the stream. It never fails: the
	// bytes are copied into an internal buffer, so the caller's slice may be
	// reused immediately after Unread returns.
	Unread(p []byte)
}

// reader implements Reader over an underlying io.Reader plus a LIFO stack of
// pending byte slices.
type reader struct {
	src     io.Reader
	pending [][]byte // stack; pending[len-1] is drained first
}

// New wraps src so that bytes handed to Unread are replayed before src is
// read again.
func New(src io.Reader) Reader {
	return &reader{src: src}
}

func (r *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if n := r.drain(p); n > 0 {
		return n, nil
	}

	return r.src.Read(p)
}

// drain copies as much as possible from the pending stack into p, popping
// fully-consumed slices and shrinking a partially-consumed one in place.
func (r *reader) drain(p []byte) int {
	if len(r.pending) == 0 {
		return 0
	}

	top := len(r.pending) - 1
	n := copy(p, r.pending[top])
	if n == len(r.pending[top]) {
		r.pending = r.pending[:top]
	} else {
		r.pending[top] = r.pending[top][n:]
	}

	return n
}

func (r *reader) Unread(p []byte) {
	if len(p) == 0 {
		return
	}

	cp := make([]byte, len(p))
	copy(cp, p)
	r.pending = append(r.pending, cp)
}
