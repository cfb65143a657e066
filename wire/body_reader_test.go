package wire

import (
	"io"
	"strings"
	"testing"

	"github.com/Ilyaferilo/royalbed/pushback"
)

func TestBodyReader_FixedLength(t *testing.T) {
	src := pushback.New(strings.NewReader("HELLOextra"))
	br := NewBodyReader(src, 5)

	got, err := io.ReadAll(br)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "HELLO" {
		t.Fatalf("got %q, want %q", got, "HELLO")
	}
	if br.BytesRead() != 5 {
		t.Fatalf("BytesRead = %d", br.BytesRead())
	}
}

func TestBodyReader_FixedLengthTruncated(t *testing.T) {
	src := pushback.New(strings.NewReader("HI"))
	br := NewBodyReader(src, 10)

	_, err := io.ReadAll(br)
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestBodyReader_Unbounded(t *testing.T) {
	src := pushback.New(strings.NewReader("all of it"))
	br := NewUnboundedBodyReader(src)

	got, err := io.ReadAll(br)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "all of it" {
		t.Fatalf("got %q", got)
	}
}

func TestBodyReader_Chunked(t *testing.T) {
	raw := "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\nLEFTOVER"
	src := pushback.New(strings.NewReader(raw))
	br := NewChunkedBodyReader(src)

	got, err := io.ReadAll(br)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}

	// Leftover bytes past the terminating chunk must be handed back to
	// the underlying pushback.Reader for the next message to see.
	rest := make([]byte, len("LEFTOVER"))
	n, err := src.Read(rest)
	if err != nil {
		t.Fatalf("Read leftover: %v", err)
	}
	if string(rest[:n]) != "LEFTOVER" {
		t.Fatalf("leftover = %q, want %q", rest[:n], "LEFTOVER")
	}
}

func TestBodyReader_ChunkedWithExtension(t *testing.T) {
	raw := "3;foo=bar\r\nabc\r\n0\r\n\r\n"
	src := pushback.New(strings.NewReader(raw))
	br := NewChunkedBodyReader(src)

	got, err := io.ReadAll(br)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestBodyReader_ChunkedInvalidSize(t *testing.T) {
	raw := "zz\r\n"
	src := pushback.New(strings.NewReader(raw))
	br := NewChunkedBodyReader(src)

	_, err := io.ReadAll(br)
	if err == nil {
		t.Fatal("expected error for invalid chunk size")
	}
}

func TestBodyReader_RecordsBodyBytesMetricOnEOF(t *testing.T) {
	src := pushback.New(strings.NewReader("HELLO"))
	br := NewBodyReader(src, 5)
	br.SetMetrics(NewMetrics(nil)) // no-op meter; exercises the recording path without a real exporter

	if _, err := io.ReadAll(br); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if br.BytesRead() != 5 {
		t.Fatalf("BytesRead = %d, want 5", br.BytesRead())
	}
}

func TestBodyReader_ZeroLengthReadIsNoop(t *testing.T) {
	src := pushback.New(strings.NewReader("x"))
	br := NewBodyReader(src, 1)

	n, err := br.Read(nil)
	if n != 0 || err != nil {
		t.Fatalf("Read(nil) = %d, %v", n, err)
	}
}
