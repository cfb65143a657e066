package wire

import "testing"

func TestHeaders_CaseSensitiveDistinctKeys(t *testing.T) {
	h := NewHeaders()
	h.Add("content-type", "text/plain")
	h.Add("X-Custom", "a")
	h.Add("x-custom", "b")

	// "content-type" and "Content-Type" are distinct keys: no case folding.
	if got := h.Get("Content-Type"); got != "" {
		t.Fatalf("Get(Content-Type) = %q, want empty (case-sensitive miss)", got)
	}
	if got := h.Get("content-type"); got != "text/plain" {
		t.Fatalf("Get(content-type) = %q", got)
	}

	// "X-Custom" and "x-custom" are likewise distinct keys, each with its
	// own single value, not a shared two-value list.
	if got := h.Values("X-Custom"); len(got) != 1 || got[0] != "a" {
		t.Fatalf("Values(X-Custom) = %v", got)
	}
	if got := h.Values("x-custom"); len(got) != 1 || got[0] != "b" {
		t.Fatalf("Values(x-custom) = %v", got)
	}

	keys := h.Keys()
	if len(keys) != 3 || keys[0] != "content-type" || keys[1] != "X-Custom" || keys[2] != "x-custom" {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestHeaders_GetIsLastWriteWins(t *testing.T) {
	h := NewHeaders()
	h.Add("X-Custom", "a")
	h.Add("X-Custom", "b")

	if got := h.Get("X-Custom"); got != "b" {
		t.Fatalf("Get(X-Custom) = %q, want %q (last-write-wins)", got, "b")
	}
	if got := h.Values("X-Custom"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Values(X-Custom) = %v, want [a b] (insertion order preserved)", got)
	}
}

func TestHeaders_SetReplaces(t *testing.T) {
	h := NewHeaders()
	h.Add("A", "1")
	h.Add("A", "2")
	h.Set("A", "3")

	if got := h.Values("A"); len(got) != 1 || got[0] != "3" {
		t.Fatalf("Values(A) = %v", got)
	}
	if got := h.Get("A"); got != "3" {
		t.Fatalf("Get(A) = %q", got)
	}
}

func TestHeaders_ContentLength(t *testing.T) {
	h := NewHeaders()
	h.Set("Content-Length", " 42 ")

	n, ok := h.ContentLength()
	if !ok || n != 42 {
		t.Fatalf("ContentLength() = %d, %v", n, ok)
	}
}

func TestHeaders_IsChunkedRequiresFinalCoding(t *testing.T) {
	h := NewHeaders()
	h.Set("Transfer-Encoding", "gzip, chunked")
	if !h.IsChunked() {
		t.Fatal("expected IsChunked() == true")
	}

	h2 := NewHeaders()
	h2.Set("Transfer-Encoding", "chunked, gzip")
	if h2.IsChunked() {
		t.Fatal("expected IsChunked() == false when chunked isn't final")
	}
}

func TestHeaders_DelRemovesKeyAndOrder(t *testing.T) {
	h := NewHeaders()
	h.Set("A", "1")
	h.Set("B", "2")
	h.Del("A")

	if h.Has("A") {
		t.Fatal("expected A removed")
	}
	if keys := h.Keys(); len(keys) != 1 || keys[0] != "B" {
		t.Fatalf("Keys() = %v", keys)
	}
}
