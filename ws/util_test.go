// Copyright 2014 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ws

import "testing"

func TestComputeAcceptKey(t *testing.T) {
	// Known-answer test from RFC 6455 §1.3.
	got := computeAcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Errorf("computeAcceptKey() = %q, want %q", got, want)
	}
}

func TestGenerateChallengeKey(t *testing.T) {
	k1, err := generateChallengeKey()
	if err != nil {
		t.Fatal(err)
	}
	k2, err := generateChallengeKey()
	if err != nil {
		t.Fatal(err)
	}
	if k1 == k2 {
		t.Error("generateChallengeKey() returned the same key twice")
	}
}

var headerTokenContainsTests = []struct {
	value string
	ok    bool
}{
	{"WebSocket", true},
	{"WEBSOCKET", true},
	{"websocket", true},
	{"websockets", false},
	{"x websocket", false},
	{"websocket x", false},
	{"other,websocket,more", true},
	{"other, websocket, more", true},
}

func TestHeaderTokenContains(t *testing.T) {
	for _, tt := range headerTokenContainsTests {
		ok := headerTokenContains(tt.value, "websocket")
		if ok != tt.ok {
			t.Errorf("headerTokenContains(%q, websocket) = %v, want %v", tt.value, ok, tt.ok)
		}
	}
}
