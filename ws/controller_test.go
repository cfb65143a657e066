package ws

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func newControllerPair(t *testing.T, opts ControllerOptions) (client, server *Controller) {
	t.Helper()
	c1, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })
	ctx := context.Background()
	client = NewController(ctx, c1, c1, opts)
	server = NewController(ctx, c2, c2, opts)
	return client, server
}

func TestController_WriteTextThenReadFrame(t *testing.T) {
	client, server := newControllerPair(t, ControllerOptions{})
	defer client.Close()
	defer server.Close()

	if err := client.WriteText("hello"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	payload, err := server.ReadFrame(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "hello" {
		t.Errorf("payload = %q, want %q", payload, "hello")
	}
}

func TestController_FragmentedMessageReassembled(t *testing.T) {
	peer, serverConn := net.Pipe()
	defer peer.Close()
	server := NewController(context.Background(), serverConn, serverConn, ControllerOptions{})
	defer server.Close()

	first := CreateFrame(false, OpText, false, 0, []byte("hello "))
	second := CreateFrame(true, OpContinuation, false, 0, []byte("world"))
	if _, err := peer.Write(first); err != nil {
		t.Fatal(err)
	}
	if _, err := peer.Write(second); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	payload, err := server.ReadFrame(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "hello world" {
		t.Errorf("payload = %q, want %q", payload, "hello world")
	}
}

func TestController_RespondsToPingWithPong(t *testing.T) {
	peer, serverConn := net.Pipe()
	defer peer.Close()
	server := NewController(context.Background(), serverConn, serverConn, ControllerOptions{})
	defer server.Close()

	pingFrame := CreateFrame(true, OpPing, false, 0, []byte("ping"))
	if _, err := peer.Write(pingFrame); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, bufferSize)
	peer.SetReadDeadline(time.Now().Add(time.Second))
	n, err := peer.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	frame, _, err := ParseFrame(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if frame.Opcode != OpPong {
		t.Errorf("opcode = %v, want pong", frame.Opcode)
	}
}

func TestController_CloseHandshake(t *testing.T) {
	peer, serverConn := net.Pipe()
	defer peer.Close()
	server := NewController(context.Background(), serverConn, serverConn, ControllerOptions{CloseTimeout: 500 * time.Millisecond})

	go func() {
		buf := make([]byte, bufferSize)
		peer.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := peer.Read(buf)
		if err != nil {
			return
		}
		frame, _, err := ParseFrame(buf[:n])
		if err != nil || frame.Opcode != OpClose {
			return
		}
		reply := CreateFrame(true, OpClose, false, 0, []byte{0x03, 0xE8})
		peer.Write(reply)
	}()

	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.WaitForClose(ctx); err != nil {
		t.Errorf("WaitForClose() = %v, want nil", err)
	}
}

func TestController_PingTimeoutClosesConnection(t *testing.T) {
	// A mute peer: it never replies, so the server's own readLoop never
	// gets a chance to auto-pong on its behalf (unlike a real Controller
	// on the other end, which would answer every ping).
	peer, serverConn := net.Pipe()
	defer peer.Close()
	t.Cleanup(func() { serverConn.Close() })

	server := NewController(context.Background(), serverConn, serverConn, ControllerOptions{PingInterval: 20 * time.Millisecond})
	go func() {
		buf := make([]byte, bufferSize)
		for {
			peer.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, err := peer.Read(buf); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := server.WaitForClose(ctx)
	if !errors.Is(err, ErrPingTimeout) {
		t.Errorf("WaitForClose() = %v, want ErrPingTimeout", err)
	}
}

func TestController_ReadFrameCancelledByContext(t *testing.T) {
	client, server := newControllerPair(t, ControllerOptions{})
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := server.ReadFrame(ctx)
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}
