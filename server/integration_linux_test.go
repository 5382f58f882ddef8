//go:build linux

package server

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// startServer runs a real epoll-backed server on a loopback port.
func startServer(t *testing.T) string {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.PollTimeout = 10 * time.Millisecond
	s, err := NewServer(cfg, WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	addr := s.Addr()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run: %v", err)
		}
	})
	return addr
}

func dial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	d := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, resp, err := d.Dial("ws://"+addr+"/", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp.StatusCode != 101 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestGorillaClientGetsGreeting(t *testing.T) {
	conn := dial(t, startServer(t))
	defer conn.Close()

	for _, msg := range []string{"hello", "again"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatal(err)
		}
		typ, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		if typ != websocket.TextMessage || string(data) != DefaultGreeting {
			t.Fatalf("got %d %q", typ, data)
		}
	}
}

func TestGorillaPingPong(t *testing.T) {
	conn := dial(t, startServer(t))
	defer conn.Close()

	pong := make(chan string, 1)
	conn.SetPongHandler(func(data string) error {
		pong <- data
		return nil
	})
	if err := conn.WriteControl(websocket.PingMessage, []byte("tick"), time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	// Control frames are processed inside ReadMessage; the text reply ends the wait.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-pong:
		if got != "tick" {
			t.Fatalf("pong payload = %q", got)
		}
	default:
		t.Fatal("no pong received")
	}
}

func TestGorillaCloseHandshake(t *testing.T) {
	conn := dial(t, startServer(t))
	defer conn.Close()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("read after close = %v", err)
	}
	if ce.Code != websocket.CloseNormalClosure || ce.Text != "done" {
		t.Fatalf("close = %d %q", ce.Code, ce.Text)
	}
}
