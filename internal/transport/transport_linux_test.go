//go:build linux

package transport_test

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/momentics/hioload-wsloop/internal/transport"
)

func acceptWithin(t *testing.T, ln transport.Listener, d time.Duration) transport.Stream {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		s, err := ln.Accept()
		if err == nil {
			return s
		}
		if !errors.Is(err, transport.ErrWouldBlock) {
			t.Fatalf("accept: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no connection accepted")
	return nil
}

func TestListenAcceptReadWrite(t *testing.T) {
	ln, err := transport.Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	if _, err := ln.Accept(); !errors.Is(err, transport.ErrWouldBlock) {
		t.Fatalf("empty accept: %v", err)
	}

	client, err := net.Dial("tcp", ln.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	s := acceptWithin(t, ln, 2*time.Second)
	defer s.Close()
	if s.Fd() <= 0 || s.RemoteAddr() == "" {
		t.Fatalf("fd=%d remote=%q", s.Fd(), s.RemoteAddr())
	}

	buf := make([]byte, 16)
	if _, err := s.Read(buf); !errors.Is(err, transport.ErrWouldBlock) {
		t.Fatalf("read on idle stream: %v", err)
	}

	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	var n int
	for time.Now().Before(deadline) {
		n, err = s.Read(buf)
		if !errors.Is(err, transport.ErrWouldBlock) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("read: %q %v", buf[:n], err)
	}

	if n, err := s.Write([]byte("pong")); err != nil || n != 4 {
		t.Fatalf("write: %d %v", n, err)
	}
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(client, buf[:4]); err != nil || string(buf[:4]) != "pong" {
		t.Fatalf("client read: %q %v", buf[:4], err)
	}

	if err := s.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Read(buf); err != io.EOF {
		t.Fatalf("client after shutdown: %v", err)
	}
}

func TestReadEOF(t *testing.T) {
	ln, err := transport.Listen("127.0.0.1:0", 16)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	client, err := net.Dial("tcp", ln.Addr())
	if err != nil {
		t.Fatal(err)
	}
	s := acceptWithin(t, ln, 2*time.Second)
	defer s.Close()
	client.Close()

	buf := make([]byte, 8)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err = s.Read(buf)
		if !errors.Is(err, transport.ErrWouldBlock) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err != io.EOF {
		t.Fatalf("read after peer close: %v", err)
	}
}

func TestListenBadAddress(t *testing.T) {
	if _, err := transport.Listen("not an address", 0); err == nil {
		t.Fatal("expected error")
	}
}
