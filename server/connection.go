// File: server/connection.go
// Package server implements the per-connection protocol state machine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Connection is driven only by the dispatch loop. Each entry point consumes
// whatever the socket offers right now and leaves the interest set the loop
// must re-arm the descriptor with. Interest Hangup asks the loop to tear the
// connection down.

package server

import (
	"errors"
	"io"
	"log"
	"unicode/utf8"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-wsloop/control"
	"github.com/momentics/hioload-wsloop/internal/httpparse"
	"github.com/momentics/hioload-wsloop/internal/transport"
	"github.com/momentics/hioload-wsloop/protocol"
	"github.com/momentics/hioload-wsloop/reactor"
)

// connEnv is shared by all connections of one server. readBuf is scratch
// space reused across reads; the loop is single-threaded.
type connEnv struct {
	decoder          protocol.Decoder
	onText           TextHandler
	validateUTF8     bool
	maxHandshakeSize int
	readBuf          []byte
	logger           *log.Logger
	metrics          *control.MetricsRegistry
}

// Connection is one accepted socket and its WebSocket session.
type Connection struct {
	token    reactor.Token
	stream   transport.Stream
	env      *connEnv
	state    State
	interest reactor.Interest

	parser  *httpparse.Parser
	headers map[string]string

	inbound   []byte       // received bytes not yet decoded
	outgoing  *queue.Queue // *protocol.Frame awaiting encoding
	pending   []byte       // encoded bytes not yet accepted by the socket
	closeSent bool
}

func newConnection(tok reactor.Token, st transport.Stream, env *connEnv) *Connection {
	p := httpparse.New()
	if env.maxHandshakeSize > 0 {
		p.MaxHeaderBytes = env.maxHandshakeSize
	}
	return &Connection{
		token:    tok,
		stream:   st,
		env:      env,
		state:    AwaitingHandshake,
		interest: reactor.Readable,
		parser:   p,
		headers:  make(map[string]string),
		outgoing: queue.New(),
	}
}

// Token returns the connection identifier.
func (c *Connection) Token() reactor.Token { return c.token }

// State returns the current protocol phase.
func (c *Connection) State() State { return c.state }

// Interest returns the readiness set the loop must re-arm with.
func (c *Connection) Interest() reactor.Interest { return c.interest }

// Header returns a request header received during the handshake.
func (c *Connection) Header(name string) string { return protocol.Header(c.headers, name) }

// Queued returns the number of frames waiting for the next write pass.
func (c *Connection) Queued() int { return c.outgoing.Length() }

// OnReadable consumes everything the socket has to offer.
func (c *Connection) OnReadable() {
	switch c.state {
	case AwaitingHandshake:
		c.readHandshake()
	case Connected, Closing:
		c.readFrames()
	}
}

// OnWritable sends the handshake response or flushes queued frames.
func (c *Connection) OnWritable() {
	switch c.state {
	case HandshakeResponsePending:
		c.writeHandshake()
	case Connected, Closing:
		c.flush()
	}
}

func (c *Connection) readHandshake() {
	buf := c.env.readBuf
	for {
		n, err := c.stream.Read(buf)
		if n > 0 && c.state == HandshakeResponsePending {
			// Drain the rest for this edge; it is decoded once the response is out.
			c.inbound = append(c.inbound, buf[:n]...)
		} else if n > 0 {
			hc := protocol.HeaderCollector{Headers: c.headers}
			used, perr := c.parser.Parse(buf[:n], &hc)
			if perr != nil {
				c.handshakeFailure(perr)
				return
			}
			if c.parser.HeadersComplete() {
				if !c.parser.IsUpgrade() {
					c.handshakeFailure(errNotUpgrade)
					return
				}
				// Bytes after the request head are the first frame bytes.
				c.inbound = append(c.inbound, buf[used:n]...)
				c.state = HandshakeResponsePending
				c.interest = reactor.Writable
			}
		}
		if err != nil {
			if !errors.Is(err, transport.ErrWouldBlock) {
				c.ioFailure("read handshake", err)
			}
			return
		}
	}
}

var errNotUpgrade = errors.New("request is not a websocket upgrade")

func (c *Connection) writeHandshake() {
	if err := protocol.ValidateUpgradeHeaders(c.headers); err != nil {
		c.handshakeFailure(err)
		return
	}
	accept := protocol.ComputeAcceptKey(c.Header(protocol.HeaderSecWebSocketKey))
	c.pending = append(c.pending, protocol.BuildHandshakeResponse(accept)...)
	c.state = Connected
	c.env.metrics.Add(control.HandshakesCompleted, 1)
	c.env.logger.Printf("conn %d: upgraded %s %s", c.token, c.parser.Method(), c.parser.RequestURI())
	c.flush()
}

func (c *Connection) readFrames() {
	buf := c.env.readBuf
	for {
		n, err := c.stream.Read(buf)
		if n > 0 && c.state == Connected {
			c.inbound = append(c.inbound, buf[:n]...)
			c.decodeInbound()
		}
		if err != nil {
			if !errors.Is(err, transport.ErrWouldBlock) {
				c.ioFailure("read", err)
			}
			return
		}
	}
}

// decodeInbound decodes and dispatches every complete frame in the buffer.
// A partial frame left at the end is kept in place; the buffer is compacted
// only when this pass consumed something.
func (c *Connection) decodeInbound() {
	consumed := 0
	for c.state == Connected && consumed < len(c.inbound) {
		f, used, err := c.env.decoder.Decode(c.inbound[consumed:])
		if errors.Is(err, protocol.ErrIncomplete) {
			break
		}
		if err != nil {
			c.protocolFailure(err)
			return
		}
		consumed += used
		c.env.metrics.Add(control.FramesReceived, 1)
		c.dispatch(f)
	}
	switch {
	case c.state != Connected || consumed == len(c.inbound):
		c.inbound = nil
	case consumed > 0:
		c.inbound = append(c.inbound[:0:0], c.inbound[consumed:]...)
	}
}

func (c *Connection) dispatch(f *protocol.Frame) {
	switch f.OpCode {
	case protocol.OpText:
		if c.env.validateUTF8 && f.Fin && !utf8.Valid(f.Payload) {
			c.env.metrics.Add(control.ErrorsDecode, 1)
			c.closeWith(protocol.CloseInvalidPayloadData, "invalid utf-8")
			return
		}
		if reply := c.env.onText(f.Payload); reply != nil {
			c.enqueue(reply)
		}
	case protocol.OpPing:
		c.enqueue(protocol.Pong(f))
	case protocol.OpClose:
		code, reason, _ := protocol.CloseStatus(f.Payload)
		c.env.logger.Printf("conn %d: peer closing code=%d reason=%q", c.token, code, reason)
		c.enqueue(protocol.CloseEcho(f))
		c.state = Closing
	}
}

func (c *Connection) enqueue(f *protocol.Frame) {
	c.outgoing.Add(f)
	c.interest = reactor.Writable
}

// flush encodes every queued frame, empties the queue and writes. Once the
// socket has taken everything, input buffered meanwhile is decoded.
func (c *Connection) flush() {
	for c.outgoing.Length() > 0 {
		f := c.outgoing.Remove().(*protocol.Frame)
		out, err := protocol.AppendFrame(c.pending, f)
		if err != nil {
			c.env.logger.Printf("conn %d: dropping %s frame: %v", c.token, f.OpCode, err)
			continue
		}
		c.pending = out
		c.env.metrics.Add(control.FramesSent, 1)
		if f.IsClose() {
			c.closeSent = true
		}
	}
	if !c.writePending() {
		return
	}
	if c.closeSent {
		c.interest = reactor.Hangup
		return
	}
	c.interest = reactor.Readable
	if c.state == Connected && len(c.inbound) > 0 {
		// Bytes read ahead of a stalled write get no further edge.
		c.decodeInbound()
	}
}

// writePending reports whether every pending byte reached the socket.
// On would-block the connection keeps waiting for writability.
func (c *Connection) writePending() bool {
	for len(c.pending) > 0 {
		n, err := c.stream.Write(c.pending)
		c.pending = c.pending[n:]
		if err != nil {
			if errors.Is(err, transport.ErrWouldBlock) {
				c.interest = reactor.Writable
			} else {
				c.ioFailure("write", err)
			}
			return false
		}
	}
	c.pending = nil
	return true
}

// protocolFailure answers a malformed frame with a Close carrying the mapped code.
func (c *Connection) protocolFailure(err error) {
	c.env.metrics.Add(control.ErrorsDecode, 1)
	c.env.logger.Printf("conn %d: %v", c.token, err)
	code := uint16(protocol.CloseProtocolError)
	reason := "protocol error"
	if de, ok := protocol.AsDecodeError(err); ok {
		code = de.Kind.CloseCode()
		reason = de.Kind.String()
	}
	c.closeWith(code, reason)
}

func (c *Connection) closeWith(code uint16, reason string) {
	f, err := protocol.CloseFrame(code, reason)
	if err != nil {
		c.interest = reactor.Hangup
		return
	}
	c.inbound = nil
	c.state = Closing
	c.enqueue(f)
}

func (c *Connection) handshakeFailure(err error) {
	c.env.metrics.Add(control.ErrorsHandshake, 1)
	c.env.logger.Printf("conn %d: handshake failed: %v", c.token, err)
	c.interest = reactor.Hangup
}

func (c *Connection) ioFailure(op string, err error) {
	if errors.Is(err, io.EOF) {
		c.env.logger.Printf("conn %d: peer closed the connection", c.token)
	} else {
		c.env.metrics.Add(control.ErrorsIO, 1)
		c.env.logger.Printf("conn %d: %s error: %v", c.token, op, err)
	}
	c.interest = reactor.Hangup
}

// close shuts the socket down in both directions and releases it.
func (c *Connection) close() error {
	shutdownErr := c.stream.Shutdown()
	if err := c.stream.Close(); err != nil {
		return err
	}
	return shutdownErr
}
