// File: internal/httpparse/parser.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Incremental, push-style tokenizer for HTTP/1.x request heads.
// Bytes are pushed as they arrive from a non-blocking socket; header
// field/value pairs and the end of the head are reported through Handler.

package httpparse

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// DefaultMaxHeaderBytes bounds the request head size.
const DefaultMaxHeaderBytes = 8192

// Errors reported by Parse. After an error the parser stays failed.
var (
	ErrMalformedRequestLine = errors.New("httpparse: malformed request line")
	ErrInvalidHeader        = errors.New("httpparse: invalid header line")
	ErrHeadersTooLarge      = errors.New("httpparse: request head too large")
)

// Handler receives tokenizer callbacks. Returning false pauses parsing:
// Parse returns at once with the bytes consumed so far.
type Handler interface {
	OnHeaderField(name []byte) bool
	OnHeaderValue(value []byte) bool
	OnHeadersComplete() bool
}

type phase uint8

const (
	phaseRequestLine phase = iota
	phaseHeaders
	phaseDone
	phaseFailed
)

// Parser tokenizes a single request head.
type Parser struct {
	MaxHeaderBytes int

	phase phase
	line  []byte // partial line carried between pushes
	total int

	method     string
	requestURI string
	proto      string

	connection []string
	upgrade    bool
	err        error
}

// New returns a parser with the default head size limit.
func New() *Parser {
	return &Parser{MaxHeaderBytes: DefaultMaxHeaderBytes}
}

// Parse pushes data through the tokenizer and returns how many bytes of it
// belong to the request head. Once the head is complete, bytes that follow
// it are left unconsumed for the caller.
func (p *Parser) Parse(data []byte, h Handler) (int, error) {
	if p.phase == phaseFailed {
		return 0, p.err
	}
	consumed := 0
	for consumed < len(data) && p.phase != phaseDone {
		rest := data[consumed:]
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			if err := p.grow(len(rest)); err != nil {
				return consumed, err
			}
			p.line = append(p.line, rest...)
			return len(data), nil
		}
		if err := p.grow(i + 1); err != nil {
			return consumed, err
		}
		consumed += i + 1

		var line []byte
		if len(p.line) > 0 {
			p.line = append(p.line, rest[:i]...)
			line = p.line
		} else {
			line = rest[:i]
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})

		cont, err := p.processLine(line, h)
		p.line = p.line[:0]
		if err != nil {
			return consumed, p.fail(err)
		}
		if !cont {
			return consumed, nil
		}
	}
	return consumed, nil
}

func (p *Parser) grow(n int) error {
	p.total += n
	limit := p.MaxHeaderBytes
	if limit <= 0 {
		limit = DefaultMaxHeaderBytes
	}
	if p.total > limit {
		return p.fail(ErrHeadersTooLarge)
	}
	return nil
}

func (p *Parser) fail(err error) error {
	p.phase = phaseFailed
	p.err = err
	return err
}

func (p *Parser) processLine(line []byte, h Handler) (bool, error) {
	switch p.phase {
	case phaseRequestLine:
		if len(line) == 0 {
			// Tolerate a leading empty line (RFC 7230 section 3.5).
			return true, nil
		}
		if err := p.parseRequestLine(string(line)); err != nil {
			return false, err
		}
		p.phase = phaseHeaders
		return true, nil

	case phaseHeaders:
		if len(line) == 0 {
			p.phase = phaseDone
			p.upgrade = p.upgrade && httpguts.HeaderValuesContainsToken(p.connection, "upgrade")
			h.OnHeadersComplete()
			// The head is complete either way; stop so trailing bytes stay with the caller.
			return false, nil
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Obsolete line folding is rejected.
			return false, ErrInvalidHeader
		}
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return false, ErrInvalidHeader
		}
		name := line[:colon]
		value := bytes.TrimSpace(line[colon+1:])
		if !httpguts.ValidHeaderFieldName(string(name)) || !httpguts.ValidHeaderFieldValue(string(value)) {
			return false, ErrInvalidHeader
		}
		switch {
		case strings.EqualFold(string(name), "Connection"):
			p.connection = append(p.connection, string(value))
		case strings.EqualFold(string(name), "Upgrade"):
			p.upgrade = len(value) > 0
		}
		if !h.OnHeaderField(name) {
			return false, nil
		}
		if !h.OnHeaderValue(value) {
			return false, nil
		}
		return true, nil
	}
	return false, nil
}

func (p *Parser) parseRequestLine(line string) error {
	method, rest, ok := strings.Cut(line, " ")
	if !ok {
		return ErrMalformedRequestLine
	}
	uri, proto, ok := strings.Cut(rest, " ")
	if !ok || method == "" || uri == "" || !strings.HasPrefix(proto, "HTTP/1.") {
		return ErrMalformedRequestLine
	}
	if !httpguts.ValidHeaderFieldName(method) {
		// Methods share the token grammar with field names.
		return ErrMalformedRequestLine
	}
	p.method, p.requestURI, p.proto = method, uri, proto
	return nil
}

// HeadersComplete reports whether the blank line ending the head was seen.
func (p *Parser) HeadersComplete() bool { return p.phase == phaseDone }

// IsUpgrade reports whether a complete head asked for a protocol upgrade:
// an Upgrade header plus the "upgrade" token in Connection.
func (p *Parser) IsUpgrade() bool { return p.phase == phaseDone && p.upgrade }

// Method returns the request method.
func (p *Parser) Method() string { return p.method }

// RequestURI returns the request target.
func (p *Parser) RequestURI() string { return p.requestURI }

// Proto returns the protocol version, e.g. "HTTP/1.1".
func (p *Parser) Proto() string { return p.proto }
