package protocol_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-wsloop/protocol"
)

func TestComputeAcceptKey(t *testing.T) {
	got := protocol.ComputeAcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	if got != "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=" {
		t.Fatalf("accept = %q", got)
	}
}

func TestBuildHandshakeResponse(t *testing.T) {
	want := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Connection: Upgrade\r\n" +
		"Upgrade: websocket\r\n" +
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n" +
		"\r\n"
	if got := string(protocol.BuildHandshakeResponse("s3pPLMBiTxaQ9kYGzzhZRbK+xOo=")); got != want {
		t.Fatalf("response:\n%q\nwant:\n%q", got, want)
	}
}

func TestHeaderCollector(t *testing.T) {
	headers := make(map[string]string)
	hc := &protocol.HeaderCollector{Headers: headers}

	hc.OnHeaderField([]byte("sec-websocket-key"))
	hc.OnHeaderValue([]byte("dGhlIHNhbXBsZSBub25jZQ=="))
	hc.OnHeaderField([]byte("Connection"))
	hc.OnHeaderValue([]byte("keep-alive"))
	hc.OnHeaderField([]byte("connection"))
	hc.OnHeaderValue([]byte("Upgrade"))

	if hc.OnHeadersComplete() {
		t.Fatal("OnHeadersComplete must stop the tokenizer")
	}
	if got := protocol.Header(headers, "Sec-WebSocket-Key"); got != "dGhlIHNhbXBsZSBub25jZQ==" {
		t.Fatalf("key = %q", got)
	}
	if got := protocol.Header(headers, "CONNECTION"); got != "keep-alive, Upgrade" {
		t.Fatalf("connection = %q", got)
	}
}

func TestValidateUpgradeHeaders(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    error
	}{
		{"ok", map[string]string{"Sec-Websocket-Key": "k", "Sec-Websocket-Version": "13"}, nil},
		{"no version", map[string]string{"Sec-Websocket-Key": "k"}, nil},
		{"missing key", map[string]string{"Sec-Websocket-Version": "13"}, protocol.ErrMissingWebSocketKey},
		{"bad version", map[string]string{"Sec-Websocket-Key": "k", "Sec-Websocket-Version": "8"}, protocol.ErrBadWebSocketVersion},
		{"repeated key", map[string]string{"Sec-Websocket-Key": "a2V5MQ==, a2V5Mg==", "Sec-Websocket-Version": "13"}, protocol.ErrDuplicateWebSocketKey},
	}
	for _, tc := range cases {
		if err := protocol.ValidateUpgradeHeaders(tc.headers); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestRepeatedKeyRejected(t *testing.T) {
	hc := protocol.HeaderCollector{Headers: map[string]string{}}
	for _, v := range []string{"dGhlIHNhbXBsZSBub25jZQ==", "b3RoZXIgc2FtcGxlIG5vbmNl"} {
		hc.OnHeaderField([]byte("Sec-WebSocket-Key"))
		hc.OnHeaderValue([]byte(v))
	}
	if err := protocol.ValidateUpgradeHeaders(hc.Headers); !errors.Is(err, protocol.ErrDuplicateWebSocketKey) {
		t.Fatalf("err = %v", err)
	}
}
