package mcp

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	id := int64(7)
	out := rpcMessage{JSONRPC: "2.0", ID: &id, Method: "tools/list", Params: map[string]any{"cursor": nil}}
	if err := writeFrame(&buf, out); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	raw := buf.String()
	if !strings.HasPrefix(raw, "Content-Length: ") {
		t.Fatalf("missing framing header: %q", raw)
	}
	if !strings.Contains(raw, "\r\n\r\n") {
		t.Fatalf("missing blank-line terminator: %q", raw)
	}

	in, err := readFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if in.Method != "tools/list" {
		t.Errorf("method = %q, want tools/list", in.Method)
	}
	if in.ID == nil || *in.ID != 7 {
		t.Errorf("id = %v, want 7", in.ID)
	}
}

func TestReadFrameHeaderCaseInsensitive(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"ping"}`
	raw := "content-length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
	msg, err := readFrame(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if msg.Method != "ping" {
		t.Errorf("method = %q, want ping", msg.Method)
	}
}

func TestReadFrameMissingLength(t *testing.T) {
	raw := "X-Other: 1\r\n\r\n{}"
	if _, err := readFrame(bufio.NewReader(strings.NewReader(raw))); err == nil {
		t.Fatal("expected an error for a frame without Content-Length")
	}
}

func TestReadFrameTruncatedBody(t *testing.T) {
	raw := "Content-Length: 100\r\n\r\n{\"short\":true}"
	if _, err := readFrame(bufio.NewReader(strings.NewReader(raw))); err == nil {
		t.Fatal("expected an error for a truncated body")
	}
}
