package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// rpcMessage is the one JSON-RPC shape this bridge consumes. Requests and
// notifications share it on the way out; responses use ID correlation on
// the way in.
type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  any             `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// writeFrame encodes payload and writes a Content-Length framed message.
// Child-process stdout is a byte stream with no natural message boundary,
// so each body is preceded by an explicit length header and a blank line.
func writeFrame(w io.Writer, payload rpcMessage) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// readFrame parses one framed message. Header lines are read until a blank
// line; the Content-Length header is case-insensitive. A missing length or
// empty body is a protocol error, terminal for the connection.
func readFrame(r *bufio.Reader) (rpcMessage, error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return rpcMessage{}, fmt.Errorf("read header: %w", err)
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "content-length:") {
			value := strings.TrimSpace(trimmed[len("content-length:"):])
			n, convErr := strconv.Atoi(value)
			if convErr != nil {
				return rpcMessage{}, fmt.Errorf("invalid Content-Length %q", value)
			}
			contentLength = n
		}
	}
	if contentLength < 0 {
		return rpcMessage{}, fmt.Errorf("protocol error: missing Content-Length")
	}
	if contentLength == 0 {
		return rpcMessage{}, fmt.Errorf("protocol error: empty body")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return rpcMessage{}, fmt.Errorf("read body: %w", err)
	}

	var msg rpcMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return rpcMessage{}, fmt.Errorf("decode frame: %w", err)
	}
	return msg, nil
}
