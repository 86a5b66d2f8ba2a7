package provider

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	ssePrefix = "data: "
	sseDone   = "[DONE]"

	// Single chunks can carry large argument fragments; give the scanner
	// room well past the default 64KB token limit.
	sseMaxLineBytes = 8 * 1024 * 1024
)

// StreamReader yields chunks from one SSE response body. Single consumer;
// a new call to Client.Stream is the only way to restart.
type StreamReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// NewStreamReader wraps an SSE body. Exposed so tests can drive consumers
// from an in-memory stream.
func NewStreamReader(body io.ReadCloser) *StreamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), sseMaxLineBytes)
	return &StreamReader{body: body, scanner: scanner}
}

// Next returns the next chunk, io.EOF at the clean end of the stream, or a
// fatal parse/transport error. Lines without the "data: " prefix (comments,
// keepalives) are skipped. A trailing line left unterminated when the body
// ends is processed like any other.
func (r *StreamReader) Next() (*Chunk, error) {
	if r.done {
		return nil, io.EOF
	}
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if !strings.HasPrefix(line, ssePrefix) {
			continue
		}
		payload := line[len(ssePrefix):]
		if payload == sseDone {
			r.done = true
			return nil, io.EOF
		}
		var chunk Chunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			r.done = true
			return nil, fmt.Errorf("parse stream chunk: %w", err)
		}
		return &chunk, nil
	}
	r.done = true
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return nil, io.EOF
}

// Close releases the underlying response body. Safe after Next returned
// io.EOF or an error.
func (r *StreamReader) Close() error {
	return r.body.Close()
}
