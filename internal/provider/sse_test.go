package provider

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func readerFor(s string) *StreamReader {
	return NewStreamReader(io.NopCloser(strings.NewReader(s)))
}

func collectChunks(t *testing.T, r *StreamReader) []*Chunk {
	t.Helper()
	var chunks []*Chunk
	for {
		chunk, err := r.Next()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		chunks = append(chunks, chunk)
	}
}

func TestStreamReaderBasic(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n" +
		"data: [DONE]\n"
	chunks := collectChunks(t, readerFor(body))
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Choices[0].Delta.Content != "Hel" || chunks[1].Choices[0].Delta.Content != "lo" {
		t.Errorf("unexpected deltas: %+v", chunks)
	}
}

func TestStreamReaderIgnoresNonDataLines(t *testing.T) {
	body := ": keepalive\n" +
		"event: message\n" +
		"\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n" +
		"\n" +
		"data: [DONE]\n"
	chunks := collectChunks(t, readerFor(body))
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestStreamReaderUnterminatedTrailingLine(t *testing.T) {
	// Body ends without a newline; the held buffer is processed at EOF.
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"tail\"}}]}"
	chunks := collectChunks(t, readerFor(body))
	if len(chunks) != 1 || chunks[0].Choices[0].Delta.Content != "tail" {
		t.Fatalf("trailing chunk not processed: %+v", chunks)
	}
}

func TestStreamReaderEOFWithoutDone(t *testing.T) {
	chunks := collectChunks(t, readerFor("data: {\"choices\":[]}\n"))
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestStreamReaderParseErrorFatal(t *testing.T) {
	r := readerFor("data: {not json}\ndata: {\"choices\":[]}\n")
	_, err := r.Next()
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected parse error, got %v", err)
	}
	// The reader is dead after a parse error.
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("reader should be exhausted after fatal error, got %v", err)
	}
}

func TestStreamReaderToolCallFragments(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_0\",\"function\":{\"name\":\"echo\"}}]}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"{\\\"te\"}}]}}]}\n" +
		"data: [DONE]\n"
	chunks := collectChunks(t, readerFor(body))
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	first := chunks[0].Choices[0].Delta.ToolCalls[0]
	if first.ID != "call_0" || first.Function.Name != "echo" {
		t.Errorf("first fragment = %+v", first)
	}
	second := chunks[1].Choices[0].Delta.ToolCalls[0]
	if second.Function.Arguments != "{\"te" {
		t.Errorf("second fragment arguments = %q", second.Function.Arguments)
	}
}

func TestStreamReaderUsageChunk(t *testing.T) {
	body := "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":10,\"completion_tokens\":5,\"total_tokens\":15}}\n" +
		"data: [DONE]\n"
	chunks := collectChunks(t, readerFor(body))
	if len(chunks) != 1 || chunks[0].Usage == nil {
		t.Fatalf("usage chunk missing: %+v", chunks)
	}
	if chunks[0].Usage.TotalTokens != 15 {
		t.Errorf("total = %d", chunks[0].Usage.TotalTokens)
	}
}
