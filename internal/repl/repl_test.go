package repl

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/internal/session"
)

func testEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("HEDDLE_HOME", t.TempDir())
	t.Setenv("HEDDLE_BASE_URL", baseURL)
	t.Setenv(config.CredentialEnv, "test-key")
	t.Chdir(t.TempDir())
}

func sseServer(t *testing.T, scripts ...string) *httptest.Server {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(scripts) {
			http.Error(w, "unexpected request", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, scripts[n])
	}))
	t.Cleanup(srv.Close)
	return srv
}

const greetingSSE = "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hi \"}}]}\n" +
	"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"there\"}}]}\n" +
	"data: [DONE]\n"

func TestRunStreamsAnswer(t *testing.T) {
	srv := sseServer(t, greetingSSE)
	testEnv(t, srv.URL)

	var out, errOut bytes.Buffer
	r := &REPL{
		In:      strings.NewReader("hello\nexit\n"),
		Out:     &out,
		Err:     &errOut,
		Options: session.CreateOptions{Model: "test/model"},
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Hi there") {
		t.Errorf("stdout = %q, want streamed answer", out.String())
	}
	if !strings.Contains(errOut.String(), "You: ") {
		t.Errorf("stderr missing prompt: %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "Goodbye!") {
		t.Errorf("stderr missing farewell: %q", errOut.String())
	}
}

func TestRunSlashCommands(t *testing.T) {
	srv := sseServer(t) // any provider call is a test failure
	testEnv(t, srv.URL)

	var out, errOut bytes.Buffer
	r := &REPL{
		In:      strings.NewReader("/model other/model\n/session\n/tools\n/bogus\n/quit\n"),
		Out:     &out,
		Err:     &errOut,
		Options: session.CreateOptions{Model: "test/model"},
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("slash commands must not write to stdout: %q", out.String())
	}
	msgs := errOut.String()
	for _, want := range []string{
		"Model: other/model",
		"model:    other/model",
		"read", // a built-in listed by /tools
		"Unknown command: /bogus",
		"Goodbye!",
	} {
		if !strings.Contains(msgs, want) {
			t.Errorf("stderr missing %q:\n%s", want, msgs)
		}
	}
}

func TestRunNewSession(t *testing.T) {
	srv := sseServer(t)
	testEnv(t, srv.URL)

	var out, errOut bytes.Buffer
	r := &REPL{
		In:      strings.NewReader("/new\nexit\n"),
		Out:     &out,
		Err:     &errOut,
		Options: session.CreateOptions{Model: "test/model"},
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(errOut.String(), "New session: ") {
		t.Errorf("stderr = %q, want replacement notice", errOut.String())
	}
}

func TestOncePrintsAnswer(t *testing.T) {
	srv := sseServer(t, greetingSSE)
	testEnv(t, srv.URL)

	var out, errOut bytes.Buffer
	r := &REPL{
		In:      strings.NewReader(""),
		Out:     &out,
		Err:     &errOut,
		Options: session.CreateOptions{Model: "test/model"},
	}
	if err := r.Once(context.Background(), "hello"); err != nil {
		t.Fatalf("once: %v", err)
	}
	if got := out.String(); got != "Hi there\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestApplyConfigChanges(t *testing.T) {
	srv := sseServer(t)
	testEnv(t, srv.URL)

	sess, err := session.Create(context.Background(), session.CreateOptions{Model: "test/model"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer sess.Close()

	var errOut bytes.Buffer
	r := &REPL{Err: &errOut}

	r.mu.Lock()
	r.pendingModel = "edited/model"
	r.mu.Unlock()
	r.applyConfigChanges(sess)

	if sess.Model != "edited/model" {
		t.Errorf("model = %q, want %q", sess.Model, "edited/model")
	}
	if !strings.Contains(errOut.String(), "edited/model") {
		t.Errorf("no switch notice on stderr: %q", errOut.String())
	}

	// A pending value matching the current model switches nothing.
	errOut.Reset()
	r.mu.Lock()
	r.pendingModel = "edited/model"
	r.mu.Unlock()
	r.applyConfigChanges(sess)
	if errOut.Len() != 0 {
		t.Errorf("unexpected notice: %q", errOut.String())
	}
}
