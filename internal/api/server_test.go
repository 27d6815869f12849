package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	bodies [][]byte
	done   chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{done: make(chan struct{}, 16)}
}

func (h *recordingHandler) HandleEvent(_ context.Context, body []byte) {
	h.mu.Lock()
	h.bodies = append(h.bodies, body)
	h.mu.Unlock()
	h.done <- struct{}{}
}

func (h *recordingHandler) received() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.bodies...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startTestServer(t *testing.T) (*Server, *recordingHandler, string) {
	t.Helper()
	handler := newRecordingHandler()
	srv := NewServer(handler, testLogger())
	require.NoError(t, srv.Start("127.0.0.1:0"))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv, handler, "http://" + srv.listener.Addr().String()
}

func TestEventMessageDispatched(t *testing.T) {
	_, handler, base := startTestServer(t)

	payload := `{"type":"event_callback","event":{"type":"message","text":"hi"}}`
	resp, err := http.Post(base+"/event/message", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(body))

	select {
	case <-handler.done:
	case <-time.After(time.Second):
		t.Fatal("event was not dispatched to the handler")
	}
	require.JSONEq(t, payload, string(handler.received()[0]))
}

func TestEventMessageChallenge(t *testing.T) {
	_, handler, base := startTestServer(t)

	payload := `{"type":"url_verification","challenge":"challenge-token"}`
	resp, err := http.Post(base+"/event/message", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	require.Equal(t, "challenge-token", answer["challenge"])

	// Challenges are answered inline, never dispatched.
	select {
	case <-handler.done:
		t.Fatal("challenge must not reach the event handler")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventFeedbackAcknowledged(t *testing.T) {
	_, handler, base := startTestServer(t)

	resp, err := http.Post(base+"/event/feedback", "application/json", strings.NewReader(`{"reaction":"thumbsup"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, handler.received())
}

func TestMethodNotAllowed(t *testing.T) {
	_, _, base := startTestServer(t)

	resp, err := http.Get(base + "/event/message")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStopIdempotent(t *testing.T) {
	srv := NewServer(newRecordingHandler(), testLogger())
	// Stop before Start is a no-op.
	require.NoError(t, srv.Stop(context.Background()))
}

func TestStartBadAddress(t *testing.T) {
	srv := NewServer(newRecordingHandler(), testLogger())
	err := srv.Start("256.256.256.256:99999")
	require.Error(t, err)
	require.Contains(t, err.Error(), "listening on")
}

func TestParseChallengeDirect(t *testing.T) {
	challenge, ok := parseChallenge([]byte(`{"challenge":"abc"}`))
	require.True(t, ok)
	require.Equal(t, "abc", challenge)

	_, ok = parseChallenge([]byte(`{"type":"event_callback"}`))
	require.False(t, ok)

	_, ok = parseChallenge([]byte(`not json`))
	require.False(t, ok)
}
