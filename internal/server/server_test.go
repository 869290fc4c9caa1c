package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fatture-in-chat/internal/chat"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/llm"
)

type fakeRunner struct {
	prepareErr error
	run        func(sink llm.DeltaFunc) (chat.Outcome, error)
	got        chat.Input
}

func (f *fakeRunner) Prepare(_ context.Context, in chat.Input) (*chat.Turn, error) {
	f.got = in
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	return &chat.Turn{Credentials: in.Credentials}, nil
}

func (f *fakeRunner) Run(_ context.Context, _ *chat.Turn, sink llm.DeltaFunc) (chat.Outcome, error) {
	if f.run == nil {
		return chat.Outcome{}, nil
	}
	return f.run(sink)
}

func newTestServer(t *testing.T, runner ChatRunner, health func(context.Context) error) *httptest.Server {
	t.Helper()
	handler, err := New(Config{Chat: runner, Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Health: health})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func postChat(t *testing.T, srv *httptest.Server, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/chat-ai-stream", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

const helloBody = `{"messages":[{"role":"user","content":"ciao","parts":[{"type":"text"}]}]}`

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, func(context.Context) error { return errors.New("db down") })
	resp, err := srv.Client().Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "unavailable", body["audit"])
}

func TestChatStreamsPlainText(t *testing.T) {
	runner := &fakeRunner{run: func(sink llm.DeltaFunc) (chat.Outcome, error) {
		for _, s := range []string{"Ciao, ", "sono l'assistente."} {
			if err := sink(s); err != nil {
				return chat.Outcome{}, err
			}
		}
		return chat.Outcome{Steps: 1}, nil
	}}
	srv := newTestServer(t, runner, nil)

	resp, raw := postChat(t, srv, `{"messages":[{"role":"user","content":"ciao"}],"entityId":"ent-1"}`, map[string]string{
		"Cookie":        "session=abc",
		"Authorization": "Bearer tok",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	assert.Equal(t, "Ciao, sono l'assistente.", string(raw))

	assert.Equal(t, "ent-1", runner.got.EntityID)
	assert.Equal(t, "session=abc", runner.got.Credentials.Cookie)
	assert.Equal(t, "Bearer tok", runner.got.Credentials.Authorization)
	require.Len(t, runner.got.Messages, 1)
	assert.Equal(t, "ciao", runner.got.Messages[0].Content)
}

func TestChatToleratesExtraMessageFields(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{run: func(sink llm.DeltaFunc) (chat.Outcome, error) {
		return chat.Outcome{}, sink("ok")
	}}, nil)
	resp, raw := postChat(t, srv, helloBody, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
}

func TestChatInputErrorIs400(t *testing.T) {
	runner := &fakeRunner{prepareErr: common.InvalidInputError("Conversazione non valida: nessun messaggio nella conversazione")}
	srv := newTestServer(t, runner, nil)

	resp, raw := postChat(t, srv, `{"messages":[]}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "Conversazione non valida: nessun messaggio nella conversazione", body["error"])
}

func TestChatMalformedBodyIs400(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, nil)
	for _, body := range []string{`{}`, `{"messages":"ciao"}`, `not json`} {
		t.Run(body, func(t *testing.T) {
			resp, raw := postChat(t, srv, body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))
			var env map[string]any
			require.NoError(t, json.Unmarshal(raw, &env))
			assert.NotEmpty(t, env["error"])
		})
	}
}

func TestChatErrorBeforeFirstByteIs500(t *testing.T) {
	runner := &fakeRunner{run: func(llm.DeltaFunc) (chat.Outcome, error) {
		return chat.Outcome{}, fmt.Errorf("%w: openai stream: status 401 invalid_api_key", common.ErrUpstream)
	}}
	srv := newTestServer(t, runner, nil)

	resp, raw := postChat(t, srv, helloBody, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "Errore interno del server", body["error"])
	assert.NotEmpty(t, body["details"])
	assert.NotContains(t, string(raw), "invalid_api_key")
}

func TestChatErrorAfterStreamingAppendsLine(t *testing.T) {
	runner := &fakeRunner{run: func(sink llm.DeltaFunc) (chat.Outcome, error) {
		_ = sink("Sto preparando la fattura")
		return chat.Outcome{}, errors.New("stream reset")
	}}
	srv := newTestServer(t, runner, nil)

	resp, raw := postChat(t, srv, helloBody, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Sto preparando la fattura"+chat.StreamErrorLine(), string(raw))
}

func TestChatHonoursMessageTimestamps(t *testing.T) {
	runner := &fakeRunner{}
	srv := newTestServer(t, runner, nil)

	resp, _ := postChat(t, srv, `{"messages":[
		{"id":"m1","role":"user","content":"Devo fare una fattura","createdAt":"2026-10-14T08:30:00Z"},
		{"id":"m2","role":"assistant","content":"A chi?"},
		{"id":"m3","role":"user","content":"A Larin Srl","timestamp":"2026-10-14T08:31:00Z","createdAt":"2026-10-14T07:00:00Z"}
	]}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, runner.got.Messages, 3)
	assert.True(t, runner.got.Messages[0].Timestamp.Equal(time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)))
	assert.True(t, runner.got.Messages[1].Timestamp.IsZero())
	// timestamp wins over createdAt
	assert.True(t, runner.got.Messages[2].Timestamp.Equal(time.Date(2026, 10, 14, 8, 31, 0, 0, time.UTC)))
}
