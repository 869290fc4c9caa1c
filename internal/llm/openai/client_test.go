package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fatture-in-chat/internal/llm"
)

func sseServer(t *testing.T, chunks []string, inspect func(body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if inspect != nil {
			inspect(body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", c)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{APIKey: "sk-test", BaseURL: baseURL, Model: "gpt-4o-mini"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func chunk(delta string, finish string) string {
	fr := "null"
	if finish != "" {
		fr = `"` + finish + `"`
	}
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":%s,"finish_reason":%s}]}`, delta, fr)
}

func TestStreamChat_TextDeltas(t *testing.T) {
	srv := sseServer(t, []string{
		chunk(`{"role":"assistant","content":"Ciao, "}`, ""),
		chunk(`{"content":"come posso aiutarti?"}`, ""),
		chunk(`{}`, "stop"),
	}, func(body map[string]any) {
		assert.Equal(t, true, body["stream"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	})

	var deltas []string
	resp, err := newTestClient(srv.URL).StreamChat(context.Background(), llm.ChatRequest{
		System:   "sei un assistente",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "ciao"}},
	}, func(text string) error {
		deltas = append(deltas, text)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ciao, ", "come posso aiutarti?"}, deltas)
	assert.Equal(t, "Ciao, come posso aiutarti?", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Empty(t, resp.ToolCalls)
}

func TestStreamChat_AssemblesToolCalls(t *testing.T) {
	srv := sseServer(t, []string{
		chunk(`{"role":"assistant","tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"create_fattura","arguments":""}}]}`, ""),
		chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"{\"imponibile\":"}}]}`, ""),
		chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"2580}"}}]}`, ""),
		chunk(`{}`, "tool_calls"),
	}, func(body map[string]any) {
		tools := body["tools"].([]any)
		require.Len(t, tools, 1)
		fn := tools[0].(map[string]any)["function"].(map[string]any)
		assert.Equal(t, "create_fattura", fn["name"])
	})

	called := false
	resp, err := newTestClient(srv.URL).StreamChat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "crea la fattura"}},
		Tools:    []llm.ToolDefinition{llm.CreateInvoiceTool()},
	}, func(string) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, llm.ToolCall{ID: "call_1", Name: "create_fattura", Arguments: `{"imponibile":2580}`}, resp.ToolCalls[0])
	assert.Equal(t, "tool_calls", resp.FinishReason)
}

func TestStreamChat_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).StreamChat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "ciao"}},
	}, nil)
	assert.Error(t, err)
}
