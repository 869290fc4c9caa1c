package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownDrainsInFlightStream(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	ctxErr := make(chan error, 1)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "Ho creato ")
		w.(http.Flusher).Flush()
		close(entered)
		<-release
		ctxErr <- r.Context().Err()
		_, _ = io.WriteString(w, "la fattura.")
	})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := newHTTPServer(lis.Addr().String(), handler)
	go func() { _ = srv.Serve(lis) }()

	type reply struct {
		body string
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		resp, err := http.Get("http://" + lis.Addr().String() + "/api/chat-ai-stream")
		if err != nil {
			done <- reply{err: err}
			return
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		done <- reply{body: string(b), err: err}
	}()

	<-entered
	shutdownErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(ctx)
	}()
	// let Shutdown close the listener before the handler finishes
	time.Sleep(50 * time.Millisecond)
	close(release)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, "Ho creato la fattura.", got.body)
	assert.NoError(t, <-ctxErr)
	assert.NoError(t, <-shutdownErr)
}
