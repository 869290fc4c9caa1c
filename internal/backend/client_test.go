package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/entity"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListEntitiesBearerTakesPrecedence(t *testing.T) {
	var gotAuth, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/entities", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotCookie = r.Header.Get("Cookie")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"entities": []map[string]any{
				{"id": "ent-1", "name": "Studio Rossi", "role": "owner", "body": map[string]any{"partita_iva": "IT01234567890", "tipo": "studio"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/"}, quietLogger())
	list, err := c.ListEntities(context.Background(), Credentials{Cookie: "sb=1", Authorization: "Bearer tok"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Empty(t, gotCookie)
	assert.Equal(t, "IT01234567890", list[0].TaxID())
	assert.Equal(t, entity.RoleOwner, list[0].Role)
}

func TestListEntitiesFallsBackToCookie(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		_, _ = w.Write([]byte(`{"entities":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, quietLogger())
	list, err := c.ListEntities(context.Background(), Credentials{Cookie: "sb=1"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, "sb=1", gotCookie)
}

func TestCreateRequestForwardsEverything(t *testing.T) {
	var got CreateRequestInput
	var auth, cookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/requests", r.URL.Path)
		auth, cookie = r.Header.Get("Authorization"), r.Header.Get("Cookie")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"req-1","status":"pending"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, quietLogger())
	raw, err := c.CreateRequest(context.Background(), Credentials{Cookie: "sb=1", Authorization: "Bearer tok"}, CreateRequestInput{
		Type:     constants.RequestTypeInvoice,
		Body:     map[string]any{"numeroFattura": "1"},
		EntityID: "ent-1",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"req-1","status":"pending"}`, string(raw))
	assert.Equal(t, constants.RequestTypeInvoice, got.Type)
	assert.Equal(t, "ent-1", got.EntityID)
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "sb=1", cookie)
}

func TestCreateRequestSurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Errore creazione richiesta"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, quietLogger())
	_, err := c.CreateRequest(context.Background(), Credentials{Cookie: "sb=1"}, CreateRequestInput{Type: constants.RequestTypeInvoice})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "Errore creazione richiesta", apiErr.Message)
}

type fakeLister struct {
	list []entity.BillingEntity
	err  error
	hits int
}

func (f *fakeLister) ListEntities(context.Context, Credentials) ([]entity.BillingEntity, error) {
	f.hits++
	return f.list, f.err
}

func TestResolverFailsOpen(t *testing.T) {
	l := &fakeLister{err: errors.New("connection refused")}
	r := NewResolver(l, quietLogger())
	got := r.Resolve(context.Background(), Credentials{Cookie: "sb=1"})
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 1, l.hits)
}

func TestResolverUnauthorizedIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Non autenticato"}`))
	}))
	defer srv.Close()

	r := NewResolver(NewClient(Config{BaseURL: srv.URL}, quietLogger()), quietLogger())
	assert.Empty(t, r.Resolve(context.Background(), Credentials{Authorization: "Bearer expired"}))
}

func TestResolverWithoutCredentialsSkipsCall(t *testing.T) {
	l := &fakeLister{}
	r := NewResolver(l, quietLogger())
	assert.Empty(t, r.Resolve(context.Background(), Credentials{}))
	assert.Zero(t, l.hits)
}

func TestResolverFetchesFreshEveryTime(t *testing.T) {
	l := &fakeLister{list: []entity.BillingEntity{{ID: "ent-1", Name: "A"}}}
	r := NewResolver(l, quietLogger())
	r.Resolve(context.Background(), Credentials{Cookie: "c"})
	r.Resolve(context.Background(), Credentials{Cookie: "c"})
	assert.Equal(t, 2, l.hits)
}

func TestRequestLogsCarryContextRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entities":[]}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	c := NewClient(Config{BaseURL: srv.URL}, logger)

	ctx := common.WithRequestID(context.Background(), "rid-42")
	_, err := c.ListEntities(ctx, Credentials{Cookie: "sb=1"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if strings.HasPrefix(rec["msg"].(string), "backend.http.") {
			assert.Equal(t, "rid-42", rec["req_id"], line)
		}
	}

	buf.Reset()
	_, err = c.ListEntities(context.Background(), Credentials{Cookie: "sb=1"})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), `"req_id":""`)
}
