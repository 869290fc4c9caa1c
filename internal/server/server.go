// Package server exposes the chat endpoint over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/fatture-in-chat/internal/chat"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/llm"
)

const (
	basePath        = "/api"
	requestIDHeader = "X-Request-Id"
	internalMessage = "Errore interno del server"
)

// ChatRunner prepares and streams a chat turn.
type ChatRunner interface {
	Prepare(ctx context.Context, in chat.Input) (*chat.Turn, error)
	Run(ctx context.Context, turn *chat.Turn, sink llm.DeltaFunc) (chat.Outcome, error)
}

// Config for the HTTP API handler.
type Config struct {
	Chat   ChatRunner
	Logger *slog.Logger
	// Health reports the readiness of optional dependencies. May be nil.
	Health func(ctx context.Context) error
}

// apiError models the error envelope returned to the chat client.
type apiError struct {
	status  int
	Message string `json:"error" example:"Errore interno del server"`
	Details any    `json:"details,omitempty"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Message }

func newAPIError(status int, message string, details any) huma.StatusError {
	return &apiError{status: status, Message: message, Details: details}
}

// New returns an HTTP handler exposing the chat API.
func New(cfg Config) (http.Handler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	huma.DefaultArrayNullable = false
	// Override Huma errors to use the chat client's envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			// request validation errors are plain bad requests here
			status = http.StatusBadRequest
		}
		return newAPIError(status, msg, errorDetails(errs))
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		return huma.NewError(status, msg, errs...)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestContext(logger))

	hcfg := huma.DefaultConfig("Fatture in Chat API", "1.0.0")
	hcfg.OpenAPIPath = "/api/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group, cfg.Health)
	registerChat(group, cfg.Chat, logger)

	return router, nil
}

// requestContext assigns a request id, binds a request-scoped logger and
// logs one line per request.
func requestContext(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rid := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if rid == "" {
				rid = uuid.New().String()
			}
			w.Header().Set(requestIDHeader, rid)

			ctx := common.WithRequestID(r.Context(), rid)
			ctx = common.WithLogger(ctx, logger.With("req_id", rid))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.Info("server.http.request",
				"req_id", rid,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func errorDetails(errs []error) any {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			out = append(out, e.Error())
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type healthOutput struct {
	Body struct {
		Status string `json:"status" example:"ok"`
		Audit  string `json:"audit,omitempty" example:"ok"`
	}
}

func registerHealth(api huma.API, check func(ctx context.Context) error) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*healthOutput, error) {
		out := &healthOutput{}
		out.Body.Status = "ok"
		if check != nil {
			if err := check(ctx); err != nil {
				common.LoggerFromContext(ctx, slog.Default()).Warn("server.health.degraded", "error", err)
				out.Body.Audit = "unavailable"
			} else {
				out.Body.Audit = "ok"
			}
		}
		return out, nil
	})
}
