package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joseph-ayodele/fatture-in-chat/internal/backend"
	"github.com/joseph-ayodele/fatture-in-chat/internal/chat"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
)

type chatInput struct {
	Cookie        string `header:"Cookie"`
	Authorization string `header:"Authorization"`
	Body          ChatRequest
}

func registerChat(api huma.API, runner ChatRunner, logger *slog.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "chat-ai-stream",
		Method:      http.MethodPost,
		Path:        "/chat-ai-stream",
		Summary:     "Stream the assistant reply to a conversation",
		Description: "Responds with chunked text/plain. Errors raised before the first byte use the JSON error envelope.",
	}, func(ctx context.Context, input *chatInput) (*huma.StreamResponse, error) {
		log := common.LoggerFromContext(ctx, logger)
		creds := backend.Credentials{Cookie: input.Cookie, Authorization: input.Authorization}

		turn, err := runner.Prepare(ctx, chat.Input{
			Messages:    input.Body.Turns(),
			EntityID:    input.Body.EntityID,
			Credentials: creds,
		})
		if err != nil {
			log.Warn("server.chat.rejected", "error", err)
			return nil, newAPIError(common.HTTPStatus(err), common.PublicMessage(err), nil)
		}
		log.Info("server.chat.accepted",
			"turns", len(turn.Conversation),
			"entities", len(turn.Entities),
			"bearer", creds.HasBearer(),
		)

		return &huma.StreamResponse{Body: func(hctx huma.Context) {
			w := &streamWriter{ctx: hctx}
			if f, ok := hctx.BodyWriter().(http.Flusher); ok {
				w.flusher = f
			}

			out, err := runner.Run(hctx.Context(), turn, w.write)
			if err == nil {
				if !w.started {
					// empty reply; still commit the text response
					w.start()
				}
				log.Info("server.chat.completed", "steps", out.Steps, "tool_calls", out.ToolCalls, "fallback", out.Fallback)
				return
			}

			log.Error("server.chat.failed", "error", err, "streamed", w.started)
			if w.started {
				_ = w.write(chat.StreamErrorLine())
				return
			}
			hctx.SetHeader("Content-Type", "application/json")
			hctx.SetStatus(common.HTTPStatus(err))
			_ = json.NewEncoder(hctx.BodyWriter()).Encode(&apiError{
				Message: internalMessage,
				Details: failureDetails(err),
			})
		}}, nil
	})
}

// failureDetails describes a model failure without leaking provider payloads.
func failureDetails(err error) string {
	if errors.Is(err, common.ErrUpstream) {
		return "Il servizio di intelligenza artificiale non è al momento raggiungibile"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Richiesta interrotta"
	}
	return "Errore imprevisto durante la generazione della risposta"
}

// streamWriter commits the 200 text response on the first delta, so earlier
// failures can still answer with a JSON error.
type streamWriter struct {
	ctx     huma.Context
	flusher http.Flusher
	started bool
}

func (w *streamWriter) start() {
	w.ctx.SetHeader("Content-Type", "text/plain; charset=utf-8")
	w.ctx.SetHeader("Cache-Control", "no-cache")
	w.ctx.SetHeader("X-Content-Type-Options", "nosniff")
	w.ctx.SetStatus(http.StatusOK)
	w.started = true
}

func (w *streamWriter) write(text string) error {
	if !w.started {
		w.start()
	}
	if _, err := w.ctx.BodyWriter().Write([]byte(text)); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
