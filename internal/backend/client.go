// Package backend talks to the persistence collaborator that owns entities
// and requests.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/entity"
)

const (
	entitiesPath = "/api/entities"
	requestsPath = "/api/requests"
)

// Config for the collaborator client.
type Config struct {
	BaseURL string        // default http://localhost:3000
	Timeout time.Duration // http client timeout
}

// APIError is a non-2xx answer of the collaborator.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("status %d", e.Status)
}

// CreateRequestInput is the body of the request creation endpoint.
type CreateRequestInput struct {
	Type     constants.RequestType `json:"type"`
	Body     any                   `json:"body"`
	EntityID string                `json:"entity_id"`
}

// Client is a thin JSON client over the collaborator endpoints.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3000"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// ListEntities returns the billing entities visible to the caller.
func (c *Client) ListEntities(ctx context.Context, creds Credentials) ([]entity.BillingEntity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+entitiesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	creds.applyPreferred(req)

	raw, err := c.do(req, "list_entities")
	if err != nil {
		return nil, err
	}
	var out struct {
		Entities []entity.BillingEntity `json:"entities"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	return out.Entities, nil
}

// CreateRequest posts a new invoice or expense request and returns the created record.
func (c *Client) CreateRequest(ctx context.Context, creds Credentials, in CreateRequestInput) (json.RawMessage, error) {
	bs, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+requestsPath, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	creds.applyAll(req)

	raw, err := c.do(req, "create_request")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	reqID := common.RequestIDFromContext(req.Context())
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	c.logger.Info("backend.http.request",
		"req_id", reqID,
		"op", op,
		"method", req.Method,
		"url", req.URL.String(),
		"bearer", req.Header.Get("Authorization") != "",
		"cookie", req.Header.Get("Cookie") != "",
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("backend.http.send_error", "req_id", reqID, "op", op, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.Warn("backend.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("backend.http.response",
		"req_id", reqID,
		"op", op,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// errorMessage extracts the {"error": "..."} message of a failed call.
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
