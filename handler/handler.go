// Package handler adapts API Gateway proxy events to pipeline operations.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"autodraft/internal/domain"
	"autodraft/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// Service is the pipeline surface exposed over HTTP.
type Service interface {
	GenerateAndPublish(ctx context.Context, prompt, personaKey string, opts usecase.PublishOptions) (usecase.GenerateAndPublishResult, error)
	Run(ctx context.Context, req usecase.BatchRequest) domain.BatchResult
	ListPersonas() map[string]domain.PersonaSummary
	TestConnectivity(ctx context.Context) usecase.Connectivity
	ListDrafts(ctx context.Context, limit, offset int) ([]domain.DraftSummary, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHandler(svc Service, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: service must not be nil")
	}
	h := &Handler{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

type batchResponse = domain.BatchSummary

type personasResponse struct {
	Personas map[string]domain.PersonaSummary `json:"personas"`
}

type draftsResponse struct {
	Drafts []domain.DraftSummary `json:"drafts"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

type categoriesResponse struct {
	Categories []domain.Category `json:"categories"`
	Total      int               `json:"total"`
}

// Handle routes one API Gateway proxy request. Errors are always rendered as
// responses; the returned error is reserved for failures Lambda should retry.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(event.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", corrID, "method", event.HTTPMethod, "path", event.Path)

	status, body := h.route(ctx, logger, event)
	return respond(status, corrID, body), nil
}

func (h *Handler) route(ctx context.Context, logger *slog.Logger, event events.APIGatewayProxyRequest) (int, any) {
	path := "/" + strings.Trim(event.Path, "/")
	method := strings.ToUpper(event.HTTPMethod)

	type route struct {
		method string
		fn     func() (int, any)
	}
	routes := map[string]route{
		"/generate":     {http.MethodPost, func() (int, any) { return h.generate(ctx, logger, event.Body) }},
		"/batch":        {http.MethodPost, func() (int, any) { return h.batch(ctx, logger, event.Body) }},
		"/personas":     {http.MethodGet, func() (int, any) { return http.StatusOK, personasResponse{Personas: h.svc.ListPersonas()} }},
		"/connectivity": {http.MethodGet, func() (int, any) { return http.StatusOK, h.svc.TestConnectivity(ctx) }},
		"/drafts":       {http.MethodGet, func() (int, any) { return h.drafts(ctx, logger, event.QueryStringParameters) }},
		"/categories":   {http.MethodGet, func() (int, any) { return h.categories(ctx, logger) }},
	}

	r, ok := routes[path]
	if !ok {
		return http.StatusNotFound, errorResponse{Error: "NOT_FOUND", Message: "unknown route " + path}
	}
	if method != r.method {
		return http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED", Message: r.method + " required"}
	}
	return r.fn()
}

func (h *Handler) generate(ctx context.Context, logger *slog.Logger, body string) (int, any) {
	var req generateRequest
	if err := decodeBody(body, &req); err != nil {
		return errorStatus(logger, err)
	}
	if err := req.validate(); err != nil {
		return errorStatus(logger, err)
	}
	out, err := h.svc.GenerateAndPublish(ctx, req.Prompt, req.Persona, req.publishOptions())
	if err != nil {
		return errorStatus(logger, err)
	}
	logger.Info("draft created", "post_id", out.PostID, "persona", out.PersonaKey, "tokens_used", out.TokensUsed)
	return http.StatusOK, out
}

func (h *Handler) batch(ctx context.Context, logger *slog.Logger, body string) (int, any) {
	var req batchRequest
	if err := decodeBody(body, &req); err != nil {
		return errorStatus(logger, err)
	}
	if err := req.validate(); err != nil {
		return errorStatus(logger, err)
	}
	res := h.svc.Run(ctx, usecase.BatchRequest{
		Prompts:     req.Prompts,
		PersonaKeys: req.Personas,
		Options:     req.publishOptions(),
	})
	return http.StatusOK, res.Summary()
}

func (h *Handler) drafts(ctx context.Context, logger *slog.Logger, query map[string]string) (int, any) {
	limit, err := intParam(query, "limit", 10)
	if err != nil {
		return errorStatus(logger, err)
	}
	offset, err := intParam(query, "offset", 0)
	if err != nil {
		return errorStatus(logger, err)
	}
	drafts, err := h.svc.ListDrafts(ctx, limit, offset)
	if err != nil {
		return errorStatus(logger, err)
	}
	return http.StatusOK, draftsResponse{Drafts: drafts, Total: len(drafts), Limit: limit, Offset: offset}
}

func (h *Handler) categories(ctx context.Context, logger *slog.Logger) (int, any) {
	cats, err := h.svc.ListCategories(ctx)
	if err != nil {
		return errorStatus(logger, err)
	}
	return http.StatusOK, categoriesResponse{Categories: cats, Total: len(cats)}
}

func errorStatus(logger *slog.Logger, err error) (int, any) {
	code := domain.CodeOf(err)
	status := statusFor(code)
	resp := errorResponse{Error: string(code)}

	var de *domain.Error
	if errors.As(err, &de) {
		resp.Reason = de.Reason
	}
	if status < http.StatusInternalServerError || status == http.StatusBadGateway {
		resp.Message = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "err", err)
	} else {
		logger.Warn("request rejected", "code", code, "err", err)
	}
	return status, resp
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.ErrorInvalidInput:
		return http.StatusBadRequest
	case domain.ErrorConfiguration:
		return http.StatusUnprocessableEntity
	case domain.ErrorRateLimited:
		return http.StatusTooManyRequests
	case domain.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respond(status int, corrID string, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(raw),
	}
}

// headerValue looks up name case-insensitively; API Gateway preserves the
// client's header casing.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func intParam(query map[string]string, name string, def int) (int, error) {
	raw := strings.TrimSpace(query[name])
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewError(domain.ErrorInvalidInput, "invalid_"+name, errors.New(name+" must be a non-negative integer"))
	}
	return n, nil
}
