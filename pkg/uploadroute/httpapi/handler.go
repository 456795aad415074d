// Package httpapi exposes a Router as a single universal HTTP endpoint.
//
// The handler works on the core's plain Request/Response contract, so any
// framework can drive it by converting its own request type; the bundled
// net/http adapter (ServeHTTP) is the canonical converter. Two verbs are
// supported: GET for route introspection and POST with route and action
// query parameters for presign and complete.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-upload/pkg/uploadroute"
)

// Action query parameter values.
const (
	ActionPresign  = "presign"
	ActionComplete = "complete"
)

// Handler dispatches universal requests into a Router and serializes the
// result. All business logic lives in the Router; the handler owns only
// contract parsing and the error envelope.
type Handler struct {
	router *uploadroute.Router
	logger *slog.Logger

	// debug controls whether error envelopes carry details. Stack traces
	// and internal error text never leak when debug is off.
	debug bool
}

// Option represents a functional option for configuring the handler
type Option func(*Handler)

// WithDebug enables the details field on error envelopes.
func WithDebug(debug bool) Option {
	return func(h *Handler) {
		h.debug = debug
	}
}

// WithLogger sets the handler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a universal handler for the given router.
func NewHandler(router *uploadroute.Router, opts ...Option) *Handler {
	h := &Handler{
		router: router,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Envelope shapes.

type presignRequestBody struct {
	Files    []uploadroute.FileInfo `json:"files"`
	Metadata uploadroute.Metadata   `json:"metadata,omitempty"`
}

type completeRequestBody struct {
	Completions []uploadroute.UploadCompletion `json:"completions"`
}

type presignResponseBody struct {
	Success bool                        `json:"success"`
	Results []uploadroute.PresignResult `json:"results"`
}

type completeResponseBody struct {
	Success bool                           `json:"success"`
	Results []uploadroute.CompletionResult `json:"results"`
}

type routesResponseBody struct {
	Success bool                    `json:"success"`
	Routes  []uploadroute.RouteInfo `json:"routes"`
}

// ErrorResponse is the structured error envelope for non-2xx statuses.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handle processes one universal request and returns a universal response
// with a JSON body. It never panics: uncaught panics become a 500 envelope.
func (h *Handler) Handle(ctx context.Context, req *uploadroute.Request) *uploadroute.Response {
	status, payload := h.dispatch(ctx, req)

	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("response serialization failed", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":"internal server error"}`)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &uploadroute.Response{
		StatusCode: status,
		Header:     header,
		Body:       body,
	}
}

// dispatch routes the request to the registry and maps errors to the
// envelope. The returned payload is always JSON-serializable.
func (h *Handler) dispatch(ctx context.Context, req *uploadroute.Request) (status int, payload interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic in upload handler", "panic", rec, "path", req.Path)
			status, payload = h.errorEnvelope(http.StatusInternalServerError,
				"internal server error", "panic in handler")
		}
	}()

	switch req.Method {
	case http.MethodGet:
		return http.StatusOK, routesResponseBody{Success: true, Routes: h.router.Routes()}

	case http.MethodPost:
		routeName := req.Query.Get("route")
		action := req.Query.Get("action")
		if routeName == "" {
			return h.errorEnvelope(http.StatusBadRequest, "route query parameter is required", "")
		}

		switch action {
		case ActionPresign:
			return h.handlePresign(ctx, routeName, req)
		case ActionComplete:
			return h.handleComplete(ctx, routeName, req)
		case "":
			return h.errorEnvelope(http.StatusBadRequest, "action query parameter is required", "")
		default:
			return h.errorEnvelope(http.StatusBadRequest, "unknown action: "+action, "")
		}

	default:
		return h.errorEnvelope(http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (h *Handler) handlePresign(ctx context.Context, routeName string, req *uploadroute.Request) (int, interface{}) {
	var body presignRequestBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return h.errorEnvelope(http.StatusBadRequest, "invalid request body", err.Error())
	}
	if len(body.Files) == 0 {
		return h.errorEnvelope(http.StatusBadRequest, "files are required", "")
	}

	results, err := h.router.GeneratePresignedURLs(ctx, routeName, req, body.Files, body.Metadata)
	if err != nil {
		return h.callError(routeName, "presign", err)
	}

	return http.StatusOK, presignResponseBody{Success: true, Results: results}
}

func (h *Handler) handleComplete(ctx context.Context, routeName string, req *uploadroute.Request) (int, interface{}) {
	var body completeRequestBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return h.errorEnvelope(http.StatusBadRequest, "invalid request body", err.Error())
	}
	if len(body.Completions) == 0 {
		return h.errorEnvelope(http.StatusBadRequest, "completions are required", "")
	}

	results, err := h.router.HandleUploadComplete(ctx, routeName, req, body.Completions)
	if err != nil {
		return h.callError(routeName, "complete", err)
	}

	return http.StatusOK, completeResponseBody{Success: true, Results: results}
}

// callError maps a call-level registry error to status + envelope.
func (h *Handler) callError(routeName, op string, err error) (int, interface{}) {
	switch {
	case errors.Is(err, uploadroute.ErrRouteNotFound):
		return h.errorEnvelope(http.StatusNotFound, "route not found: "+routeName, "")
	case errors.Is(err, uploadroute.ErrNoFiles), errors.Is(err, uploadroute.ErrTooManyFiles):
		return h.errorEnvelope(http.StatusBadRequest, err.Error(), "")
	default:
		h.logger.Error("upload call failed", "route", routeName, "op", op, "error", err)
		return h.errorEnvelope(http.StatusInternalServerError, "internal server error", err.Error())
	}
}

func (h *Handler) errorEnvelope(status int, message, details string) (int, interface{}) {
	resp := ErrorResponse{Error: message}
	if h.debug {
		resp.Details = details
	}
	return status, resp
}
