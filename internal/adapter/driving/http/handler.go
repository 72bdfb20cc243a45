package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/fastclip/internal/application"
	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	svc    *application.ClipboardService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(svc *application.ClipboardService, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. A non-nil rpc handler is mounted at
// GET /rpc.
func NewServeMux(h *Handler, rpc http.Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/ping", h.Ping)
	mux.HandleFunc("GET /api/v1/entries", h.ListEntries)
	mux.HandleFunc("GET /api/v1/entries/next", h.NextEntry)
	mux.HandleFunc("GET /api/v1/entries/{index}", h.GetEntry)
	mux.HandleFunc("POST /api/v1/entries", h.AddEntry)
	mux.HandleFunc("DELETE /api/v1/entries/{index}", h.RemoveEntry)
	if rpc != nil {
		mux.Handle("GET /rpc", rpc)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Entries: len(h.svc.Entries()),
	})
}

// Ping answers the liveness probe.
func (h *Handler) Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PingResponse{Result: h.svc.Ping()})
}

// ListEntries returns the whole history, most recent first.
func (h *Handler) ListEntries(w http.ResponseWriter, _ *http.Request) {
	entries := h.svc.Entries()

	resp := make([]EntryResponse, 0, len(entries))
	for i, e := range entries {
		resp = append(resp, toEntryResponse(i, e))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetEntry returns a single entry. Indexes past the end wrap around.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	entry, err := h.svc.Entry(index)
	if err != nil {
		h.writeServiceError(w, "failed to get entry", err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryResponse(index, entry))
}

// AddEntry records a capture supplied in the request body.
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := model.EntryKindText
	if req.Kind != "" {
		parsed, err := model.ParseEntryKind(req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		kind = parsed
	}

	entry, err := h.svc.AddEntry(r.Context(), req.Content, kind)
	if err != nil {
		h.writeServiceError(w, "failed to add entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryResponse(0, entry))
}

// RemoveEntry deletes the entry at the given index.
func (h *Handler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	if err := h.svc.RemoveEntry(r.Context(), index); err != nil {
		h.writeServiceError(w, "failed to remove entry", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// NextEntry long-polls for the next clipboard change. The subscription is
// released when the client disconnects.
func (h *Handler) NextEntry(w http.ResponseWriter, r *http.Request) {
	content, err := h.svc.SubscribeEntry(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ContentResponse{Content: content})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away; nobody is left to read a response.
	case errors.Is(err, application.ErrHubClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	default:
		h.logger.Error("failed to wait for entry", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeServiceError maps application errors to HTTP status codes. Anything
// unrecognised is logged and reported as a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, application.ErrInvalidOperation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrEmptyHistory):
		writeError(w, http.StatusNotFound, "clipboard history is empty")
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid entry index")
		return 0, false
	}
	return index, true
}
