package publicapi

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxBodySize = 1 << 20

type Handler struct {
	svc    Service
	logger zerolog.Logger
}

func NewHandler(svc Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) ProjectInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.ProjectInfo(r.Context(), chi.URLParam(r, "projectID"), r.Header.Get("Origin"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var in CreateSessionInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.Origin = r.Header.Get("Origin")

	res, err := h.svc.CreateSession(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var in MessageInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}

	reply, err := h.svc.SendMessage(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "AssistantJS Public API",
		"timestamp": float64(time.Now().UnixNano()) / 1e9,
	})
}

// writeError hides everything but the detail of an *APIError.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		writeDetail(w, apiErr.Status, apiErr.Detail)
		return
	}
	h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeDetail(w, http.StatusInternalServerError, "Request processing failed")
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
