package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/velora/search-service/internal/personalization"
	"github.com/velora/search-service/pkg/httputil"
	"github.com/velora/search-service/pkg/validator"
)

// PersonalizationHandler handles HTTP requests for preference profiles.
type PersonalizationHandler struct {
	model  *personalization.Model
	logger *slog.Logger
}

// NewPersonalizationHandler creates a personalization HTTP handler.
func NewPersonalizationHandler(model *personalization.Model, logger *slog.Logger) *PersonalizationHandler {
	return &PersonalizationHandler{model: model, logger: logger}
}

// RecalculateRequest is the JSON request body for a batch recalculation.
type RecalculateRequest struct {
	BatchSize         int  `json:"batch_size" validate:"gte=0,lte=1000"`
	OnlyUninitialized bool `json:"only_uninitialized"`
}

// Recalculate handles POST /api/v1/search/personalization/recalculate.
// The batch runs synchronously; callers use it from cron jobs and admin
// tooling, not the request path.
func (h *PersonalizationHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	// Detach from the request context so a client disconnect does not abort
	// a half-finished batch.
	result, err := h.model.BatchCalculate(context.WithoutCancel(r.Context()), personalization.BatchOptions{
		BatchSize:         req.BatchSize,
		OnlyUninitialized: req.OnlyUninitialized,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Profile handles GET /api/v1/search/personalization/{userID}
func (h *PersonalizationHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "user id is required"},
		})
		return
	}

	profile, err := h.model.Profile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if profile == nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "no preference profile for user"},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}

// Invalidate handles DELETE /api/v1/search/personalization/{userID}
func (h *PersonalizationHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "user id is required"},
		})
		return
	}

	h.model.Invalidate(r.Context(), userID)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"user_id": userID, "status": "invalidated"}})
}
