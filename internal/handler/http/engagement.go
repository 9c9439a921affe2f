package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/service"
	"github.com/utafrali/AppStoreGo/pkg/httputil"
	"github.com/utafrali/AppStoreGo/pkg/validator"
)

// EngagementHandler handles HTTP requests that record engagement and rank
// trending apps.
type EngagementHandler struct {
	service *service.EngagementService
	logger  *slog.Logger
}

// NewEngagementHandler creates a new engagement HTTP handler.
func NewEngagementHandler(svc *service.EngagementService, logger *slog.Logger) *EngagementHandler {
	return &EngagementHandler{
		service: svc,
		logger:  logger,
	}
}

// RecordPurchaseRequest is the JSON request body for recording a purchase.
type RecordPurchaseRequest struct {
	AppID string `json:"app_id" validate:"required,notblank,max=128"`
}

// Trending handles GET /api/v1/apps/trending
func (h *EngagementHandler) Trending(w http.ResponseWriter, r *http.Request) {
	limit := httputil.QueryInt(r, "limit", ranking.DefaultTrendingLimit, service.MaxSearchLimit)
	days := httputil.QueryInt(r, "days", ranking.DefaultTrendingDays, service.MaxTrendingDays)

	apps, err := h.service.Trending(r.Context(), limit, days)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: apps})
}

// RecordView handles POST /api/v1/apps/{id}/views
func (h *EngagementHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.RecordView(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"app_id": id, "status": "recorded"}})
}

// RecordDownload handles POST /api/v1/apps/{id}/downloads
func (h *EngagementHandler) RecordDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.RecordDownload(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"app_id": id, "status": "recorded"}})
}

// RecordPurchase handles POST /api/v1/users/{userID}/purchases
func (h *EngagementHandler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req RecordPurchaseRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.service.RecordPurchase(r.Context(), userID, req.AppID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: map[string]string{"user_id": userID, "app_id": req.AppID}})
}
