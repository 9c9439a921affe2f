package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/service"
	"github.com/utafrali/AppStoreGo/pkg/httputil"
)

// RecommendationHandler handles HTTP requests for recommendations.
type RecommendationHandler struct {
	service *service.RecommendationService
	logger  *slog.Logger
}

// NewRecommendationHandler creates a new recommendation HTTP handler.
func NewRecommendationHandler(svc *service.RecommendationService, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service: svc,
		logger:  logger,
	}
}

// ForApp handles GET /api/v1/apps/{id}/recommendations
func (h *RecommendationHandler) ForApp(w http.ResponseWriter, r *http.Request) {
	limit := httputil.QueryInt(r, "limit", ranking.DefaultRecommendLimit, service.MaxSearchLimit)

	apps, err := h.service.RecommendationsFor(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: apps})
}

// ForUser handles GET /api/v1/users/{userID}/recommendations
func (h *RecommendationHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.Personalized(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: apps})
}
