package http

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/service"
	"github.com/utafrali/AppStoreGo/pkg/httputil"
)

// CatalogHandler exposes the snapshot to other instances and operators.
type CatalogHandler struct {
	catalog *catalog.Catalog
	search  *service.SearchService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(cat *catalog.Catalog, search *service.SearchService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: cat,
		search:  search,
		logger:  logger,
	}
}

// Export handles GET /api/v1/catalog/apps
func (h *CatalogHandler) Export(w http.ResponseWriter, r *http.Request) {
	apps, err := h.search.All(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: apps})
}

// Upsert handles POST /api/v1/catalog/apps
func (h *CatalogHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var app domain.App
	if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := h.catalog.Put(r.Context(), &app); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": app.ID, "status": "saved"}})
}

// Refresh handles POST /api/v1/catalog/refresh
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Refresh(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	snap, err := h.catalog.Snapshot()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"apps":      snap.Len(),
		"loaded_at": snap.LoadedAt,
	}})
}
