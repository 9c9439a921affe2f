package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/service"
	"github.com/utafrali/AppStoreGo/pkg/httputil"
	"github.com/utafrali/AppStoreGo/pkg/pagination"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// SearchHandler handles HTTP requests for search and listing endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// Search handles GET /api/v1/apps/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit := httputil.QueryInt(r, "limit", service.DefaultSearchLimit, service.MaxSearchLimit)

	hits, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: hits})
}

// Suggest handles GET /api/v1/apps/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	limit := httputil.QueryInt(r, "limit", 0, 0)

	names, err := h.service.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: names})
}

// Fuzzy handles GET /api/v1/apps/fuzzy
func (h *SearchHandler) Fuzzy(w http.ResponseWriter, r *http.Request) {
	threshold := httputil.QueryFloat(r, "threshold", service.DefaultFuzzyThreshold)

	apps, err := h.service.Fuzzy(r.Context(), r.URL.Query().Get("q"), threshold)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: apps})
}

// AdvancedQuery handles GET /api/v1/apps/advanced. Malformed parameters are
// ignored rather than rejected.
func (h *SearchHandler) AdvancedQuery(w http.ResponseWriter, r *http.Request) {
	h.advanced(w, r, domain.CriteriaFromValues(r.URL.Query().Get))
}

// AdvancedBody handles POST /api/v1/apps/advanced. The body is a JSON
// object with the same keys as the query form; values of the wrong type
// are ignored like malformed query parameters.
func (h *SearchHandler) AdvancedBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	h.advanced(w, r, domain.CriteriaFromValues(func(key string) string {
		if key == "q" {
			if v, ok := body["query"]; ok {
				return scalarString(v)
			}
		}
		return scalarString(body[key])
	}))
}

func (h *SearchHandler) advanced(w http.ResponseWriter, r *http.Request, c domain.Criteria) {
	apps, err := h.service.Advanced(r.Context(), c)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: apps})
}

// scalarString renders a decoded JSON scalar the way it would appear in a
// query string. Objects, arrays and null become "".
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// GetApp handles GET /api/v1/apps/{id}
func (h *SearchHandler) GetApp(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: app})
}

// Featured handles GET /api/v1/apps/featured
func (h *SearchHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit := httputil.QueryInt(r, "limit", service.DefaultListLimit, service.MaxSearchLimit)

	apps, err := h.service.Featured(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: apps})
}

// Recent handles GET /api/v1/apps/recent
func (h *SearchHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := httputil.QueryInt(r, "limit", service.DefaultListLimit, service.MaxSearchLimit)

	apps, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: apps})
}

// Categories handles GET /api/v1/apps/categories
func (h *SearchHandler) Categories(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: names})
}

// Category handles GET /api/v1/apps/categories/{name}
func (h *SearchHandler) Category(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	apps, err := h.service.Category(r.Context(), name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page, meta := pagination.Slice(apps, pagination.FromRequest(r))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page, Meta: meta})
}
