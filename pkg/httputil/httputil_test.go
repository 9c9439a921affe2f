package httputil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
	"github.com/utafrali/AppStoreGo/pkg/logger"
	"github.com/utafrali/AppStoreGo/pkg/validator"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, Response{Data: map[string]string{"id": "a-1"}})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"id":"a-1"}}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"app error", apperrors.NotFound("app", "a-1"), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped not found", fmt.Errorf("load: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"invalid input", fmt.Errorf("bad: %w", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{"unavailable", fmt.Errorf("snapshot: %w", apperrors.ErrServiceUnavail), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/apps/a-1", nil)
			WriteError(rec, req, tt.err, logger.Discard())

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(context.Background(), "req-42"))

	WriteError(rec, req, apperrors.ErrNotFound, logger.Discard())

	resp := decode(t, rec)
	assert.Equal(t, "req-42", resp.Error.RequestID)
}

func TestWriteError_HidesInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, fmt.Errorf("dial tcp 10.0.0.1:5432: refused"), nil)

	resp := decode(t, rec)
	assert.Equal(t, "an internal error occurred", resp.Error.Message)
}

func TestWriteValidationError(t *testing.T) {
	type body struct {
		Rating int `json:"rating" validate:"gte=1"`
	}
	rec := httptest.NewRecorder()
	WriteValidationError(rec, validator.Validate(body{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "rating")

	rec = httptest.NewRecorder()
	WriteValidationError(rec, fmt.Errorf("decode request body: EOF"))
	assert.Equal(t, "INVALID_INPUT", decode(t, rec).Error.Code)
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 8},
		{"limit=3", 3},
		{"limit=abc", 8},
		{"limit=-1", 8},
		{"limit=0", 8},
		{"limit=500", 50},
		{"limit=%20%207", 7},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		assert.Equal(t, tt.want, QueryInt(r, "limit", 8, 50), tt.query)
	}
}

func TestQueryFloat(t *testing.T) {
	tests := []struct {
		query string
		want  float64
	}{
		{"", 0.7},
		{"threshold=0.5", 0.5},
		{"threshold=NaN", 0.7},
		{"threshold=Inf", 0.7},
		{"threshold=x", 0.7},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		assert.Equal(t, tt.want, QueryFloat(r, "threshold", 0.7), tt.query)
	}
}
