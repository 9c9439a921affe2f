package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/AppStoreGo/pkg/httputil"
	"github.com/utafrali/AppStoreGo/pkg/logger"
)

func TestRecovery_WritesEnvelope(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", &buf)

	h := Recovery(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("ranking exploded")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/apps/trending", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Contains(t, buf.String(), "ranking exploded")
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", &buf)

	var seen string
	h := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/apps/search?q=chess", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderCorrelationID))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, float64(len("short and stout")), line["bytes"])
	assert.Equal(t, "q=chess", line["query"])
	assert.Equal(t, seen, line["correlation_id"])
}

func TestRequestLogging_KeepsIncomingCorrelationID(t *testing.T) {
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "upstream-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "upstream-1", rec.Header().Get(HeaderCorrelationID))
}

func TestRequestLogger_StoresEnrichedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("test", "info", &buf)

	h := RequestLogging(logger.Discard())(RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "corr-9")
	req.Header.Set(HeaderUserID, "user-9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.True(t, strings.Contains(out, `"correlation_id":"corr-9"`), out)
	assert.True(t, strings.Contains(out, `"user_id":"user-9"`), out)
}

func TestCacheControl(t *testing.T) {
	h := CacheControl(30)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestStatusWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := newStatusWriter(rec)
	_, _ = sw.Write([]byte("x"))
	sw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, sw.status)
	assert.Equal(t, 1, sw.bytes)
	assert.Same(t, sw, newStatusWriter(sw))
	assert.Equal(t, http.ResponseWriter(rec), sw.Unwrap())
}
