// Package remote reads the catalog from an upstream catalog service over
// HTTP. Calls go through a retrying client behind a circuit breaker.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/repository"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
	"github.com/utafrali/AppStoreGo/pkg/httpclient"
)

const (
	upstreamName = "catalog-upstream"
	appsPath     = "/api/v1/catalog/apps"
)

// Client is the subset of httpclient.CircuitBreakerClient used here.
type Client interface {
	Get(ctx context.Context, url string) (*http.Response, error)
	Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error)
}

// AppRepository implements repository.AppRepository against an upstream
// serving {"data": [App...]} at /api/v1/catalog/apps.
type AppRepository struct {
	client  Client
	baseURL string
}

// NewAppRepository creates a remote repository rooted at baseURL.
func NewAppRepository(client Client, baseURL string) *AppRepository {
	return &AppRepository{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type listResponse struct {
	Data []domain.App `json:"data"`
}

// ListApps fetches the upstream catalog.
func (r *AppRepository) ListApps(ctx context.Context) ([]domain.App, error) {
	var resp listResponse
	if err := httpclient.GetJSON(ctx, r.client, r.baseURL+appsPath, upstreamName, &resp); err != nil {
		return nil, wrap("list apps", err)
	}
	return repository.NormalizeAll(resp.Data), nil
}

// Save posts app to the upstream, which upserts it.
func (r *AppRepository) Save(ctx context.Context, app *domain.App) error {
	if app.ID == "" {
		return apperrors.InvalidInput("app id is required")
	}
	body, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("encode app: %w", err)
	}

	resp, err := r.client.Post(ctx, r.baseURL+appsPath, "application/json", bytes.NewReader(body))
	if err != nil {
		return wrap("save app", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return wrap("save app", httpclient.ParseResponseError(resp, upstreamName))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

// wrap marks an open breaker as a temporary unavailability so callers keep
// serving the previous snapshot.
func wrap(op string, err error) error {
	if errors.Is(err, httpclient.ErrCircuitOpen) {
		return fmt.Errorf("%s: %w", op, apperrors.ServiceUnavailable("catalog upstream circuit open"))
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ repository.AppRepository = (*AppRepository)(nil)
