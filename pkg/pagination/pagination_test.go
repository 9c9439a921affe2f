package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/apps", nil)
	p := FromRequest(req)

	assert.Equal(t, DefaultParams(), p)
	assert.Equal(t, DefaultPerPage, p.PerPage)
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/apps?page=3&per_page=25", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 25, p.PerPage)
	assert.Equal(t, 50, p.Offset)
}

func TestFromRequest_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"negative page", "page=-1"},
		{"zero page", "page=0"},
		{"page not a number", "page=abc"},
		{"per_page over max", "per_page=101"},
		{"zero per_page", "per_page=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/apps?"+tt.query, nil)
			assert.Equal(t, DefaultParams(), FromRequest(req))
		})
	}
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		params Params
		want   Meta
	}{
		{"single page", 3, Params{Page: 1, PerPage: 10}, Meta{TotalCount: 3, Page: 1, PerPage: 10, TotalPages: 1}},
		{"middle page", 10, Params{Page: 2, PerPage: 2, Offset: 2}, Meta{TotalCount: 10, Page: 2, PerPage: 2, TotalPages: 5, HasNext: true, HasPrev: true}},
		{"last partial page", 11, Params{Page: 3, PerPage: 5, Offset: 10}, Meta{TotalCount: 11, Page: 3, PerPage: 5, TotalPages: 3, HasPrev: true}},
		{"empty", 0, DefaultParams(), Meta{Page: 1, PerPage: DefaultPerPage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewMeta(tt.total, tt.params))
		})
	}
}

func TestSlice(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	page, meta := Slice(items, Params{Page: 2, PerPage: 2, Offset: 2})
	assert.Equal(t, []string{"c", "d"}, page)
	assert.Equal(t, 3, meta.TotalPages)

	page, _ = Slice(items, Params{Page: 3, PerPage: 2, Offset: 4})
	assert.Equal(t, []string{"e"}, page)

	page, meta = Slice(items, Params{Page: 9, PerPage: 2, Offset: 16})
	assert.NotNil(t, page)
	assert.Empty(t, page)
	assert.False(t, meta.HasNext)
}
