package pagination

import (
	"net/http"
	"strconv"
)

// Limits for per_page.
const (
	DefaultPerPage = 50
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the first page at DefaultPerPage.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest extracts pagination parameters from an HTTP request. Invalid
// values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= MaxPerPage {
			p.PerPage = v
		}
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// Meta describes one page of a listing. It goes in the response meta.
type Meta struct {
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewMeta describes page params of a listing with totalCount items.
func NewMeta(totalCount int, params Params) Meta {
	totalPages := totalCount / params.PerPage
	if totalCount%params.PerPage > 0 {
		totalPages++
	}

	return Meta{
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Slice returns the page of items selected by params. A page past the end
// is empty, never nil.
func Slice[T any](items []T, params Params) ([]T, Meta) {
	meta := NewMeta(len(items), params)
	if params.Offset >= len(items) {
		return []T{}, meta
	}
	end := params.Offset + params.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[params.Offset:end], meta
}
