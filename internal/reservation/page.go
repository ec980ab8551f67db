package reservation

import (
	"fmt"
	"strings"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page selects a window of a listing.  Sort names a field, with a leading
// "-" for descending order; the default is newest first.
type Page struct {
	Page  int
	Limit int
	Sort  string
}

// Result is the envelope returned by listing operations.
type Result[T any] struct {
	Items     []T `json:"items"`
	Total     int `json:"total"`
	Page      int `json:"page"`
	PageCount int `json:"pages"`
}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"checkIn":   "check_in",
	"checkOut":  "check_out",
	"total":     "total_price_cents",
	"status":    "status",
}

// Normalize fills defaults and rejects unknown sort keys.
func (p Page) Normalize() (Page, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Sort == "" {
		p.Sort = "-createdAt"
	}
	if _, _, err := p.OrderBy(); err != nil {
		return p, err
	}
	return p, nil
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// OrderBy resolves Sort to a column name and direction.
func (p Page) OrderBy() (column string, desc bool, err error) {
	key := p.Sort
	if strings.HasPrefix(key, "-") {
		desc = true
		key = key[1:]
	}
	column, ok := sortColumns[key]
	if !ok {
		return "", false, fmt.Errorf("%w: unknown sort key %q", ErrInvalidRequest, p.Sort)
	}
	return column, desc, nil
}

// NewResult builds the envelope for one page of items.
func NewResult[T any](items []T, total int, p Page) Result[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Result[T]{Items: items, Total: total, Page: p.Page, PageCount: pages}
}
