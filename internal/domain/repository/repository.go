package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConditionFailed is returned by conditional writes whose guard did not hold.
	ErrConditionFailed = errors.New("condition failed")
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (Page-1)*Limit far from int overflow.
	MaxPage = 1_000_000
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit into their accepted ranges.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Paginated is one page of results plus the total match count.
type Paginated[T any] struct {
	Items []T
	Total int64
	Page  Page
}

func (p Paginated[T]) Pages() int {
	if p.Page.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Page.Limit) - 1) / int64(p.Page.Limit))
}

func (p Paginated[T]) HasNextPage() bool { return p.Page.Page < p.Pages() }
func (p Paginated[T]) HasPrevPage() bool { return p.Page.Page > 1 }
