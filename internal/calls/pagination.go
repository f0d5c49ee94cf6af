package calls

import (
	"errors"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	DefaultRichLimit = 100
	MaxRichLimit     = 500
)

var ErrInvalidPage = errors.New("calls: invalid pagination")

// Page is a resolved window over a listing. Page is 1-based.
type Page struct {
	Limit  int
	Offset int
	Page   int
}

// ParsePage accepts either offset or page (1-based) alongside limit.
// When both are given, offset wins.
func ParsePage(limit, offset, page string) (Page, error) {
	p := Page{Limit: DefaultLimit, Page: 1}

	if v := strings.TrimSpace(limit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			return Page{}, ErrInvalidPage
		}
		p.Limit = n
	}
	if v := strings.TrimSpace(page); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Page{}, ErrInvalidPage
		}
		p.Page = n
		p.Offset = (n - 1) * p.Limit
	}
	if v := strings.TrimSpace(offset); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Page{}, ErrInvalidPage
		}
		p.Offset = n
		p.Page = n/p.Limit + 1
	}
	return p, nil
}

// ListResponse is the envelope of paginated listings.
type ListResponse[T any] struct {
	Data        []T   `json:"data"`
	TotalItems  int64 `json:"total_items"`
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	Limit       int   `json:"limit"`
	Offset      int   `json:"offset"`
}

func NewListResponse[T any](data []T, total int64, p Page) ListResponse[T] {
	if data == nil {
		data = []T{}
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	if pages < 1 {
		pages = 1
	}
	return ListResponse[T]{
		Data:        data,
		TotalItems:  total,
		CurrentPage: p.Page,
		TotalPages:  pages,
		Limit:       p.Limit,
		Offset:      p.Offset,
	}
}
