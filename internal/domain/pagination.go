package domain

import "math"

// Page is a validated page/limit pair
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps page and limit. A non-positive limit falls back to def, and max caps it.
// Page is capped so the offset stays within a Postgres integer.
func NewPage(page, limit, def, max int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if maxPage := math.MaxInt32 / limit; page > maxPage {
		page = maxPage
	}
	return Page{Page: page, Limit: limit}
}

// Offset returns the SQL OFFSET for the page
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination is the envelope metadata for list responses
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Paginate builds the response metadata for a page of total rows
func (p Page) Paginate(total int) *Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return &Pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}
