package services

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination describes one page of a list result
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination clamps page and limit to sane values
func NewPagination(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return Pagination{Page: page, Limit: limit}
}

// Offset is the number of rows to skip for the current page
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p *Pagination) setTotal(total int64) {
	p.Total = total
	p.TotalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
}
