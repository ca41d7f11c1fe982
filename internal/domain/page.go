package domain

// PageRequest selects a zero-based page.
type PageRequest struct {
	PageNo   int
	PageSize int
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	return p.PageNo * p.PageSize
}

// Page is one slice of a larger result set.
type Page[T any] struct {
	Items    []T   `json:"items"`
	PageNo   int   `json:"page_no"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// TotalPages returns how many pages the full result set spans.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}
