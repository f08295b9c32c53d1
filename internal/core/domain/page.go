package domain

import "math"

// MaxPage is the highest page number the directory accepts.
const MaxPage = 1_000_000

// PageRequest selects one page of an ordered listing. Page is 1-based.
type PageRequest struct {
	Page  int
	Items int
}

// Offset returns the number of rows skipped before this page. It saturates
// at math.MaxInt instead of wrapping.
func (p PageRequest) Offset() int {
	if p.Page < 1 || p.Items < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Items {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Items
}

// Pagination describes where a page sits in the full listing.
type Pagination struct {
	Count  int  `json:"count"`
	Page   int  `json:"page"`
	Items  int  `json:"items"`
	Pages  int  `json:"pages"`
	Offset int  `json:"offset"`
	Prev   *int `json:"prev"`
	Next   *int `json:"next"`
}

// NewPagination computes page metadata for a listing of count rows.
func NewPagination(req PageRequest, count int) Pagination {
	pages := 1
	if req.Items > 0 && count > 0 {
		pages = (count + req.Items - 1) / req.Items
	}

	p := Pagination{
		Count:  count,
		Page:   req.Page,
		Items:  req.Items,
		Pages:  pages,
		Offset: req.Offset(),
	}
	if req.Page > 1 {
		prev := req.Page - 1
		p.Prev = &prev
	}
	if req.Page < pages {
		next := req.Page + 1
		p.Next = &next
	}
	return p
}

// UserPage is one page of the user directory.
type UserPage struct {
	Users      []*User
	Pagination Pagination
}
