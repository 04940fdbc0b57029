// Package pagination holds the paging parameters shared by list queries.
package pagination

// Params holds pagination parameters for a list query.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:    1,
		PerPage: 20,
	}
}

// Normalize clamps out-of-range values: page floors at 1, per-page falls back
// to the default and caps at 100.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultParams().PerPage
	}
	if p.PerPage > 100 {
		p.PerPage = 100
	}
	return p
}

// Offset returns the row offset for the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Result wraps one page of a list query.
type Result[T any] struct {
	Data    []T  `json:"data"`
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// NewResult creates a paginated result. HasNext is inferred from a full page,
// which may over-report by one page when the total is an exact multiple.
func NewResult[T any](data []T, params Params) Result[T] {
	return Result[T]{
		Data:    data,
		Page:    params.Page,
		PerPage: params.PerPage,
		HasNext: len(data) == params.PerPage,
		HasPrev: params.Page > 1,
	}
}
