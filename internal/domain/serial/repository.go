package serial

import (
	"context"
)

// PatternRepository persists SerialPattern aggregates.
type PatternRepository interface {
	// Create inserts p and fills ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, p *SerialPattern) error
	Update(ctx context.Context, p *SerialPattern) error
	GetByID(ctx context.Context, id int64) (*SerialPattern, error)
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context, filter PatternFilter, opts ...QueryOption) ([]*SerialPattern, int64, error)
	// ListApplicable returns the active patterns usable for productID:
	// every global pattern plus those scoped to productID.
	ListApplicable(ctx context.Context, productID *int64) ([]*SerialPattern, error)
}

// PatternFilter narrows List results. Zero values do not filter.
type PatternFilter struct {
	ProductID  *int64
	ActiveOnly bool
	Type       PatternType
}

// QueryOptions encapsulates paging and sorting.
type QueryOptions struct {
	Offset        int
	Limit         int
	SortField     string
	SortAscending bool
	NameKeyword   string
}

// QueryOption is a functional option for QueryOptions.
type QueryOption func(*QueryOptions)

// Sortable columns accepted by WithSortBy.
const (
	SortByCreatedAt = "created_at"
	SortByName      = "name"
	SortByID        = "id"
)

// WithPagination sets offset and limit, clamping limit to [1, 500].
func WithPagination(offset, limit int) QueryOption {
	return func(o *QueryOptions) {
		if offset < 0 {
			offset = 0
		}
		if limit < 1 {
			limit = 20
		}
		if limit > 500 {
			limit = 500
		}
		o.Offset = offset
		o.Limit = limit
	}
}

// WithSortBy sets sorting. Unknown fields fall back to created_at.
func WithSortBy(field string, ascending bool) QueryOption {
	return func(o *QueryOptions) {
		switch field {
		case SortByCreatedAt, SortByName, SortByID:
		default:
			field = SortByCreatedAt
		}
		o.SortField = field
		o.SortAscending = ascending
	}
}

// WithNameFilter restricts results to names containing keyword.
func WithNameFilter(keyword string) QueryOption {
	return func(o *QueryOptions) {
		o.NameKeyword = keyword
	}
}

// ApplyOptions folds opts over the defaults.
func ApplyOptions(opts ...QueryOption) QueryOptions {
	o := QueryOptions{
		Limit:     20,
		SortField: SortByCreatedAt,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

//Personal.AI order the ending
