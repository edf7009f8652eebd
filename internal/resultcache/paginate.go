package resultcache

import (
	"errors"

	"birdbot/internal/domain"
)

// DefaultPageSize is the number of observations shown per page.
const DefaultPageSize = 5

// ErrInvalidPage indicates a page index outside [0, totalPages).
var ErrInvalidPage = errors.New("resultcache: invalid page number")

// Page is one slice of a cached result set. StartIndex is inclusive and
// EndIndex exclusive, both zero-based over the full item list.
type Page struct {
	Items      []domain.Observation
	Index      int
	StartIndex int
	EndIndex   int
	TotalPages int
}

// TotalPages returns how many pages of pageSize the item count spans.
func TotalPages(itemCount, pageSize int) int {
	if pageSize <= 0 || itemCount <= 0 {
		return 0
	}
	return (itemCount + pageSize - 1) / pageSize
}

// Paginate slices a zero-based page out of the set. Pagination never mutates
// the cached set.
func Paginate(set domain.CachedResultSet, pageSize, pageIndex int) (Page, error) {
	total := TotalPages(len(set.Items), pageSize)
	if pageIndex < 0 || pageIndex >= total {
		return Page{}, ErrInvalidPage
	}

	start := pageIndex * pageSize
	end := start + pageSize
	if end > len(set.Items) {
		end = len(set.Items)
	}

	return Page{
		Items:      set.Items[start:end],
		Index:      pageIndex,
		StartIndex: start,
		EndIndex:   end,
		TotalPages: total,
	}, nil
}

// UserPageIndex validates a one-based user-typed page number against the set
// and translates it to a zero-based index.
func UserPageIndex(set domain.CachedResultSet, pageSize, userPage int) (int, error) {
	total := TotalPages(len(set.Items), pageSize)
	if userPage < 1 || userPage > total {
		return 0, ErrInvalidPage
	}
	return userPage - 1, nil
}
