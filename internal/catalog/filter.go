// Package catalog computes derived views over the store's collections.
// Everything here is pure: inputs are never modified and outputs never alias them.
package catalog

import (
	"slices"
	"strings"

	"github.com/bookstore/storefront/internal/model"
)

// Sort keys accepted by Filter.SortBy.
const (
	SortTitle     = "title"
	SortAuthor    = "author"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortNewest    = "newest"
)

// FormatAll disables the format predicate.
const FormatAll = "all"

// PriceRange is an inclusive [Min, Max] bound on a book's current price.
type PriceRange [2]float64

// Filter is the catalog filter criteria. It is a value object.
type Filter struct {
	Category    *int64     `json:"category" yaml:"category"`
	SearchQuery string     `json:"searchQuery" yaml:"search_query"`
	SortBy      string     `json:"sortBy" yaml:"sort_by"`
	PriceRange  PriceRange `json:"priceRange" yaml:"price_range"`
	Format      string     `json:"format" yaml:"format"`
}

// DefaultFilter is the criteria ResetFilters restores.
func DefaultFilter() Filter {
	return Filter{
		SortBy:     SortTitle,
		PriceRange: PriceRange{0, 100},
		Format:     FormatAll,
	}
}

// FilterPatch carries the fields of a partial filter update. Nil fields are kept.
type FilterPatch struct {
	Category      *int64
	ClearCategory bool
	SearchQuery   *string
	SortBy        *string
	PriceRange    *PriceRange
	Format        *string
}

// Apply returns f with patch merged over it.
func (f Filter) Apply(patch FilterPatch) Filter {
	if patch.ClearCategory {
		f.Category = nil
	}
	if patch.Category != nil {
		id := *patch.Category
		f.Category = &id
	}
	if patch.SearchQuery != nil {
		f.SearchQuery = *patch.SearchQuery
	}
	if patch.SortBy != nil {
		f.SortBy = *patch.SortBy
	}
	if patch.PriceRange != nil {
		f.PriceRange = *patch.PriceRange
	}
	if patch.Format != nil {
		f.Format = *patch.Format
	}
	return f
}

// Match reports whether book satisfies every active predicate of f.
func (f Filter) Match(book model.Book) bool {
	if f.Category != nil && !book.InCategory(*f.Category) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.SearchQuery)); q != "" {
		if !strings.Contains(strings.ToLower(book.Title), q) &&
			!strings.Contains(strings.ToLower(book.Author), q) &&
			!strings.Contains(strings.ToLower(book.Description), q) {
			return false
		}
	}
	if f.Format != "" && f.Format != FormatAll && !strings.EqualFold(book.Format, f.Format) {
		return false
	}
	price := book.CurrentPrice()
	return price >= f.PriceRange[0] && price <= f.PriceRange[1]
}

// FilterBooks returns the books matching f, stably sorted by f.SortBy.
// Unknown sort keys keep the input order.
func FilterBooks(books []model.Book, f Filter) []model.Book {
	out := make([]model.Book, 0, len(books))
	for _, b := range books {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	if cmp := bookComparator(f.SortBy); cmp != nil {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

func bookComparator(sortBy string) func(a, b model.Book) int {
	switch sortBy {
	case SortTitle:
		return func(a, b model.Book) int { return compareText(a.Title, b.Title) }
	case SortAuthor:
		return func(a, b model.Book) int { return compareText(a.Author, b.Author) }
	case SortPriceLow:
		return func(a, b model.Book) int { return compareFloat(a.CurrentPrice(), b.CurrentPrice()) }
	case SortPriceHigh:
		return func(a, b model.Book) int { return compareFloat(b.CurrentPrice(), a.CurrentPrice()) }
	case SortNewest:
		return func(a, b model.Book) int { return b.PublicationDate.Compare(a.PublicationDate.Time) }
	}
	return nil
}

// compareText orders case-insensitively. Equal keys keep their input order.
func compareText(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
