package catalog

import (
	"testing"
	"time"

	"github.com/bookstore/storefront/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func published(year int) model.Timestamp {
	return model.NewTimestamp(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
}

func testBooks() []model.Book {
	return []model.Book{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", ListPrice: 18, Format: "Paperback", PublicationDate: published(1965),
			Categories: []model.Category{{ID: 1, Name: "Science Fiction"}}, Description: "Desert planet epic"},
		{ID: 2, Title: "Atomic Habits", Author: "James Clear", ListPrice: 27.99, SalePrice: price(19.99), Format: "Hardcover",
			PublicationDate: published(2018), Categories: []model.Category{{ID: 2, Name: "Self Help"}}},
		{ID: 3, Title: "The Midnight Library", Author: "Matt Haig", ListPrice: 24.99, Format: "eBook", PublicationDate: published(2020),
			Categories: []model.Category{{ID: 3, Name: "Fiction"}}},
		{ID: 4, Title: "Project Hail Mary", Author: "Andy Weir", ListPrice: 150, Format: "Hardcover", PublicationDate: published(2021),
			Categories: []model.Category{{ID: 1, Name: "Science Fiction"}}},
		{ID: 5, Title: "dune messiah", Author: "Frank Herbert", ListPrice: 18, Format: "Paperback", PublicationDate: published(1969),
			Categories: []model.Category{{ID: 1, Name: "Science Fiction"}}},
	}
}

func ids(books []model.Book) []int64 {
	out := make([]int64, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func TestFilterBooksDefaults(t *testing.T) {
	got := FilterBooks(testBooks(), DefaultFilter())

	// Project Hail Mary is outside the default [0, 100] price range.
	assert.Equal(t, []int64{2, 1, 5, 3}, ids(got))
}

func TestFilterBooksPredicates(t *testing.T) {
	scifi := int64(1)
	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{name: "category", filter: Filter{Category: &scifi, SortBy: SortTitle, PriceRange: PriceRange{0, 1000}, Format: FormatAll}, want: []int64{1, 5, 4}},
		{name: "search title case-insensitive", filter: Filter{SearchQuery: "DUNE", SortBy: SortTitle, PriceRange: PriceRange{0, 100}}, want: []int64{1, 5}},
		{name: "search description", filter: Filter{SearchQuery: "desert", PriceRange: PriceRange{0, 100}}, want: []int64{1}},
		{name: "search author", filter: Filter{SearchQuery: "weir", PriceRange: PriceRange{0, 1000}}, want: []int64{4}},
		{name: "format", filter: Filter{Format: "hardcover", SortBy: SortPriceLow, PriceRange: PriceRange{0, 1000}}, want: []int64{2, 4}},
		{name: "sale price used for range", filter: Filter{PriceRange: PriceRange{19, 20}, Format: FormatAll}, want: []int64{2}},
		{name: "range inclusive", filter: Filter{PriceRange: PriceRange{18, 18}}, want: []int64{1, 5}},
		{name: "price high", filter: Filter{SortBy: SortPriceHigh, PriceRange: PriceRange{0, 1000}}, want: []int64{4, 3, 2, 1, 5}},
		{name: "newest", filter: Filter{SortBy: SortNewest, PriceRange: PriceRange{0, 1000}}, want: []int64{4, 3, 2, 5, 1}},
		{name: "author ties keep input order", filter: Filter{SortBy: SortAuthor, PriceRange: PriceRange{0, 1000}}, want: []int64{4, 1, 5, 2, 3}},
		{name: "unknown sort keeps input order", filter: Filter{SortBy: "rating", PriceRange: PriceRange{0, 1000}}, want: []int64{1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterBooks(testBooks(), tt.filter)))
		})
	}
}

func TestFilterBooksSubsetAndIdempotent(t *testing.T) {
	scifi := int64(1)
	query := "a"
	filters := []Filter{
		DefaultFilter(),
		DefaultFilter().Apply(FilterPatch{Category: &scifi}),
		DefaultFilter().Apply(FilterPatch{SearchQuery: &query}),
		{SortBy: SortPriceHigh, PriceRange: PriceRange{10, 30}, Format: "Paperback"},
		{SortBy: SortNewest, PriceRange: PriceRange{0, 1000}, Format: FormatAll},
	}
	books := testBooks()
	all := map[int64]bool{}
	for _, b := range books {
		all[b.ID] = true
	}

	for _, f := range filters {
		once := FilterBooks(books, f)
		for _, b := range once {
			assert.True(t, all[b.ID], "book %d not in input", b.ID)
		}
		twice := FilterBooks(once, f)
		assert.Equal(t, ids(once), ids(twice))
	}
}

func TestFilterBooksDoesNotAliasInput(t *testing.T) {
	books := testBooks()
	got := FilterBooks(books, Filter{SortBy: SortPriceHigh, PriceRange: PriceRange{0, 1000}})
	require.NotEmpty(t, got)
	got[0].Title = "changed"

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(books))
	assert.Equal(t, "Project Hail Mary", books[3].Title)
}

func TestFilterApply(t *testing.T) {
	cat := int64(3)
	sort := SortNewest
	f := DefaultFilter().Apply(FilterPatch{Category: &cat, SortBy: &sort})
	require.NotNil(t, f.Category)
	assert.Equal(t, int64(3), *f.Category)
	assert.Equal(t, SortNewest, f.SortBy)
	assert.Equal(t, PriceRange{0, 100}, f.PriceRange)

	f = f.Apply(FilterPatch{ClearCategory: true})
	assert.Nil(t, f.Category)
	assert.Equal(t, SortNewest, f.SortBy)
}
