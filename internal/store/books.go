package store

import (
	"context"
	"net/url"

	"github.com/bookstore/storefront/internal/catalog"
	"github.com/bookstore/storefront/internal/model"
)

func pickBooks(st *Snapshot) *Resource[[]model.Book] { return &st.Books }

// FetchBooks loads the catalog listing. params pass through as query parameters
// and are remembered for refetches after admin edits.
func (s *Store) FetchBooks(ctx context.Context, params url.Values) ([]model.Book, error) {
	params = cloneValues(params)
	s.mu.Lock()
	s.bookParams = params
	s.mu.Unlock()

	var pagination model.Pagination
	return fetch(ctx, s, action{name: "fetchBooks", resource: ResourceBooks, failure: "Failed to load books"},
		pickBooks,
		func(ctx context.Context) ([]model.Book, error) {
			page, err := s.api.ListBooks(ctx, params)
			pagination = page.Pagination
			return page.Books, err
		},
		func(st *Snapshot, _ []model.Book) { st.BookPagination = pagination },
	)
}

// RefreshBooks refetches the catalog with the last parameters used.
func (s *Store) RefreshBooks(ctx context.Context) ([]model.Book, error) {
	s.mu.RLock()
	params := cloneValues(s.bookParams)
	s.mu.RUnlock()
	return s.FetchBooks(ctx, params)
}

// FetchBook loads one book into the detail resource.
func (s *Store) FetchBook(ctx context.Context, id int64) (*model.Book, error) {
	return fetch(ctx, s, action{name: "fetchBook", resource: ResourceBook, failure: "Failed to load book"},
		func(st *Snapshot) *Resource[*model.Book] { return &st.Book },
		func(ctx context.Context) (*model.Book, error) {
			book, err := s.api.GetBook(ctx, id)
			if err != nil {
				return nil, err
			}
			return &book, nil
		},
		nil,
	)
}

// FetchCategories loads the category list.
func (s *Store) FetchCategories(ctx context.Context) ([]model.Category, error) {
	return fetch(ctx, s, action{name: "fetchCategories", resource: ResourceCategories, failure: "Failed to load categories"},
		func(st *Snapshot) *Resource[[]model.Category] { return &st.Categories },
		s.api.Categories,
		nil,
	)
}

// FetchFeaturedBooks loads the featured shelf.
func (s *Store) FetchFeaturedBooks(ctx context.Context) ([]model.Book, error) {
	return fetch(ctx, s, action{name: "fetchFeaturedBooks", resource: ResourceFeatured, failure: "Failed to load featured books"},
		func(st *Snapshot) *Resource[[]model.Book] { return &st.Featured },
		s.api.FeaturedBooks,
		nil,
	)
}

// FetchBestsellers loads the bestseller shelf.
func (s *Store) FetchBestsellers(ctx context.Context) ([]model.Book, error) {
	return fetch(ctx, s, action{name: "fetchBestsellers", resource: ResourceBestsellers, failure: "Failed to load bestsellers"},
		func(st *Snapshot) *Resource[[]model.Book] { return &st.Bestsellers },
		s.api.Bestsellers,
		nil,
	)
}

// SearchBooks runs a server-side search into the search resource.
func (s *Store) SearchBooks(ctx context.Context, query string, limit int) ([]model.Book, error) {
	return fetch(ctx, s, action{name: "searchBooks", resource: ResourceSearch, failure: "Search failed"},
		func(st *Snapshot) *Resource[[]model.Book] { return &st.Search },
		func(ctx context.Context) ([]model.Book, error) { return s.api.SearchBooks(ctx, query, limit) },
		nil,
	)
}

// CreateBook adds a catalog item and refetches the listing. Admin only.
func (s *Store) CreateBook(ctx context.Context, in model.BookInput) (*model.Book, error) {
	act := action{name: "createBook", resource: ResourceBooks, failure: "Failed to create book", success: "Book created"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return nil, err
	}
	var created model.Book
	err := s.mutate(ctx, act, func(st *Snapshot) lifecycle { return &st.Books }, func(ctx context.Context) error {
		var err error
		created, err = s.api.CreateBook(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	_, err = s.RefreshBooks(ctx)
	return &created, err
}

// UpdateBook edits a catalog item and refetches the listing. Admin only.
func (s *Store) UpdateBook(ctx context.Context, id int64, in model.BookInput) (*model.Book, error) {
	act := action{name: "updateBook", resource: ResourceBooks, failure: "Failed to update book", success: "Book updated"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return nil, err
	}
	var updated model.Book
	err := s.mutate(ctx, act, func(st *Snapshot) lifecycle { return &st.Books }, func(ctx context.Context) error {
		var err error
		updated, err = s.api.UpdateBook(ctx, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	_, err = s.RefreshBooks(ctx)
	return &updated, err
}

// DeleteBook removes a catalog item and refetches the listing. Admin only.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	act := action{name: "deleteBook", resource: ResourceBooks, failure: "Failed to delete book", success: "Book deleted"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return err
	}
	err := s.mutate(ctx, act, func(st *Snapshot) lifecycle { return &st.Books }, func(ctx context.Context) error {
		return s.api.DeleteBook(ctx, id)
	})
	if err != nil {
		return err
	}
	_, err = s.RefreshBooks(ctx)
	return err
}

// Filters returns the current catalog criteria.
func (s *Store) Filters() catalog.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Filters
}

// UpdateFilters merges patch over the current criteria.
func (s *Store) UpdateFilters(patch catalog.FilterPatch) catalog.Filter {
	var f catalog.Filter
	s.update(func(st *Snapshot) {
		st.Filters = st.Filters.Apply(patch)
		f = st.Filters
	}, ResourceFilters)
	return f
}

// ResetFilters restores the default criteria.
func (s *Store) ResetFilters() catalog.Filter {
	s.update(func(st *Snapshot) { st.Filters = catalog.DefaultFilter() }, ResourceFilters)
	return catalog.DefaultFilter()
}

// FilteredBooks projects the loaded catalog through the current criteria.
func (s *Store) FilteredBooks() []model.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.FilterBooks(s.st.Books.Data, s.st.Filters)
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
