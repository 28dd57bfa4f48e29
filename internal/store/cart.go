package store

import (
	"context"
	"time"

	"github.com/bookstore/storefront/internal/api"
	"github.com/bookstore/storefront/internal/checkout"
	"github.com/bookstore/storefront/internal/db"
	"github.com/bookstore/storefront/internal/model"
)

const (
	cartPath     = "/cart"
	wishlistPath = "/wishlist"
)

func pickCart(st *Snapshot) *Resource[[]model.CartItem]         { return &st.Cart }
func pickWishlist(st *Snapshot) *Resource[[]model.WishlistItem] { return &st.Wishlist }

func cartLifecycle(st *Snapshot) lifecycle     { return &st.Cart }
func wishlistLifecycle(st *Snapshot) lifecycle { return &st.Wishlist }

// FetchCart replaces the cart with the server's copy.
func (s *Store) FetchCart(ctx context.Context) ([]model.CartItem, error) {
	return fetch(ctx, s, action{name: "fetchCart", resource: ResourceCart, failure: "Failed to load cart"},
		pickCart, s.api.Cart, nil)
}

// FetchWishlist replaces the wishlist with the server's copy.
func (s *Store) FetchWishlist(ctx context.Context) ([]model.WishlistItem, error) {
	return fetch(ctx, s, action{name: "fetchWishlist", resource: ResourceWishlist, failure: "Failed to load wishlist"},
		pickWishlist, s.api.Wishlist, nil)
}

// sessionMutation runs a cart or wishlist write for a signed-in user. Without a
// session, or when the API answers 401, the write is queued as intent instead.
// On success every collection in refetch is reloaded.
func (s *Store) sessionMutation(ctx context.Context, act action, pick func(*Snapshot) lifecycle,
	intent db.PendingIntent, redirect string, do func(context.Context) error, refetch ...func(context.Context) error) error {
	if !s.signedIn() {
		return s.deferIntent(ctx, act, intent, redirect, nil)
	}

	start := time.Now()
	s.begin(act, pick)
	err := do(ctx)
	if api.IsUnauthorized(err) {
		s.end(act, pick, nil)
		s.expireSession()
		return s.deferIntent(ctx, act, intent, redirect, err)
	}
	s.end(act, pick, err)
	if err := s.finish(ctx, act, start, err); err != nil {
		return err
	}

	for _, load := range refetch {
		if err := load(ctx); err != nil {
			return err
		}
	}
	return nil
}

// expireSession drops the user after the API reported the session gone.
func (s *Store) expireSession() {
	s.update(func(st *Snapshot) { st.User = nil }, ResourceUser)
}

func (s *Store) reloadCart(ctx context.Context) error {
	_, err := s.FetchCart(ctx)
	return err
}

func (s *Store) reloadWishlist(ctx context.Context) error {
	_, err := s.FetchWishlist(ctx)
	return err
}

// AddToCart adds quantity copies of a book. Quantities below one count as one.
func (s *Store) AddToCart(ctx context.Context, bookID int64, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	return s.sessionMutation(ctx,
		action{name: "addToCart", resource: ResourceCart, failure: "Failed to add to cart", success: "Added to cart"},
		cartLifecycle,
		db.PendingIntent{Type: db.IntentAddToCart, BookID: bookID, Quantity: quantity, BookTitle: s.bookTitle(bookID)},
		cartPath,
		func(ctx context.Context) error { return s.api.AddToCart(ctx, bookID, quantity) },
		s.reloadCart,
	)
}

// UpdateCartItem sets an entry's quantity. A quantity of zero or less removes the entry.
func (s *Store) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, itemID)
	}
	item, _ := s.cartItem(itemID)
	return s.sessionMutation(ctx,
		action{name: "updateCartItem", resource: ResourceCart, failure: "Failed to update cart"},
		cartLifecycle,
		db.PendingIntent{Type: db.IntentUpdateCartItem, ItemID: itemID, BookID: item.BookID, Quantity: quantity, BookTitle: item.Title},
		cartPath,
		func(ctx context.Context) error { return s.api.UpdateCartItem(ctx, itemID, quantity) },
		s.reloadCart,
	)
}

// RemoveFromCart deletes a cart entry by its association id.
func (s *Store) RemoveFromCart(ctx context.Context, itemID int64) error {
	item, _ := s.cartItem(itemID)
	return s.sessionMutation(ctx,
		action{name: "removeFromCart", resource: ResourceCart, failure: "Failed to remove from cart", success: "Removed from cart"},
		cartLifecycle,
		db.PendingIntent{Type: db.IntentRemoveFromCart, ItemID: itemID, BookID: item.BookID, BookTitle: item.Title},
		cartPath,
		func(ctx context.Context) error { return s.api.RemoveFromCart(ctx, itemID) },
		s.reloadCart,
	)
}

// RemoveBookFromCart resolves the cart entry of a book and removes it.
func (s *Store) RemoveBookFromCart(ctx context.Context, bookID int64) error {
	item, ok := s.CartItemForBook(bookID)
	if !ok {
		return ErrNotInCart
	}
	return s.RemoveFromCart(ctx, item.ID)
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.sessionMutation(ctx,
		action{name: "clearCart", resource: ResourceCart, failure: "Failed to clear cart", success: "Cart cleared"},
		cartLifecycle,
		db.PendingIntent{Type: db.IntentClearCart},
		cartPath,
		func(ctx context.Context) error { return s.api.ClearCart(ctx) },
		s.reloadCart,
	)
}

// AddToWishlist saves a book.
func (s *Store) AddToWishlist(ctx context.Context, bookID int64) error {
	return s.sessionMutation(ctx,
		action{name: "addToWishlist", resource: ResourceWishlist, failure: "Failed to add to wishlist", success: "Added to wishlist"},
		wishlistLifecycle,
		db.PendingIntent{Type: db.IntentAddToWishlist, BookID: bookID, BookTitle: s.bookTitle(bookID)},
		wishlistPath,
		func(ctx context.Context) error { return s.api.AddToWishlist(ctx, bookID) },
		s.reloadWishlist,
	)
}

// RemoveFromWishlist deletes a wishlist entry by its association id.
func (s *Store) RemoveFromWishlist(ctx context.Context, itemID int64) error {
	item, _ := s.wishlistItem(itemID)
	return s.sessionMutation(ctx,
		action{name: "removeFromWishlist", resource: ResourceWishlist, failure: "Failed to remove from wishlist", success: "Removed from wishlist"},
		wishlistLifecycle,
		db.PendingIntent{Type: db.IntentRemoveFromWishlist, ItemID: itemID, BookID: item.ReferencedBookID()},
		wishlistPath,
		func(ctx context.Context) error { return s.api.RemoveFromWishlist(ctx, itemID) },
		s.reloadWishlist,
	)
}

// RemoveBookFromWishlist resolves the wishlist entry of a book and removes it.
func (s *Store) RemoveBookFromWishlist(ctx context.Context, bookID int64) error {
	item, ok := s.WishlistItemForBook(bookID)
	if !ok {
		return ErrNotInWishlist
	}
	return s.RemoveFromWishlist(ctx, item.ID)
}

// MoveWishlistItemToCart moves an entry to the cart and reloads both collections.
func (s *Store) MoveWishlistItemToCart(ctx context.Context, itemID int64) error {
	item, _ := s.wishlistItem(itemID)
	return s.sessionMutation(ctx,
		action{name: "moveToCart", resource: ResourceWishlist, failure: "Failed to move item to cart", success: "Moved to cart"},
		wishlistLifecycle,
		db.PendingIntent{Type: db.IntentMoveToCart, ItemID: itemID, BookID: item.ReferencedBookID()},
		wishlistPath,
		func(ctx context.Context) error { return s.api.MoveWishlistItemToCart(ctx, itemID) },
		s.reloadWishlist, s.reloadCart,
	)
}

// CartItems returns a copy of the cart.
func (s *Store) CartItems() []model.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.st.Cart.Data)
}

// CartTotal is the cart subtotal: current price times quantity.
func (s *Store) CartTotal() model.Cents {
	return checkout.Totals(s.CartItems()).Subtotal
}

// CartItemCount is the number of units in the cart.
func (s *Store) CartItemCount() int {
	return checkout.Totals(s.CartItems()).Units
}

// WishlistCount is the number of wishlist entries.
func (s *Store) WishlistCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.Wishlist.Data)
}

// CartItemForBook finds the cart entry referencing bookID.
func (s *Store) CartItemForBook(bookID int64) (model.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.st.Cart.Data {
		if item.BookID == bookID {
			return item, true
		}
	}
	return model.CartItem{}, false
}

// WishlistItemForBook finds the wishlist entry referencing bookID.
func (s *Store) WishlistItemForBook(bookID int64) (model.WishlistItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.st.Wishlist.Data {
		if item.ReferencedBookID() == bookID {
			return item, true
		}
	}
	return model.WishlistItem{}, false
}

func (s *Store) cartItem(itemID int64) (model.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.st.Cart.Data {
		if item.ID == itemID {
			return item, true
		}
	}
	return model.CartItem{}, false
}

func (s *Store) wishlistItem(itemID int64) (model.WishlistItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.st.Wishlist.Data {
		if item.ID == itemID {
			return item, true
		}
	}
	return model.WishlistItem{}, false
}

// bookTitle looks a title up in the loaded collections for intent display.
func (s *Store) bookTitle(bookID int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range [][]model.Book{s.st.Books.Data, s.st.Featured.Data, s.st.Bestsellers.Data, s.st.Search.Data} {
		for _, b := range list {
			if b.ID == bookID {
				return b.Title
			}
		}
	}
	if s.st.Book.Data != nil && s.st.Book.Data.ID == bookID {
		return s.st.Book.Data.Title
	}
	return ""
}
