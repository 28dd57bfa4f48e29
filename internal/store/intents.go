package store

import (
	"context"
	"fmt"

	"github.com/bookstore/storefront/internal/api"
	"github.com/bookstore/storefront/internal/db"
	"github.com/bookstore/storefront/internal/events"
	"go.uber.org/zap"
)

// ReplaySummary reports what ReplayIntents did. Redirect is the path stored by
// the latest deferred action, empty when none was stored.
type ReplaySummary struct {
	CartAdded     int    `json:"cart_added"`
	WishlistAdded int    `json:"wishlist_added"`
	Applied       int    `json:"applied"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	Redirect      string `json:"redirect,omitempty"`
	// Stale lists the resources whose reload after replay failed, so the local
	// copy may not show the replayed changes.
	Stale []string `json:"stale,omitempty"`
}

// replayState tracks what the cart and wishlist contain while intents are applied.
type replayState struct {
	cartBooks     map[int64]bool
	cartItems     map[int64]bool
	wishlistBooks map[int64]bool
	wishlistItems map[int64]bool

	cartDirty     bool
	wishlistDirty bool
}

func (s *Store) replayState() *replayState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := &replayState{
		cartBooks:     make(map[int64]bool),
		cartItems:     make(map[int64]bool),
		wishlistBooks: make(map[int64]bool),
		wishlistItems: make(map[int64]bool),
	}
	for _, item := range s.st.Cart.Data {
		rs.cartBooks[item.BookID] = true
		rs.cartItems[item.ID] = true
	}
	for _, item := range s.st.Wishlist.Data {
		rs.wishlistBooks[item.ReferencedBookID()] = true
		rs.wishlistItems[item.ID] = true
	}
	return rs
}

type replayOutcome int

const (
	replayApplied replayOutcome = iota
	replaySkipped
	replayFailed
)

// ReplayIntents applies the pending intents, oldest first, against the signed-in
// session. Call it after the cart and wishlist were refreshed: additions of a book
// already present and removals of entries already gone are closed without a call.
// A 401 stops the replay and leaves the remaining intents pending.
func (s *Store) ReplayIntents(ctx context.Context) (ReplaySummary, error) {
	var summary ReplaySummary
	if s.intents == nil {
		return summary, nil
	}
	if !s.signedIn() {
		return summary, ErrAuthRequired
	}

	pending, err := s.intents.ListPending(ctx)
	if err != nil {
		return summary, fmt.Errorf("store: list pending intents: %w", err)
	}

	rs := s.replayState()
	var stopErr error
	for i := range pending {
		intent := pending[i]
		outcome, reason, err := s.replayOne(ctx, rs, intent)
		if api.IsUnauthorized(err) {
			s.expireSession()
			stopErr = fmt.Errorf("%w: %w", ErrAuthRequired, err)
			break
		}

		switch outcome {
		case replayFailed:
			summary.Failed++
			if merr := s.intents.MarkFailed(ctx, intent.ID, reason); merr != nil {
				s.log.Warn("Failed to close intent", zap.Uint64("intent_id", intent.ID), zap.Error(merr))
			}
			s.log.Warn("Intent replay failed",
				zap.Uint64("intent_id", intent.ID),
				zap.String("type", string(intent.Type)),
				zap.Int64("book_id", intent.BookID),
				zap.Int64("item_id", intent.ItemID),
				zap.String("reason", reason),
			)
			continue
		case replaySkipped:
			summary.Skipped++
		case replayApplied:
			summary.Applied++
			switch intent.Type {
			case db.IntentAddToCart:
				summary.CartAdded++
			case db.IntentAddToWishlist:
				summary.WishlistAdded++
			}
		}
		if merr := s.intents.MarkApplied(ctx, intent.ID); merr != nil {
			s.log.Warn("Failed to close intent", zap.Uint64("intent_id", intent.ID), zap.Error(merr))
		}
	}

	if stopErr == nil {
		if rs.cartDirty {
			summary.staleIf(ResourceCart, s.reloadCart(ctx), s.log)
		}
		if rs.wishlistDirty {
			summary.staleIf(ResourceWishlist, s.reloadWishlist(ctx), s.log)
		}
	}
	s.refreshPending(ctx)

	if stopErr != nil {
		return summary, stopErr
	}

	summary.Redirect = s.popRedirect(ctx)
	s.log.Info("Pending intents replayed",
		zap.Int("applied", summary.Applied),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Strings("stale", summary.Stale),
	)
	if summary.CartAdded > 0 {
		s.notify(ctx, events.LevelSuccess, "replayIntents", plural(summary.CartAdded, "item")+" added to your cart")
	}
	if summary.WishlistAdded > 0 {
		s.notify(ctx, events.LevelSuccess, "replayIntents", plural(summary.WishlistAdded, "item")+" added to your wishlist")
	}
	return summary, nil
}

func (r *ReplaySummary) staleIf(resource string, err error, log *zap.Logger) {
	if err == nil {
		return
	}
	log.Warn("Reload after intent replay failed", zap.String("resource", resource), zap.Error(err))
	r.Stale = append(r.Stale, resource)
}

// replayOne applies a single intent. A non-nil error is returned only for 401.
func (s *Store) replayOne(ctx context.Context, rs *replayState, intent db.PendingIntent) (replayOutcome, string, error) {
	var err error
	switch intent.Type {
	case db.IntentAddToCart:
		if rs.cartBooks[intent.BookID] {
			return replaySkipped, "", nil
		}
		if err = s.api.AddToCart(ctx, intent.BookID, intent.Quantity); err == nil {
			rs.cartBooks[intent.BookID] = true
			rs.cartDirty = true
		}
	case db.IntentUpdateCartItem:
		if !rs.cartItems[intent.ItemID] {
			return replayFailed, "cart entry no longer exists", nil
		}
		if err = s.api.UpdateCartItem(ctx, intent.ItemID, intent.Quantity); err == nil {
			rs.cartDirty = true
		}
	case db.IntentRemoveFromCart:
		if !rs.cartItems[intent.ItemID] {
			return replaySkipped, "", nil
		}
		if err = s.api.RemoveFromCart(ctx, intent.ItemID); err == nil {
			delete(rs.cartItems, intent.ItemID)
			delete(rs.cartBooks, intent.BookID)
			rs.cartDirty = true
		}
	case db.IntentClearCart:
		if err = s.api.ClearCart(ctx); err == nil {
			rs.cartBooks = make(map[int64]bool)
			rs.cartItems = make(map[int64]bool)
			rs.cartDirty = true
		}
	case db.IntentAddToWishlist:
		if rs.wishlistBooks[intent.BookID] {
			return replaySkipped, "", nil
		}
		if err = s.api.AddToWishlist(ctx, intent.BookID); err == nil {
			rs.wishlistBooks[intent.BookID] = true
			rs.wishlistDirty = true
		}
	case db.IntentRemoveFromWishlist:
		if !rs.wishlistItems[intent.ItemID] {
			return replaySkipped, "", nil
		}
		if err = s.api.RemoveFromWishlist(ctx, intent.ItemID); err == nil {
			delete(rs.wishlistItems, intent.ItemID)
			delete(rs.wishlistBooks, intent.BookID)
			rs.wishlistDirty = true
		}
	case db.IntentMoveToCart:
		if !rs.wishlistItems[intent.ItemID] {
			return replayFailed, "wishlist entry no longer exists", nil
		}
		if err = s.api.MoveWishlistItemToCart(ctx, intent.ItemID); err == nil {
			delete(rs.wishlistItems, intent.ItemID)
			delete(rs.wishlistBooks, intent.BookID)
			rs.cartBooks[intent.BookID] = true
			rs.cartDirty = true
			rs.wishlistDirty = true
		}
	default:
		return replayFailed, fmt.Sprintf("unknown intent type %q", intent.Type), nil
	}

	switch {
	case err == nil:
		return replayApplied, "", nil
	case api.IsUnauthorized(err):
		return replayFailed, "", err
	}
	return replayFailed, err.Error(), nil
}

// popRedirect returns and forgets the stored post-login path.
func (s *Store) popRedirect(ctx context.Context) string {
	path, ok, err := s.intents.GetValue(ctx, db.KeyRedirectAfterLogin)
	if err != nil {
		s.log.Warn("Failed to read redirect path", zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	if err := s.intents.DeleteValue(ctx, db.KeyRedirectAfterLogin); err != nil {
		s.log.Warn("Failed to clear redirect path", zap.Error(err))
	}
	return path
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
