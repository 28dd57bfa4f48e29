package store

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrAuthRequired is returned when an action needs a signed-in user. Cart and
	// wishlist mutations have been queued for replay after login when it is returned.
	ErrAuthRequired = errors.New("store: sign in required")
	// ErrForbidden is returned by admin actions when the current user is not an administrator.
	ErrForbidden = errors.New("store: admin access required")
	// ErrCartChanged is returned when the cart differs from the one checkout started with.
	ErrCartChanged = errors.New("store: cart changed since checkout started")
	// ErrNotInCart is returned when a book has no cart entry.
	ErrNotInCart = errors.New("store: book is not in the cart")
	// ErrNotInWishlist is returned when a book has no wishlist entry.
	ErrNotInWishlist = errors.New("store: book is not in the wishlist")
)

// ActionError is a failed store action. Message is the user-facing text.
type ActionError struct {
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// BulkResult reports a best-effort batch: every id is either in Succeeded or Failed.
type BulkResult struct {
	Succeeded []int64
	Failed    map[int64]error
}

// Err is nil when every item succeeded, a *PartialFailureError when some failed
// and a *BulkFailureError when all failed.
func (r BulkResult) Err() error {
	switch {
	case len(r.Failed) == 0:
		return nil
	case len(r.Succeeded) == 0:
		return &BulkFailureError{Failed: r.Failed}
	}
	return &PartialFailureError{Succeeded: r.Succeeded, Failed: r.Failed}
}

// PartialFailureError is a batch where some items committed and some did not.
type PartialFailureError struct {
	Succeeded []int64
	Failed    map[int64]error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("store: %d of %d items failed (ids %v)",
		len(e.Failed), len(e.Failed)+len(e.Succeeded), failedIDs(e.Failed))
}

func (e *PartialFailureError) Unwrap() []error {
	return failedErrs(e.Failed)
}

// BulkFailureError is a batch where no item committed.
type BulkFailureError struct {
	Failed map[int64]error
}

func (e *BulkFailureError) Error() string {
	return fmt.Sprintf("store: all %d items failed", len(e.Failed))
}

func (e *BulkFailureError) Unwrap() []error {
	return failedErrs(e.Failed)
}

func failedIDs(failed map[int64]error) []int64 {
	ids := make([]int64, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func failedErrs(failed map[int64]error) []error {
	ids := failedIDs(failed)
	errs := make([]error, len(ids))
	for i, id := range ids {
		errs[i] = failed[id]
	}
	return errs
}
