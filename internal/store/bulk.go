package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bookstore/storefront/internal/events"
	"github.com/bookstore/storefront/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BulkUpdateOrderStatus moves each order to status, one call at a time.
// Every order is attempted; the ones that committed are patched locally.
func (s *Store) BulkUpdateOrderStatus(ctx context.Context, ids []int64, status model.OrderStatus) (BulkResult, error) {
	act := action{name: "bulkUpdateOrderStatus", resource: ResourceAdminOrders, failure: "Failed to update orders"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return BulkResult{}, err
	}
	if err := validateStatus(status); err != nil {
		s.metrics.observe(act.name, resultInvalid, 0)
		return BulkResult{}, err
	}

	start := time.Now()
	s.begin(act, adminOrdersLifecycle)
	res := BulkResult{Failed: make(map[int64]error)}
	for _, id := range ids {
		echoed, err := s.api.UpdateOrderStatus(ctx, id, status)
		if err != nil {
			res.Failed[id] = err
			s.log.Warn("Bulk order update failed", zap.Int64("order_id", id), zap.Error(err))
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
		s.applyOrderStatus(id, status, echoed)
	}
	s.end(act, adminOrdersLifecycle, res.Err())
	return res, s.finishBulk(ctx, act, start, res, "order", "updated")
}

// BulkDeleteReviews deletes reviews concurrently, bounded by the store's bulk
// concurrency. Every review is attempted; the deleted ones are removed locally.
func (s *Store) BulkDeleteReviews(ctx context.Context, ids []int64) (BulkResult, error) {
	act := action{name: "bulkDeleteReviews", resource: ResourceAdminReviews, failure: "Failed to delete reviews"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return BulkResult{}, err
	}

	start := time.Now()
	s.begin(act, adminReviewsLifecycle)

	var (
		mu  sync.Mutex
		res = BulkResult{Failed: make(map[int64]error)}
	)
	g := new(errgroup.Group)
	g.SetLimit(s.bulk)
	for _, id := range ids {
		g.Go(func() error {
			err := s.api.DeleteReview(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[id] = err
				s.log.Warn("Bulk review delete failed", zap.Int64("review_id", id), zap.Error(err))
				return nil
			}
			res.Succeeded = append(res.Succeeded, id)
			return nil
		})
	}
	_ = g.Wait()

	deleted := make(map[int64]bool, len(res.Succeeded))
	for _, id := range res.Succeeded {
		deleted[id] = true
	}
	// Succeeded follows the request order, not completion order.
	res.Succeeded = res.Succeeded[:0]
	for _, id := range ids {
		if deleted[id] {
			res.Succeeded = append(res.Succeeded, id)
		}
	}
	if len(deleted) > 0 {
		s.removeReviews(deleted)
	}
	s.end(act, adminReviewsLifecycle, res.Err())
	return res, s.finishBulk(ctx, act, start, res, "review", "deleted")
}

// finishBulk records a batch outcome and summarizes it in one notification.
func (s *Store) finishBulk(ctx context.Context, act action, start time.Time, res BulkResult, noun, verb string) error {
	total := len(res.Succeeded) + len(res.Failed)
	err := res.Err()
	switch {
	case err == nil:
		s.metrics.observe(act.name, resultSuccess, since(start))
		if total > 0 {
			s.notify(ctx, events.LevelSuccess, act.name, fmt.Sprintf("%s %s", plural(total, noun), verb))
		}
		return nil
	case len(res.Succeeded) > 0:
		s.metrics.observe(act.name, resultError, since(start))
		s.notify(ctx, events.LevelWarning, act.name,
			fmt.Sprintf("%d of %s failed", len(res.Failed), plural(total, noun)))
	default:
		s.metrics.observe(act.name, resultError, since(start))
		s.notify(ctx, events.LevelError, act.name, act.failure)
	}
	s.log.Warn("Bulk action incomplete",
		zap.String("action", act.name),
		zap.Int("succeeded", len(res.Succeeded)),
		zap.Int("failed", len(res.Failed)),
	)
	return &ActionError{Action: act.name, Message: act.failure, Err: err}
}
