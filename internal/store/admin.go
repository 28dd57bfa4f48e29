package store

import (
	"context"
	"fmt"

	"github.com/bookstore/storefront/internal/api"
	"github.com/bookstore/storefront/internal/catalog"
	"github.com/bookstore/storefront/internal/model"
	"github.com/bookstore/storefront/internal/validator"
	"go.uber.org/zap"
)

func adminUsersLifecycle(st *Snapshot) lifecycle   { return &st.AdminUsers.Items }
func adminOrdersLifecycle(st *Snapshot) lifecycle  { return &st.AdminOrders.Items }
func adminReviewsLifecycle(st *Snapshot) lifecycle { return &st.AdminReviews.Items }

// FetchDashboardStats loads the admin dashboard.
func (s *Store) FetchDashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	act := action{name: "fetchDashboardStats", resource: ResourceDashboard, failure: "Failed to load dashboard"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return nil, err
	}
	return fetch(ctx, s, act,
		func(st *Snapshot) *Resource[*model.DashboardStats] { return &st.Dashboard },
		func(ctx context.Context) (*model.DashboardStats, error) {
			stats, err := s.api.DashboardStats(ctx)
			if err != nil {
				return nil, err
			}
			return &stats, nil
		},
		nil,
	)
}

// FetchAdminUsers applies patch to the stored user criteria and loads that page.
func (s *Store) FetchAdminUsers(ctx context.Context, patch model.AdminQueryPatch) ([]model.AdminUser, error) {
	act := action{name: "fetchAdminUsers", resource: ResourceAdminUsers, failure: "Failed to load users"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	merged := s.st.AdminUsers.Query.Apply(patch)
	s.mu.RUnlock()

	var pagination model.Pagination
	return fetch(ctx, s, act,
		func(st *Snapshot) *Resource[[]model.AdminUser] { return &st.AdminUsers.Items },
		func(ctx context.Context) ([]model.AdminUser, error) {
			page, err := s.api.AdminUsers(ctx, merged)
			pagination = page.Pagination
			return page.Users, err
		},
		func(st *Snapshot, _ []model.AdminUser) {
			st.AdminUsers.Pagination = pagination
			st.AdminUsers.Query = merged
		},
	)
}

// FetchAdminOrders applies patch to the stored order criteria and loads that page.
func (s *Store) FetchAdminOrders(ctx context.Context, patch model.AdminQueryPatch) ([]model.Order, error) {
	act := action{name: "fetchAdminOrders", resource: ResourceAdminOrders, failure: "Failed to load orders"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	merged := s.st.AdminOrders.Query.Apply(patch)
	s.mu.RUnlock()

	var pagination model.Pagination
	return fetch(ctx, s, act,
		func(st *Snapshot) *Resource[[]model.Order] { return &st.AdminOrders.Items },
		func(ctx context.Context) ([]model.Order, error) {
			page, err := s.api.AdminOrders(ctx, merged)
			pagination = page.Pagination
			return page.Orders, err
		},
		func(st *Snapshot, _ []model.Order) {
			st.AdminOrders.Pagination = pagination
			st.AdminOrders.Query = merged
		},
	)
}

// FetchAdminReviews applies patch to the stored review criteria and loads that page.
func (s *Store) FetchAdminReviews(ctx context.Context, patch model.AdminQueryPatch) ([]model.Review, error) {
	act := action{name: "fetchAdminReviews", resource: ResourceAdminReviews, failure: "Failed to load reviews"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	merged := s.st.AdminReviews.Query.Apply(patch)
	s.mu.RUnlock()

	var pagination model.Pagination
	return fetch(ctx, s, act,
		func(st *Snapshot) *Resource[[]model.Review] { return &st.AdminReviews.Items },
		func(ctx context.Context) ([]model.Review, error) {
			page, err := s.api.AdminReviews(ctx, merged)
			pagination = page.Pagination
			return page.Reviews, err
		},
		func(st *Snapshot, _ []model.Review) {
			st.AdminReviews.Pagination = pagination
			st.AdminReviews.Query = merged
		},
	)
}

// UpdateAdminUser changes a user's role or active flag and patches the list.
func (s *Store) UpdateAdminUser(ctx context.Context, userID int64, upd model.AdminUserUpdate) error {
	act := action{name: "updateUser", resource: ResourceAdminUsers, failure: "Failed to update user", success: "User updated"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return err
	}
	err := s.mutate(ctx, act, adminUsersLifecycle, func(ctx context.Context) error {
		return s.api.UpdateAdminUser(ctx, userID, upd)
	})
	if err != nil {
		return err
	}
	s.update(func(st *Snapshot) {
		for i, u := range st.AdminUsers.Items.Data {
			if u.ID != userID {
				continue
			}
			list := cloneSlice(st.AdminUsers.Items.Data)
			if upd.Role != "" {
				list[i].Role = upd.Role
			}
			if upd.IsActive != nil {
				list[i].IsActive = *upd.IsActive
			}
			st.AdminUsers.Items.patch(list)
			return
		}
	}, ResourceAdminUsers)
	return nil
}

// UpdateOrderStatus moves an order to status and patches every local copy.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	act := action{name: "updateOrderStatus", resource: ResourceAdminOrders, failure: "Failed to update order status",
		success: "Order status updated"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		s.metrics.observe(act.name, resultInvalid, 0)
		return err
	}

	var echoed *model.Order
	err := s.mutate(ctx, act, adminOrdersLifecycle, func(ctx context.Context) error {
		var err error
		echoed, err = s.api.UpdateOrderStatus(ctx, orderID, status)
		return err
	})
	if err != nil {
		return err
	}
	s.applyOrderStatus(orderID, status, echoed)
	return nil
}

func (s *Store) applyOrderStatus(orderID int64, status model.OrderStatus, echoed *model.Order) {
	upd := model.Order{ID: orderID, Status: status}
	if echoed != nil && echoed.ID == orderID {
		upd = *echoed
		if upd.Status == "" {
			upd.Status = status
		}
	}
	s.update(func(st *Snapshot) { patchOrder(st, upd) }, ResourceAdminOrders, ResourceOrders, ResourceOrder)
}

func validateStatus(status model.OrderStatus) error {
	v := validator.New()
	v.Check(status.Valid(), "status", fmt.Sprintf("Unknown order status %q", status))
	return v.Err()
}

// ApproveReview publishes a pending review.
func (s *Store) ApproveReview(ctx context.Context, reviewID int64) error {
	return s.moderate(ctx, action{name: "approveReview", resource: ResourceAdminReviews,
		failure: "Failed to approve review", success: "Review approved"},
		reviewID, model.ReviewUpdate{Status: model.ReviewApproved})
}

// RejectReview hides a review. reason is sent as the moderator's note.
func (s *Store) RejectReview(ctx context.Context, reviewID int64, reason string) error {
	return s.moderate(ctx, action{name: "rejectReview", resource: ResourceAdminReviews,
		failure: "Failed to reject review", success: "Review rejected"},
		reviewID, model.ReviewUpdate{Status: model.ReviewRejected, AdminResponse: reason})
}

// UpdateReview edits a review's moderation fields.
func (s *Store) UpdateReview(ctx context.Context, reviewID int64, upd model.ReviewUpdate) error {
	return s.moderate(ctx, action{name: "updateReview", resource: ResourceAdminReviews,
		failure: "Failed to update review", success: "Review updated"},
		reviewID, upd)
}

func (s *Store) moderate(ctx context.Context, act action, reviewID int64, upd model.ReviewUpdate) error {
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return err
	}
	var res api.ReviewModeration
	err := s.mutate(ctx, act, adminReviewsLifecycle, func(ctx context.Context) error {
		var err error
		res, err = s.api.UpdateReview(ctx, reviewID, upd)
		return err
	})
	if err != nil {
		return err
	}
	if res.Status != "" {
		upd.Status = res.Status
	}
	s.patchReview(reviewID, func(r *model.Review) {
		if upd.Status != "" {
			r.Status = upd.Status
		}
		if upd.Rating != 0 {
			r.Rating = upd.Rating
		}
		if upd.Title != "" {
			r.Title = upd.Title
		}
		if upd.Content != "" {
			r.Content = upd.Content
		}
	})
	return nil
}

// RespondToReview attaches a public reply to a review.
func (s *Store) RespondToReview(ctx context.Context, reviewID int64, content string) error {
	act := action{name: "respondToReview", resource: ResourceAdminReviews, failure: "Failed to post response",
		success: "Response posted"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return err
	}
	v := validator.New()
	v.Check(validator.NotBlank(content), "content", "Response is required")
	if err := v.Err(); err != nil {
		s.metrics.observe(act.name, resultInvalid, 0)
		return err
	}

	var resp model.ReviewResponse
	err := s.mutate(ctx, act, adminReviewsLifecycle, func(ctx context.Context) error {
		var err error
		resp, err = s.api.RespondToReview(ctx, reviewID, content)
		return err
	})
	if err != nil {
		return err
	}
	if resp.Content == "" {
		resp.Content = content
	}
	if resp.AdminName == "" {
		resp.AdminName = s.User().FullName()
	}
	s.patchReview(reviewID, func(r *model.Review) {
		reply := resp
		r.Response = &reply
	})
	return nil
}

// DeleteReview removes a review and drops it from the local lists.
func (s *Store) DeleteReview(ctx context.Context, reviewID int64) error {
	act := action{name: "deleteReview", resource: ResourceAdminReviews, failure: "Failed to delete review", success: "Review deleted"}
	if err := s.requireAdmin(ctx, act.name); err != nil {
		return err
	}
	err := s.mutate(ctx, act, adminReviewsLifecycle, func(ctx context.Context) error {
		return s.api.DeleteReview(ctx, reviewID)
	})
	if err != nil {
		return err
	}
	s.removeReviews(map[int64]bool{reviewID: true})
	return nil
}

// patchReview applies fn to the review in the admin list and the book reviews.
func (s *Store) patchReview(reviewID int64, fn func(*model.Review)) {
	replace := func(r *Resource[[]model.Review]) {
		for i, rev := range r.Data {
			if rev.ID == reviewID {
				list := cloneSlice(r.Data)
				fn(&list[i])
				r.patch(list)
				return
			}
		}
	}
	s.update(func(st *Snapshot) {
		replace(&st.AdminReviews.Items)
		replace(&st.Reviews)
	}, ResourceAdminReviews, ResourceReviews)
}

func (s *Store) removeReviews(ids map[int64]bool) {
	drop := func(r *Resource[[]model.Review]) int {
		kept := make([]model.Review, 0, len(r.Data))
		for _, rev := range r.Data {
			if !ids[rev.ID] {
				kept = append(kept, rev)
			}
		}
		removed := len(r.Data) - len(kept)
		if removed > 0 {
			r.patch(kept)
		}
		return removed
	}
	s.update(func(st *Snapshot) {
		removed := drop(&st.AdminReviews.Items)
		drop(&st.Reviews)
		st.AdminReviews.Pagination.Total = max(st.AdminReviews.Pagination.Total-removed, 0)
	}, ResourceAdminReviews, ResourceReviews)
	s.log.Debug("Reviews removed locally", zap.Int("count", len(ids)))
}

// ReviewFilter returns the admin review list criteria.
func (s *Store) ReviewFilter() catalog.ReviewFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ReviewFilter
}

// SetReviewFilter replaces the admin review list criteria.
func (s *Store) SetReviewFilter(f catalog.ReviewFilter) {
	if f.Status == "" {
		f.Status = catalog.ReviewFilterAll
	}
	s.update(func(st *Snapshot) { st.ReviewFilter = f }, ResourceAdminReviews)
}

// FilteredAdminReviews returns the loaded admin reviews matching the review filter.
func (s *Store) FilteredAdminReviews() []model.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.FilterReviews(s.st.AdminReviews.Items.Data, s.st.ReviewFilter)
}
