package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bookstore/storefront/internal/api"
	"github.com/bookstore/storefront/internal/checkout"
	"github.com/bookstore/storefront/internal/db"
	"github.com/bookstore/storefront/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errNoUser = errors.New("store: login response carried no user")

// SessionResult is the outcome of signing in: the user and the replay of the
// actions queued while they were a guest.
type SessionResult struct {
	User   *model.User   `json:"user"`
	Replay ReplaySummary `json:"replay"`
}

// call runs a request that has no collection of its own to mark loading.
func (s *Store) call(ctx context.Context, act action, do func(context.Context) error) error {
	start := time.Now()
	s.update(func(st *Snapshot) { st.Error = "" }, act.resource)
	err := do(ctx)
	if err != nil {
		s.update(func(st *Snapshot) { st.Error = act.failure }, act.resource)
	}
	return s.finish(ctx, act, start, err)
}

// Login validates creds, opens a session, loads the user's cart and wishlist
// and replays pending intents.
func (s *Store) Login(ctx context.Context, creds model.Credentials) (*SessionResult, error) {
	act := action{name: "login", resource: ResourceUser, failure: "Login failed", success: "Signed in"}
	if err := checkout.ValidateCredentials(creds); err != nil {
		s.metrics.observe(act.name, resultInvalid, 0)
		return nil, err
	}

	var user *model.User
	err := s.call(ctx, act, func(ctx context.Context) error {
		u, err := s.api.Login(ctx, creds)
		if err == nil && u == nil {
			err = errNoUser
		}
		user = u
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, user), nil
}

// Register validates reg and creates the account. A copy of the new user is
// kept in the session store. When the server opens a session right away the
// result carries the signed-in user, otherwise User is nil.
func (s *Store) Register(ctx context.Context, reg model.Registration) (*SessionResult, error) {
	act := action{name: "register", resource: ResourceUser, failure: "Registration failed", success: "Account created"}
	if err := checkout.ValidateRegistration(reg); err != nil {
		s.metrics.observe(act.name, resultInvalid, 0)
		return nil, err
	}

	var user *model.User
	err := s.call(ctx, act, func(ctx context.Context) error {
		u, err := s.api.Register(ctx, reg)
		user = u
		return err
	})
	if err != nil {
		return nil, err
	}

	fallback := user
	if fallback == nil {
		fallback = &model.User{
			Email:     reg.Email,
			Username:  reg.Username,
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
			Phone:     reg.Phone,
			Role:      model.RoleCustomer,
		}
	}
	s.saveFallbackUser(ctx, fallback)

	if user == nil {
		return &SessionResult{}, nil
	}
	return s.signIn(ctx, user), nil
}

// Logout closes the session and drops every user-scoped collection.
// On failure the state is left as it was.
func (s *Store) Logout(ctx context.Context) error {
	act := action{name: "logout", resource: ResourceUser, failure: "Logout failed", success: "Signed out"}
	if err := s.call(ctx, act, s.api.Logout); err != nil {
		return err
	}
	s.clearSession()
	if s.intents != nil {
		if err := s.intents.DeleteValue(ctx, db.KeyFallbackUser); err != nil {
			s.log.Warn("Failed to clear fallback user", zap.Error(err))
		}
	}
	return nil
}

// RestoreSession asks the API who owns the current session. A 401 is the
// normal guest outcome and returns a nil result without error.
func (s *Store) RestoreSession(ctx context.Context) (*SessionResult, error) {
	start := time.Now()
	user, err := s.api.CurrentUser(ctx)
	switch {
	case api.IsUnauthorized(err):
		s.metrics.observe("restoreSession", resultSuccess, since(start))
		s.log.Debug("No active session")
		s.clearSession()
		return nil, nil
	case err != nil:
		s.metrics.observe("restoreSession", resultError, since(start))
		s.log.Warn("Failed to restore session", zap.Error(err))
		return nil, &ActionError{Action: "restoreSession", Message: "Failed to restore session", Err: err}
	case user == nil:
		s.metrics.observe("restoreSession", resultSuccess, since(start))
		return nil, nil
	}
	s.metrics.observe("restoreSession", resultSuccess, since(start))
	return s.signIn(ctx, user), nil
}

// FallbackUser returns the user copy saved at registration, if any.
func (s *Store) FallbackUser(ctx context.Context) (*model.User, error) {
	if s.intents == nil {
		return nil, nil
	}
	raw, ok, err := s.intents.GetValue(ctx, db.KeyFallbackUser)
	if err != nil || !ok {
		return nil, err
	}
	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("store: decode fallback user: %w", err)
	}
	return &user, nil
}

// Bootstrap loads the public catalog concurrently, then restores the session.
// Individual catalog failures are logged and do not stop the others.
func (s *Store) Bootstrap(ctx context.Context) (*SessionResult, error) {
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.RefreshBooks(ctx)
		s.logSettled("books", err)
		return nil
	})
	g.Go(func() error {
		_, err := s.FetchCategories(ctx)
		s.logSettled("categories", err)
		return nil
	})
	g.Go(func() error {
		_, err := s.FetchFeaturedBooks(ctx)
		s.logSettled("featured", err)
		return nil
	})
	_ = g.Wait()

	res, err := s.RestoreSession(ctx)
	if err != nil || res == nil {
		return res, err
	}
	if _, err := s.FetchOrders(ctx, nil); err != nil {
		s.logSettled("orders", err)
	}
	return res, nil
}

// signIn installs user, reloads the user-scoped collections and replays intents.
func (s *Store) signIn(ctx context.Context, user *model.User) *SessionResult {
	s.update(func(st *Snapshot) { st.User = user }, ResourceUser)
	s.log.Info("Session opened", zap.Int64("user_id", user.ID), zap.String("role", user.Role))

	s.loadUserCollections(ctx)

	replay, err := s.ReplayIntents(ctx)
	if err != nil {
		s.log.Warn("Intent replay stopped", zap.Error(err))
	}
	return &SessionResult{User: s.User(), Replay: replay}
}

// loadUserCollections fetches cart and wishlist concurrently; failures are logged.
func (s *Store) loadUserCollections(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.FetchCart(ctx)
		s.logSettled("cart", err)
		return nil
	})
	g.Go(func() error {
		_, err := s.FetchWishlist(ctx)
		s.logSettled("wishlist", err)
		return nil
	})
	_ = g.Wait()
}

func (s *Store) logSettled(resource string, err error) {
	if err != nil {
		s.log.Warn("Initial load failed", zap.String("resource", resource), zap.Error(err))
	}
}

// clearSession resets the state of a signed-in user back to guest.
func (s *Store) clearSession() {
	s.update(func(st *Snapshot) {
		fresh := initialState()
		st.User = nil
		st.Cart.patch(fresh.Cart.Data)
		st.Wishlist.patch(fresh.Wishlist.Data)
		st.Orders.patch(fresh.Orders.Data)
		st.Order.patch(nil)
		st.Dashboard.patch(nil)
		resetAdminList(&st.AdminUsers)
		resetAdminList(&st.AdminOrders)
		resetAdminList(&st.AdminReviews)
		st.ReviewFilter = fresh.ReviewFilter
	}, ResourceUser, ResourceCart, ResourceWishlist, ResourceOrders, ResourceOrder,
		ResourceDashboard, ResourceAdminUsers, ResourceAdminOrders, ResourceAdminReviews)
}

func (s *Store) saveFallbackUser(ctx context.Context, user *model.User) {
	if s.intents == nil {
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		s.log.Warn("Failed to encode fallback user", zap.Error(err))
		return
	}
	if err := s.intents.SetValue(ctx, db.KeyFallbackUser, string(raw)); err != nil {
		s.log.Warn("Failed to save fallback user", zap.Error(err))
	}
}

func resetAdminList[T any](l *AdminList[T]) {
	l.Items.patch([]T{})
	l.Pagination = model.Pagination{}
	l.Query = model.DefaultAdminQuery()
}
