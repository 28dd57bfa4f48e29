package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bookstore/storefront/internal/db"
	"github.com/bookstore/storefront/internal/events"
	"go.uber.org/zap"
)

// action names a store action, the resource it touches and its user-facing messages.
type action struct {
	name     string
	resource string
	failure  string
	success  string
}

// begin marks the resource loading and clears errors.
func (s *Store) begin(act action, pick func(*Snapshot) lifecycle) {
	s.update(func(st *Snapshot) {
		pick(st).start()
		st.Error = ""
	}, act.resource)
}

// end clears loading and records the failure message when err is set.
func (s *Store) end(act action, pick func(*Snapshot) lifecycle, err error) {
	s.update(func(st *Snapshot) {
		l := pick(st)
		l.finish()
		if err != nil {
			l.fail(act.failure)
			st.Error = act.failure
		}
	}, act.resource)
}

// finish records the outcome of act and turns err into an *ActionError.
func (s *Store) finish(ctx context.Context, act action, start time.Time, err error) error {
	if err == nil {
		s.metrics.observe(act.name, resultSuccess, since(start))
		if act.success != "" {
			s.notify(ctx, events.LevelSuccess, act.name, act.success)
		}
		return nil
	}
	s.metrics.observe(act.name, resultError, since(start))
	s.log.Warn("Store action failed", zap.String("action", act.name), zap.Error(err))
	s.notify(ctx, events.LevelError, act.name, act.failure)
	return &ActionError{Action: act.name, Message: act.failure, Err: err}
}

// mutate runs a write under the lifecycle of the resource pick selects. No retries.
func (s *Store) mutate(ctx context.Context, act action, pick func(*Snapshot) lifecycle, do func(context.Context) error) error {
	start := time.Now()
	s.begin(act, pick)
	err := do(ctx)
	s.end(act, pick, err)
	return s.finish(ctx, act, start, err)
}

// fetch runs a sequenced read. The result is applied with apply (which may also
// update related fields) only when no later read or patch was applied first.
// Superseded responses are counted and dropped; the caller still receives them.
func fetch[T any](ctx context.Context, s *Store, act action, pick func(*Snapshot) *Resource[T],
	load func(context.Context) (T, error), apply func(st *Snapshot, data T)) (T, error) {
	start := time.Now()

	var seq uint64
	s.update(func(st *Snapshot) {
		r := pick(st)
		r.start()
		seq = r.next()
		st.Error = ""
	}, act.resource)

	data, err := load(ctx)

	stale := false
	s.update(func(st *Snapshot) {
		r := pick(st)
		r.finish()
		if err != nil {
			if !r.stale(seq) {
				r.fail(act.failure)
				st.Error = act.failure
			}
			return
		}
		if !r.accept(seq, data) {
			stale = true
			return
		}
		if apply != nil {
			apply(st, data)
		}
	}, act.resource)

	if stale {
		s.metrics.staleResponse(act.resource)
		s.log.Debug("Stale response discarded", zap.String("action", act.name), zap.Uint64("seq", seq))
	}
	return data, s.finish(ctx, act, start, err)
}

type returnPathKey struct{}

// WithReturnPath attaches the path to send the user back to after signing in.
// It is recorded when an action is deferred for lack of a session.
func WithReturnPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, returnPathKey{}, path)
}

func returnPath(ctx context.Context, fallback string) string {
	if p, ok := ctx.Value(returnPathKey{}).(string); ok && p != "" {
		return p
	}
	return fallback
}

const signInMessage = "Please sign in to continue"

// deferIntent queues intent for replay after login and returns ErrAuthRequired.
// cause is the API error when the session expired mid-action.
func (s *Store) deferIntent(ctx context.Context, act action, intent db.PendingIntent, redirect string, cause error) error {
	s.metrics.observe(act.name, resultAuthRequired, 0)

	err := ErrAuthRequired
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrAuthRequired, cause)
	}

	if s.intents != nil {
		stored, created, qerr := s.intents.Enqueue(ctx, &intent)
		if qerr != nil {
			s.log.Error("Failed to queue intent",
				zap.String("action", act.name),
				zap.Int64("book_id", intent.BookID),
				zap.Int64("item_id", intent.ItemID),
				zap.Error(qerr),
			)
			err = fmt.Errorf("%w (intent not saved: %w)", err, qerr)
		} else {
			s.log.Info("Action deferred until sign in",
				zap.String("action", act.name),
				zap.Uint64("intent_id", stored.ID),
				zap.Bool("duplicate", !created),
			)
			if serr := s.intents.SetValue(ctx, db.KeyRedirectAfterLogin, returnPath(ctx, redirect)); serr != nil {
				s.log.Warn("Failed to save redirect path", zap.Error(serr))
			}
			s.refreshPending(ctx)
		}
	}

	s.notify(ctx, events.LevelWarning, act.name, signInMessage)
	return &ActionError{Action: act.name, Message: signInMessage, Err: err}
}

// refreshPending updates the pending-intents gauge.
func (s *Store) refreshPending(ctx context.Context) {
	if s.intents == nil {
		return
	}
	stats, err := s.intents.Stats(ctx)
	if err != nil {
		s.log.Warn("Failed to read intent stats", zap.Error(err))
		return
	}
	s.metrics.setPending(stats.Pending)
}
