package store

import (
	"context"

	"github.com/bookstore/storefront/internal/events"
	"github.com/bookstore/storefront/internal/model"
	"github.com/bookstore/storefront/internal/validator"
)

func reviewsLifecycle(st *Snapshot) lifecycle { return &st.Reviews }

// FetchBookReviews loads the approved reviews of a book.
func (s *Store) FetchBookReviews(ctx context.Context, bookID int64) ([]model.Review, error) {
	return fetch(ctx, s, action{name: "fetchReviews", resource: ResourceReviews, failure: "Failed to load reviews"},
		func(st *Snapshot) *Resource[[]model.Review] { return &st.Reviews },
		func(ctx context.Context) ([]model.Review, error) { return s.api.BookReviews(ctx, bookID) },
		func(st *Snapshot, _ []model.Review) { st.ReviewsBookID = bookID },
	)
}

// CreateReview posts a review for a book and reloads its reviews.
func (s *Store) CreateReview(ctx context.Context, bookID int64, in model.ReviewInput) (*model.Review, error) {
	act := action{name: "createReview", resource: ResourceReviews, failure: "Failed to submit review",
		success: "Review submitted for moderation"}
	if err := s.requireUser(ctx, act.name); err != nil {
		return nil, err
	}
	v := validator.New()
	v.Check(in.Rating >= 1 && in.Rating <= 5, "rating", "Rating must be between 1 and 5")
	v.Check(validator.NotBlank(in.Content), "content", "Review content is required")
	if err := v.Err(); err != nil {
		s.metrics.observe(act.name, resultInvalid, 0)
		return nil, err
	}

	var created model.Review
	err := s.mutate(ctx, act, reviewsLifecycle, func(ctx context.Context) error {
		var err error
		created, err = s.api.CreateReview(ctx, bookID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	_, err = s.FetchBookReviews(ctx, bookID)
	return &created, err
}

// MarkReviewHelpful records a helpful or unhelpful vote.
func (s *Store) MarkReviewHelpful(ctx context.Context, reviewID int64, helpful bool) error {
	act := action{name: "voteReview", resource: ResourceReviews, failure: "Failed to record vote", success: "Thanks for your feedback"}
	if err := s.requireUser(ctx, act.name); err != nil {
		return err
	}
	err := s.mutate(ctx, act, reviewsLifecycle, func(ctx context.Context) error {
		return s.api.VoteReview(ctx, reviewID, helpful)
	})
	if err != nil || !helpful {
		return err
	}
	s.update(func(st *Snapshot) {
		for i, r := range st.Reviews.Data {
			if r.ID == reviewID {
				list := cloneSlice(st.Reviews.Data)
				list[i].HelpfulCount++
				st.Reviews.patch(list)
				return
			}
		}
	}, ResourceReviews)
	return nil
}

// requireUser fails fast for actions that need a session but are not queued.
func (s *Store) requireUser(ctx context.Context, action string) error {
	if s.signedIn() {
		return nil
	}
	s.metrics.observe(action, resultAuthRequired, 0)
	s.notify(ctx, events.LevelWarning, action, signInMessage)
	return &ActionError{Action: action, Message: signInMessage, Err: ErrAuthRequired}
}
