package catalog

import (
	"strings"

	"github.com/bookstore/storefront/internal/model"
)

// Review filter statuses. Unanswered matches reviews without a moderator reply.
const (
	ReviewFilterAll        = "all"
	ReviewFilterUnanswered = "unanswered"
)

// ReviewFilter is the admin review list criteria.
type ReviewFilter struct {
	Status string `json:"status" yaml:"status"`
	Search string `json:"search,omitempty" yaml:"search,omitempty"`
}

// Match reports whether review satisfies f.
func (f ReviewFilter) Match(review model.Review) bool {
	switch f.Status {
	case "", ReviewFilterAll:
	case ReviewFilterUnanswered:
		if review.Response != nil {
			return false
		}
	default:
		if string(review.Status) != f.Status {
			return false
		}
	}

	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	fields := []string{review.Title, review.Content}
	if review.Customer != nil {
		fields = append(fields, review.Customer.Name)
	}
	if review.Book != nil {
		fields = append(fields, review.Book.Title)
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// FilterReviews returns the reviews matching f in input order.
func FilterReviews(reviews []model.Review, f ReviewFilter) []model.Review {
	out := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// CountByStatus tallies reviews per moderation status.
func CountByStatus(reviews []model.Review) map[model.ReviewStatus]int {
	counts := make(map[model.ReviewStatus]int, 3)
	for _, r := range reviews {
		counts[r.Status]++
	}
	return counts
}
