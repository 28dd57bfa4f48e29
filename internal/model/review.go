package model

// ReviewStatus is the moderation state of a review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ReviewResponse is a moderator's public reply.
type ReviewResponse struct {
	AdminName string    `json:"adminName"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"createdAt"`
}

// ReviewBook is the book summary embedded in an admin review.
type ReviewBook struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
}

// ReviewCustomer is the author summary embedded in an admin review.
type ReviewCustomer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Review is a customer rating of a book.
type Review struct {
	ID               int64           `json:"id"`
	BookID           int64           `json:"book_id,omitempty"`
	Book             *ReviewBook     `json:"book,omitempty"`
	Customer         *ReviewCustomer `json:"customer,omitempty"`
	Rating           int             `json:"rating"`
	Title            string          `json:"title,omitempty"`
	Content          string          `json:"content"`
	Status           ReviewStatus    `json:"status"`
	HelpfulCount     int             `json:"helpfulCount,omitempty"`
	VerifiedPurchase bool            `json:"verifiedPurchase,omitempty"`
	Response         *ReviewResponse `json:"response,omitempty"`
	CreatedAt        Timestamp       `json:"createdAt"`
}

// ReviewInput is the customer payload for posting a review.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// ReviewUpdate is the admin moderation payload.
type ReviewUpdate struct {
	Status        ReviewStatus `json:"status,omitempty"`
	AdminResponse string       `json:"admin_response,omitempty"`
	Rating        int          `json:"rating,omitempty"`
	Title         string       `json:"title,omitempty"`
	Content       string       `json:"content,omitempty"`
}
