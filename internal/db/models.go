package db

import (
	"time"

	"gorm.io/gorm"
)

// IntentType is the deferred guest action recorded in the intent log
type IntentType string

const (
	IntentAddToCart          IntentType = "addToCart"
	IntentUpdateCartItem     IntentType = "updateCartItem"
	IntentRemoveFromCart     IntentType = "removeFromCart"
	IntentClearCart          IntentType = "clearCart"
	IntentAddToWishlist      IntentType = "addToWishlist"
	IntentRemoveFromWishlist IntentType = "removeFromWishlist"
	IntentMoveToCart         IntentType = "moveToCart"
)

// Target is the id an intent acts on: the book for additions, the cart or
// wishlist entry otherwise
func (t IntentType) Target(bookID, itemID int64) int64 {
	switch t {
	case IntentAddToCart, IntentAddToWishlist:
		return bookID
	}
	return itemID
}

// IntentStatus tracks an intent through replay
type IntentStatus string

const (
	IntentPending IntentStatus = "pending"
	IntentApplied IntentStatus = "applied"
	IntentFailed  IntentStatus = "failed"
)

// Session value keys
const (
	KeyRedirectAfterLogin = "redirect_after_login"
	KeyFallbackUser       = "fallback_user"
)

// PendingIntent is a cart or wishlist mutation attempted without a session
type PendingIntent struct {
	ID             uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	IdempotencyKey string       `gorm:"type:varchar(200);not null;index:idx_intents_key" json:"idempotency_key"`
	Type           IntentType   `gorm:"type:varchar(32);not null" json:"type"`
	BookID         int64        `gorm:"not null;default:0;index:idx_intents_book" json:"book_id"`
	ItemID         int64        `gorm:"not null;default:0" json:"item_id,omitempty"`
	Quantity       int          `gorm:"not null;default:1" json:"quantity"`
	BookTitle      string       `gorm:"type:varchar(255)" json:"book_title,omitempty"`
	Status         IntentStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_intents_status" json:"status"`
	Error          string       `gorm:"type:text" json:"error,omitempty"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	AppliedAt      *time.Time   `json:"applied_at,omitempty"`
}

// TableName specifies the table name for PendingIntent model
func (PendingIntent) TableName() string {
	return "pending_intents"
}

// BeforeCreate hook to set defaults
func (p *PendingIntent) BeforeCreate(tx *gorm.DB) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Status == "" {
		p.Status = IntentPending
	}
	if p.Quantity < 1 {
		p.Quantity = 1
	}
	return nil
}

// SessionValue is a small persisted key/value, the client's substitute for browser storage
type SessionValue struct {
	Key       string    `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for SessionValue model
func (SessionValue) TableName() string {
	return "session_values"
}

// BeforeSave hook to update timestamp
func (v *SessionValue) BeforeSave(tx *gorm.DB) error {
	v.UpdatedAt = time.Now()
	return nil
}
