package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a user-facing notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-facing outcome message emitted by the store
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotification stamps a notification with a fresh id and the current time
func NewNotification(level Level, action, message string) Notification {
	return Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Action:    action,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Notifier receives notifications. Implementations must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NopNotifier discards notifications
type NopNotifier struct{}

// Notify implements Notifier
func (NopNotifier) Notify(context.Context, Notification) {}
