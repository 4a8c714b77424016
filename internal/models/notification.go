package models

import "time"

// NotificationLevel classifies a transient notification.
type NotificationLevel string

const (
	LevelError NotificationLevel = "error"
	LevelInfo  NotificationLevel = "info"
)

// Notification is a transient, auto-dismissing message.
type Notification struct {
	ID        string            `json:"id" msgpack:"id"`
	Message   string            `json:"message" msgpack:"message"`
	Level     NotificationLevel `json:"level" msgpack:"level"`
	CreatedAt time.Time         `json:"createdAt" msgpack:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt" msgpack:"expiresAt"`
}
