package service

import "context"

// Notification is a single push message to a device token.
type Notification struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// NotificationService sends push alerts for security-sensitive events, such
// as a flow being blocked or a credential being rotated on a new device.
type NotificationService interface {
	// SendSingleNotification delivers one push message.
	SendSingleNotification(ctx context.Context, notification *Notification) error
}
