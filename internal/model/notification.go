package model

import "time"

// NotificationEvent is a confirmed, composed notification ready for delivery.
// It is passed by value so the frame pipeline can keep mutating its own state.
type NotificationEvent struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	ImagePath string    `json:"image_path,omitempty"`
	Camera    string    `json:"camera,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Source    Detection `json:"detection"`
}

// HasImage reports whether a snapshot was stored for the event.
func (e NotificationEvent) HasImage() bool {
	return e.ImagePath != ""
}

// Delivery is the outcome of one platform attempt for one event.
type Delivery struct {
	NotificationID string        `json:"notification_id"`
	Platform       string        `json:"platform"`
	Success        bool          `json:"success"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration"`
	AttemptedAt    time.Time     `json:"attempted_at"`
}
