package sqlite

import (
	"fmt"
	"time"

	"petwatch/internal/model"
)

// NotificationRepository implements repository.NotificationRepository for SQLite.
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new SQLite notification repository.
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert records an emitted notification.
func (r *NotificationRepository) Insert(event *model.NotificationEvent) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO notifications (id, subject, message, image_path, camera, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.Subject, event.Message, event.ImagePath, event.Camera, event.Source.Confidence, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// InsertDeliveries records per-platform outcomes in a single transaction.
func (r *NotificationRepository) InsertDeliveries(deliveries []model.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO deliveries (notification_id, platform, success, error, duration_ms, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, d := range deliveries {
		if _, err := stmt.Exec(d.NotificationID, d.Platform, d.Success, d.Error, d.Duration.Milliseconds(), d.AttemptedAt); err != nil {
			return fmt.Errorf("failed to insert delivery: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns the latest notifications, newest first.
func (r *NotificationRepository) Recent(limit int) ([]model.NotificationEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Conn().Query(`
		SELECT id, subject, message, image_path, camera, confidence, created_at
		FROM notifications ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var events []model.NotificationEvent
	for rows.Next() {
		var e model.NotificationEvent
		if err := rows.Scan(&e.ID, &e.Subject, &e.Message, &e.ImagePath, &e.Camera, &e.Source.Confidence, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		e.Source.Label = e.Subject
		events = append(events, e)
	}

	return events, rows.Err()
}

// GetDeliveries returns the delivery outcomes recorded for a notification.
func (r *NotificationRepository) GetDeliveries(notificationID string) ([]model.Delivery, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT notification_id, platform, success, error, duration_ms, attempted_at
		FROM deliveries WHERE notification_id = ? ORDER BY id
	`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []model.Delivery
	for rows.Next() {
		var d model.Delivery
		var durationMs int64
		if err := rows.Scan(&d.NotificationID, &d.Platform, &d.Success, &d.Error, &durationMs, &d.AttemptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.Duration = time.Duration(durationMs) * time.Millisecond
		deliveries = append(deliveries, d)
	}

	return deliveries, rows.Err()
}
