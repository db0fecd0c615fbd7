package repository

import (
	"petwatch/internal/dto"
	"petwatch/internal/model"
)

// SnapshotRepository defines the interface for snapshot index operations.
type SnapshotRepository interface {
	// Create operations
	Insert(s *model.Snapshot) (int64, error)

	// Read operations
	GetByFilename(filename string) (*model.Snapshot, error)
	GetAll(filter *dto.SnapshotFilter) ([]model.Snapshot, error)
	GetTotalCount(filter *dto.SnapshotFilter) (int, error)
	Exists(filename string) (bool, error)

	// Delete operations
	DeleteByFilename(filename string) error
}

// DetectionRepository defines the interface for detections drawn on snapshots.
type DetectionRepository interface {
	InsertBatch(detections []model.DetectionRecord) error
	GetBySnapshotID(snapshotID int64) ([]model.DetectionRecord, error)
	GetAllLabels() ([]string, error)
	DeleteBySnapshotID(snapshotID int64) error
}

// NotificationRepository records emitted notifications and their delivery outcomes.
type NotificationRepository interface {
	Insert(event *model.NotificationEvent) error
	InsertDeliveries(deliveries []model.Delivery) error
	Recent(limit int) ([]model.NotificationEvent, error)
	GetDeliveries(notificationID string) ([]model.Delivery, error)
}
