package dto

import (
	"time"

	"petwatch/internal/model"
)

// SnapshotInfo is one entry of the snapshot listing.
type SnapshotInfo struct {
	Filename   string                  `json:"filename"`
	Subject    string                  `json:"subject"`
	Camera     string                  `json:"camera,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
	FileSize   int64                   `json:"file_size"`
	URL        string                  `json:"url"`
	Detections []model.DetectionRecord `json:"detections,omitempty"`
}

// SnapshotPage is the response of GET /api/snapshots.
type SnapshotPage struct {
	Snapshots []SnapshotInfo `json:"snapshots"`
	Total     int            `json:"total"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
	// Subjects lists every subject the listing can be filtered by.
	Subjects []string `json:"subjects"`
}
