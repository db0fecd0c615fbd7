package dto

import "time"

// SnapshotFilter narrows the snapshot listing. Zero values do not filter.
type SnapshotFilter struct {
	Subject string
	Camera  string
	After   time.Time
	Before  time.Time
	Limit   int
	Offset  int
}
