package dto

// Stats summarises the monitor's session state.
type Stats struct {
	TotalSubjectsSeen int               `json:"total_subjects_seen"`
	CurrentlyDetected []string          `json:"currently_detected"`
	ImagesSaved       int               `json:"images_saved"`
	LastNotifications map[string]string `json:"last_notifications"`
	FramesProcessed   int64             `json:"frames_processed"`
	Platforms         []string          `json:"platforms"`
}
