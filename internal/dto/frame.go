package dto

import (
	"encoding/base64"
	"fmt"
	"image"
	"time"

	"petwatch/internal/model"
)

// DetectionPayload is one detection as sent by the detector.
type DetectionPayload struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
	Kind       string  `json:"kind,omitempty"`
}

// ToModel converts the payload, normalising the box so Min is the top-left corner.
func (p DetectionPayload) ToModel() model.Detection {
	return model.Detection{
		Label:      p.Label,
		Confidence: p.Confidence,
		Region:     image.Rect(p.Box[0], p.Box[1], p.Box[2], p.Box[3]),
		Kind:       model.ParseKind(p.Kind),
	}
}

// FrameRequest is the body of POST /api/frames and one line of a replay log.
type FrameRequest struct {
	Camera     string             `json:"camera"`
	Frame      string             `json:"frame,omitempty"`
	Detections []DetectionPayload `json:"detections"`
	// Timestamp is only used by replay.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Decode returns the raw frame bytes and the detections.
func (r *FrameRequest) Decode() ([]byte, []model.Detection, error) {
	var frame []byte
	if r.Frame != "" {
		var err error
		frame, err = base64.StdEncoding.DecodeString(r.Frame)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode frame: %w", err)
		}
	}

	detections := make([]model.Detection, 0, len(r.Detections))
	for i, d := range r.Detections {
		if d.Confidence < 0 || d.Confidence > 1 {
			return nil, nil, fmt.Errorf("detection %d: confidence %v out of range", i, d.Confidence)
		}
		detections = append(detections, d.ToModel())
	}
	return frame, detections, nil
}

// FrameResponse lists the notifications emitted for one frame.
type FrameResponse struct {
	Events []model.NotificationEvent `json:"events"`
}
