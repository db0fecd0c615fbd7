package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"petwatch/internal/config"
	"petwatch/internal/dto"
	"petwatch/internal/logger"
	"petwatch/internal/model"
)

// maxFrameBody bounds a single ingest request.
const maxFrameBody = 16 << 20

// FrameProcessor runs a frame's detections through the notification pipeline.
type FrameProcessor interface {
	HandleFrame(frame []byte, camera string, detections []model.Detection) []model.NotificationEvent
}

// FramesHandler handles POST /api/frames from the detector and answers with the
// notifications emitted for the frame.
func FramesHandler(processor FrameProcessor, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !validIngestToken(r, cfg.IngestToken) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req dto.FrameRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBody)).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		frame, detections, err := req.Decode()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		camera := req.Camera
		if camera == "" {
			camera = "default"
		}

		events := processor.HandleFrame(frame, camera, detections)
		if events == nil {
			events = []model.NotificationEvent{}
		}

		writeJSON(w, logger, http.StatusOK, dto.FrameResponse{Events: events})
	}
}

// validIngestToken accepts the token as a bearer token or in X-Ingest-Token.
// An empty expected token disables the check.
func validIngestToken(r *http.Request, expected string) bool {
	if expected == "" {
		return true
	}

	got := r.Header.Get("X-Ingest-Token")
	if got == "" {
		got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
