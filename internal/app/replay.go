package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"petwatch/internal/dto"

	"github.com/benbjohnson/clock"
)

// maxReplayLine bounds one JSON line, which may carry a base64 frame.
const maxReplayLine = 32 << 20

// ReplayResult summarises a replay run.
type ReplayResult struct {
	Frames        int
	Notifications int
}

// NewReplayClock returns a mock clock set to the current time, so lines logged
// without a timestamp are stamped with today rather than the Unix epoch.
func NewReplayClock() *clock.Mock {
	mock := clock.NewMock()
	mock.Set(time.Now())
	return mock
}

// Replay feeds a JSON-lines detection log through the monitor. Each line is a
// FrameRequest; when it carries a timestamp the mock clock is moved to it so
// persistence and cooldown behave as they did when the log was recorded. The
// first timestamp always sets the clock; later ones only move it forward.
func (a *App) Replay(ctx context.Context, r io.Reader, mock *clock.Mock) (ReplayResult, error) {
	var result ReplayResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)

	line := 0
	anchored := false
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return result, err
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var req dto.FrameRequest
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			return result, fmt.Errorf("failed to parse line %d: %w", line, err)
		}
		frame, detections, err := req.Decode()
		if err != nil {
			return result, fmt.Errorf("line %d: %w", line, err)
		}

		if mock != nil && !req.Timestamp.IsZero() {
			if !anchored {
				mock.Set(req.Timestamp)
				anchored = true
			} else if req.Timestamp.Before(mock.Now()) {
				a.logger.Warning("Line %d goes back in time, keeping clock at %s", line, mock.Now())
			} else {
				mock.Set(req.Timestamp)
			}
		}

		events := a.monitor.HandleFrame(frame, req.Camera, detections)
		result.Frames++
		result.Notifications += len(events)
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read replay log: %w", err)
	}

	return result, nil
}
