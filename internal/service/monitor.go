package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"petwatch/internal/dto"
	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/repository"
	"petwatch/internal/service/composer"
	"petwatch/internal/service/cooldown"
	"petwatch/internal/service/presence"
	"petwatch/internal/service/storage"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// liveFrameWait bounds how long a frame waits for the live view hub.
const liveFrameWait = 100 * time.Millisecond

// Submitter accepts composed notifications for delivery.
type Submitter interface {
	Submit(event model.NotificationEvent) bool
	Platforms() []string
}

// FrameBroadcaster receives raw frames for live viewers.
type FrameBroadcaster interface {
	Broadcast(ctx context.Context, message []byte) error
}

// MonitorDeps are the collaborators of a Monitor. Store, Notifications and
// Viewers may be nil; Clock defaults to the wall clock.
type MonitorDeps struct {
	Tracker       *presence.Tracker
	Gate          *cooldown.Gate
	Composer      *composer.Composer
	Store         *storage.SnapshotStore
	Dispatcher    Submitter
	Notifications repository.NotificationRepository
	Viewers       FrameBroadcaster
	Clock         clock.Clock
	SaveImages    bool
}

// Monitor turns per-frame detections into notifications.
type Monitor struct {
	mu sync.Mutex

	tracker       *presence.Tracker
	gate          *cooldown.Gate
	composer      *composer.Composer
	store         *storage.SnapshotStore
	dispatcher    Submitter
	notifications repository.NotificationRepository
	viewers       FrameBroadcaster
	clock         clock.Clock
	saveImages    bool
	logger        *logger.Logger

	framesProcessed int64
}

func NewMonitor(deps MonitorDeps, logger *logger.Logger) *Monitor {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	m := &Monitor{
		tracker:       deps.Tracker,
		gate:          deps.Gate,
		composer:      deps.Composer,
		store:         deps.Store,
		dispatcher:    deps.Dispatcher,
		notifications: deps.Notifications,
		viewers:       deps.Viewers,
		clock:         deps.Clock,
		saveImages:    deps.SaveImages && deps.Store != nil,
		logger:        logger.With("monitor"),
	}

	m.logger.Info("🎬 Monitor started - persistence %d frame(s), cooldown %s", m.tracker.Threshold(), m.gate.Window())
	return m
}

// HandleFrame runs one frame through presence tracking, cooldown, composition,
// snapshot storage and dispatch. It returns the notifications emitted for the frame.
// Calls are serialized.
func (m *Monitor) HandleFrame(frame []byte, camera string, detections []model.Detection) []model.NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.framesProcessed++
	m.sendToViewers(frame, camera)

	best := strongest(detections)
	confirmed := m.tracker.Observe(lo.MapValues(best, func(model.Detection, string) struct{} { return struct{}{} }))

	var events []model.NotificationEvent
	for _, subject := range confirmed {
		if !m.gate.Allow(subject, now) {
			m.logger.Debug("%s confirmed but still cooling down", subject)
			continue
		}

		source := best[subject]
		event := model.NotificationEvent{
			ID:        uuid.NewString(),
			Subject:   subject,
			Message:   m.composer.Compose(subject, source, now),
			Camera:    camera,
			CreatedAt: now,
			Source:    source,
		}

		if m.saveImages && len(frame) > 0 {
			path, err := m.store.Save(frame, subject, detections, camera, now)
			if err != nil {
				m.logger.Warning("Failed to save snapshot for %s: %v", subject, err)
			} else {
				event.ImagePath = path
			}
		}

		m.gate.Record(subject, now)
		m.logger.Info("📣 %s", event.Message)

		if m.notifications != nil {
			if err := m.notifications.Insert(&event); err != nil {
				m.logger.Error("Failed to record notification %s: %v", event.ID, err)
			}
		}
		m.dispatcher.Submit(event)
		events = append(events, event)
	}

	return events
}

// strongest keeps the highest-confidence detection of every non-empty subject.
func strongest(detections []model.Detection) map[string]model.Detection {
	best := make(map[string]model.Detection, len(detections))
	for _, d := range detections {
		subject := d.Subject()
		if subject == "" {
			continue
		}
		if cur, ok := best[subject]; !ok || d.Confidence > cur.Confidence {
			best[subject] = d
		}
	}
	return best
}

func (m *Monitor) sendToViewers(frame []byte, camera string) {
	if m.viewers == nil || len(frame) == 0 {
		return
	}

	msg, err := json.Marshal(map[string]string{
		"type":   "frame",
		"camera": camera,
		"image":  base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), liveFrameWait)
	defer cancel()
	if err := m.viewers.Broadcast(ctx, msg); err != nil {
		m.logger.Debug("Live frame from %s not delivered: %v", camera, err)
	}
}

// Stats reports the session state.
func (m *Monitor) Stats() dto.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	notified := m.gate.Snapshot()
	last := make(map[string]string, len(notified))
	for subject, at := range notified {
		last[subject] = m.composer.FormatTime(at)
	}

	seen := lo.Uniq(append(m.tracker.Seen(), lo.Keys(notified)...))
	sort.Strings(seen)

	stats := dto.Stats{
		TotalSubjectsSeen: len(seen),
		CurrentlyDetected: m.tracker.PresentSubjects(),
		LastNotifications: last,
		FramesProcessed:   m.framesProcessed,
		Platforms:         m.dispatcher.Platforms(),
	}
	if m.saveImages {
		stats.ImagesSaved = m.store.Count()
	}
	return stats
}
