package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/service/composer"
	"petwatch/internal/service/cooldown"
	"petwatch/internal/service/presence"
	"petwatch/internal/service/storage"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	events []model.NotificationEvent
}

func (f *fakeDispatcher) Submit(event model.NotificationEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return true
}

func (f *fakeDispatcher) Platforms() []string { return []string{"Console"} }

func (f *fakeDispatcher) submitted() []model.NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.NotificationEvent(nil), f.events...)
}

type fixture struct {
	monitor    *Monitor
	clock      *clock.Mock
	dispatcher *fakeDispatcher
	dir        string
}

func newFixture(t *testing.T, persistence int, cooldownWindow time.Duration, saveImages bool) *fixture {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC))
	dir := filepath.Join(t.TempDir(), "snapshots")
	log := logger.NewNop()
	disp := &fakeDispatcher{}

	m := NewMonitor(MonitorDeps{
		Tracker:    presence.NewTracker(persistence),
		Gate:       cooldown.NewGate(cooldownWindow),
		Composer:   composer.New(nil).WithLocation(time.UTC),
		Store:      storage.NewSnapshotStore(dir, 10, nil, log, nil, nil),
		Dispatcher: disp,
		Clock:      mock,
		SaveImages: saveImages,
	}, log)

	return &fixture{monitor: m, clock: mock, dispatcher: disp, dir: dir}
}

// frames feeds n frames one second apart and returns every emitted event.
func (f *fixture) frames(n int, detections ...model.Detection) []model.NotificationEvent {
	var events []model.NotificationEvent
	for i := 0; i < n; i++ {
		events = append(events, f.monitor.HandleFrame([]byte("jpeg"), "garden", detections)...)
		f.clock.Add(time.Second)
	}
	return events
}

var miso = model.Detection{Label: "Miso", Confidence: 0.9, Kind: model.KindPet}

func TestMonitor_MisoRoundTrip(t *testing.T) {
	f := newFixture(t, 5, 300*time.Second, false)

	assert.Empty(t, f.frames(4, miso))
	events := f.frames(1, miso)
	require.Len(t, events, 1)
	assert.Equal(t, "miso", events[0].Subject)
	assert.Equal(t, "🐱 Miso detected! (90% confident) at 02:30 PM", events[0].Message)
	assert.Equal(t, 0.9, events[0].Source.Confidence)

	assert.Empty(t, f.frames(3))
	assert.Equal(t, 0, f.monitor.tracker.Streak("miso"))
	assert.False(t, f.monitor.tracker.Present("miso"))

	assert.Empty(t, f.frames(5, miso), "cooldown still active")
	assert.True(t, f.monitor.tracker.Present("miso"))

	f.clock.Add(300 * time.Second)
	assert.Empty(t, f.frames(1), "absence breaks the presence")
	assert.Empty(t, f.frames(4, miso))
	require.Len(t, f.frames(1, miso), 1)

	assert.Len(t, f.dispatcher.submitted(), 2)
}

func TestMonitor_ContinuousPresenceDoesNotRenotify(t *testing.T) {
	f := newFixture(t, 2, time.Minute, false)

	require.Len(t, f.frames(2, miso), 1)
	f.clock.Add(2 * time.Minute)
	assert.Empty(t, f.frames(10, miso))
}

func TestMonitor_PicksStrongestDetectionAndIgnoresEmptyLabels(t *testing.T) {
	f := newFixture(t, 1, time.Minute, false)

	events := f.frames(1,
		model.Detection{Label: "person", Confidence: 0.55},
		model.Detection{Label: "  ", Confidence: 0.99},
		model.Detection{Label: "Person", Confidence: 0.81},
	)

	require.Len(t, events, 1)
	assert.Equal(t, "person", events[0].Subject)
	assert.Equal(t, 0.81, events[0].Source.Confidence)
	assert.Equal(t, []string{"person"}, f.monitor.tracker.Seen())
}

func TestMonitor_MultipleSubjectsInOneFrame(t *testing.T) {
	f := newFixture(t, 1, time.Minute, false)

	events := f.frames(1, miso, model.Detection{Label: "ozzy", Confidence: 0.7})

	require.Len(t, events, 2)
	assert.Equal(t, "miso", events[0].Subject)
	assert.Equal(t, "ozzy", events[1].Subject)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestMonitor_SavesSnapshotWithEvent(t *testing.T) {
	f := newFixture(t, 1, time.Minute, true)

	events := f.frames(1, miso)

	require.Len(t, events, 1)
	assert.Equal(t, filepath.Join(f.dir, "miso_20250615_143000.jpg"), events[0].ImagePath)
	data, err := os.ReadFile(events[0].ImagePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
	assert.Equal(t, 1, f.monitor.Stats().ImagesSaved)
}

func TestMonitor_EmptyFrameStillNotifies(t *testing.T) {
	f := newFixture(t, 1, time.Minute, true)

	events := f.monitor.HandleFrame(nil, "garden", []model.Detection{miso})

	require.Len(t, events, 1)
	assert.False(t, events[0].HasImage())
}

func TestMonitor_StorageFailureStillNotifies(t *testing.T) {
	f := newFixture(t, 1, time.Minute, true)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.dir), 0755))
	require.NoError(t, os.WriteFile(f.dir, []byte("not a dir"), 0644))

	events := f.frames(1, miso)

	require.Len(t, events, 1)
	assert.Empty(t, events[0].ImagePath)
	_, ok := f.monitor.gate.LastNotified("miso")
	assert.True(t, ok)
}

func TestMonitor_EvictedSnapshotNotifiesWithoutImage(t *testing.T) {
	f := newFixture(t, 1, time.Minute, true)
	require.NoError(t, os.MkdirAll(f.dir, 0755))
	newer := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		path := filepath.Join(f.dir, fmt.Sprintf("ozzy_20260101_09%02d00.jpg", i))
		require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0644))
		require.NoError(t, os.Chtimes(path, newer, newer))
	}

	events := f.frames(1, miso)

	require.Len(t, events, 1)
	assert.False(t, events[0].HasImage())
	require.Len(t, f.dispatcher.submitted(), 1)
	assert.Empty(t, f.dispatcher.submitted()[0].ImagePath)
}

func TestMonitor_Stats(t *testing.T) {
	f := newFixture(t, 1, time.Minute, false)

	f.frames(1, miso, model.Detection{Label: "person", Confidence: 0.6})
	f.frames(1, miso)

	stats := f.monitor.Stats()
	assert.Equal(t, 2, stats.TotalSubjectsSeen)
	assert.Equal(t, []string{"miso"}, stats.CurrentlyDetected)
	assert.Equal(t, map[string]string{"miso": "02:30 PM", "person": "02:30 PM"}, stats.LastNotifications)
	assert.Equal(t, int64(2), stats.FramesProcessed)
	assert.Equal(t, 0, stats.ImagesSaved)
	assert.Equal(t, []string{"Console"}, stats.Platforms)
}

type recordingViewers struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (r *recordingViewers) Broadcast(_ context.Context, message []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, message)
	return r.err
}

func TestMonitor_ForwardsFramesToViewers(t *testing.T) {
	f := newFixture(t, 5, time.Minute, false)
	viewers := &recordingViewers{err: errors.New("nobody listening")}
	f.monitor.viewers = viewers

	f.frames(2, miso)
	f.monitor.HandleFrame(nil, "garden", nil)

	assert.Len(t, viewers.msgs, 2)
	assert.Contains(t, string(viewers.msgs[0]), `"camera":"garden"`)
}

func TestMonitor_ConcurrentFramesAreSerialized(t *testing.T) {
	f := newFixture(t, 3, time.Hour, false)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.monitor.HandleFrame(nil, "garden", []model.Detection{miso})
		}()
	}
	wg.Wait()

	assert.Len(t, f.dispatcher.submitted(), 1)
	assert.Equal(t, 30, f.monitor.tracker.Streak("miso"))
}
