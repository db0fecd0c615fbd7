package sqlite_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petwatch/internal/dto"
	"petwatch/internal/model"
	"petwatch/internal/repository/sqlite"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func snapshot(name, subject string, ts time.Time) *model.Snapshot {
	return &model.Snapshot{
		Filename:  name,
		Subject:   subject,
		Camera:    "living-room",
		Timestamp: ts,
		FilePath:  "/snapshots/" + name,
		FileSize:  1024,
	}
}

func TestDatabase_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "test.db")

	db, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestSnapshotRepository_InsertAndGet(t *testing.T) {
	repo := sqlite.NewSnapshotRepository(setupTestDB(t))
	ts := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	id, err := repo.Insert(snapshot("miso_20250615_143000.jpg", "miso", ts))
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := repo.GetByFilename("miso_20250615_143000.jpg")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "miso", got.Subject)
	assert.True(t, ts.Equal(got.Timestamp))

	missing, err := repo.GetByFilename("nope.jpg")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSnapshotRepository_InsertSameFilenameUpdates(t *testing.T) {
	repo := sqlite.NewSnapshotRepository(setupTestDB(t))
	now := time.Now()

	first, err := repo.Insert(snapshot("miso_1.jpg", "miso", now))
	require.NoError(t, err)
	_, err = repo.Insert(snapshot("other.jpg", "ozzy", now))
	require.NoError(t, err)

	again := snapshot("miso_1.jpg", "miso", now)
	again.FileSize = 2048
	second, err := repo.Insert(again)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	count, err := repo.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSnapshotRepository_Filters(t *testing.T) {
	repo := sqlite.NewSnapshotRepository(setupTestDB(t))
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		subject := "miso"
		if i%2 == 1 {
			subject = "person"
		}
		_, err := repo.Insert(snapshot(fmt.Sprintf("%s_%d.jpg", subject, i), subject, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		filter   *dto.SnapshotFilter
		expected int
	}{
		{"all", &dto.SnapshotFilter{}, 6},
		{"subject", &dto.SnapshotFilter{Subject: "person"}, 3},
		{"after", &dto.SnapshotFilter{After: base.Add(3 * time.Hour)}, 3},
		{"window", &dto.SnapshotFilter{After: base.Add(time.Hour), Before: base.Add(2 * time.Hour)}, 2},
		{"camera miss", &dto.SnapshotFilter{Camera: "garage"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := repo.GetTotalCount(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, count)

			all, err := repo.GetAll(tt.filter)
			require.NoError(t, err)
			assert.Len(t, all, tt.expected)
		})
	}

	page, err := repo.GetAll(&dto.SnapshotFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "miso_4.jpg", page[0].Filename)
	assert.Equal(t, "person_3.jpg", page[1].Filename)
}

func TestSnapshotRepository_DeleteCascadesDetections(t *testing.T) {
	db := setupTestDB(t)
	snapshots := sqlite.NewSnapshotRepository(db)
	detections := sqlite.NewDetectionRepository(db)

	id, err := snapshots.Insert(snapshot("miso_1.jpg", "miso", time.Now()))
	require.NoError(t, err)
	require.NoError(t, detections.InsertBatch([]model.DetectionRecord{
		{SnapshotID: id, Label: "Miso", X: 1, Y: 2, Width: 30, Height: 40, Confidence: 0.9},
		{SnapshotID: id, Label: "Person", Confidence: 0.7},
	}))

	got, err := detections.GetBySnapshotID(id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 30, got[0].Width)

	labels, err := detections.GetAllLabels()
	require.NoError(t, err)
	assert.Equal(t, []string{"Miso", "Person"}, labels)

	require.NoError(t, snapshots.DeleteByFilename("miso_1.jpg"))
	require.NoError(t, snapshots.DeleteByFilename("miso_1.jpg"), "deleting twice is a no-op")

	exists, err := snapshots.Exists("miso_1.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err = detections.GetBySnapshotID(id)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetectionRepository_DeleteBySnapshotID(t *testing.T) {
	db := setupTestDB(t)
	snapshots := sqlite.NewSnapshotRepository(db)
	detections := sqlite.NewDetectionRepository(db)

	keep, err := snapshots.Insert(snapshot("ozzy_1.jpg", "ozzy", time.Now()))
	require.NoError(t, err)
	drop, err := snapshots.Insert(snapshot("miso_1.jpg", "miso", time.Now()))
	require.NoError(t, err)
	require.NoError(t, detections.InsertBatch([]model.DetectionRecord{
		{SnapshotID: keep, Label: "Ozzy", Confidence: 0.8},
		{SnapshotID: drop, Label: "Miso", Confidence: 0.9},
	}))

	require.NoError(t, detections.DeleteBySnapshotID(drop))

	got, err := detections.GetBySnapshotID(drop)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = detections.GetBySnapshotID(keep)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNotificationRepository_RoundTrip(t *testing.T) {
	repo := sqlite.NewNotificationRepository(setupTestDB(t))
	created := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	event := &model.NotificationEvent{
		ID:        "evt-1",
		Subject:   "miso",
		Message:   "🐱 Miso detected!",
		Camera:    "kitchen",
		CreatedAt: created,
		Source:    model.Detection{Label: "Miso", Confidence: 0.9},
	}
	require.NoError(t, repo.Insert(event))
	require.NoError(t, repo.InsertDeliveries([]model.Delivery{
		{NotificationID: "evt-1", Platform: "Console", Success: true, Duration: 2 * time.Millisecond, AttemptedAt: created},
		{NotificationID: "evt-1", Platform: "Telegram", Error: "status 500", Duration: time.Second, AttemptedAt: created},
	}))
	require.NoError(t, repo.InsertDeliveries(nil))

	recent, err := repo.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "miso", recent[0].Subject)
	assert.InDelta(t, 0.9, recent[0].Source.Confidence, 1e-9)

	deliveries, err := repo.GetDeliveries("evt-1")
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.True(t, deliveries[0].Success)
	assert.False(t, deliveries[1].Success)
	assert.Equal(t, "status 500", deliveries[1].Error)
	assert.Equal(t, time.Second, deliveries[1].Duration)
}

func TestSnapshotRepository_ConcurrentInserts(t *testing.T) {
	repo := sqlite.NewSnapshotRepository(setupTestDB(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := repo.Insert(snapshot(fmt.Sprintf("concurrent_%d.jpg", idx), "miso", time.Now()))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := repo.GetTotalCount(&dto.SnapshotFilter{})
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}
