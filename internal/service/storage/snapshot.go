package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/repository"
)

const (
	// SnapshotExt is the extension of every stored snapshot.
	SnapshotExt = ".jpg"
	// TimestampLayout is the timestamp part of a snapshot name.
	TimestampLayout = "20060102_150405"
)

// ErrEvicted is returned by Save when retention removed the snapshot it just wrote.
var ErrEvicted = errors.New("evicted by retention")

// AnnotateFunc draws detections onto an encoded frame and returns the new encoding.
type AnnotateFunc func(frame []byte, detections []model.Detection) ([]byte, error)

// SnapshotStore writes annotated snapshots to disk and keeps at most maxImages of them.
// It is driven by the frame pipeline only and does no locking of its own.
type SnapshotStore struct {
	imagesDir     string
	maxImages     int
	annotate      AnnotateFunc
	dirReady      bool
	logger        *logger.Logger
	snapshotRepo  repository.SnapshotRepository
	detectionRepo repository.DetectionRepository
}

// NewSnapshotStore creates a store. annotate and both repositories may be nil.
func NewSnapshotStore(imagesDir string, maxImages int, annotate AnnotateFunc, logger *logger.Logger,
	snapshotRepo repository.SnapshotRepository, detectionRepo repository.DetectionRepository) *SnapshotStore {
	return &SnapshotStore{
		imagesDir:     imagesDir,
		maxImages:     maxImages,
		annotate:      annotate,
		logger:        logger,
		snapshotRepo:  snapshotRepo,
		detectionRepo: detectionRepo,
	}
}

// Dir returns the snapshot directory.
func (s *SnapshotStore) Dir() string {
	return s.imagesDir
}

// SnapshotName returns the file name for a snapshot of subject taken at ts.
func SnapshotName(subject string, ts time.Time) string {
	return fmt.Sprintf("%s_%s%s", sanitize(subject), ts.Format(TimestampLayout), SnapshotExt)
}

// ParseSnapshotName recovers the subject and timestamp from a snapshot file name.
// The subject may itself contain underscores.
func ParseSnapshotName(name string) (string, time.Time, error) {
	base := strings.TrimSuffix(filepath.Base(name), SnapshotExt)
	if base == filepath.Base(name) {
		return "", time.Time{}, fmt.Errorf("invalid snapshot name %q: missing %s extension", name, SnapshotExt)
	}

	// subject_YYYYMMDD_HHMMSS
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return "", time.Time{}, fmt.Errorf("invalid snapshot name %q", name)
	}

	stamp := strings.Join(parts[len(parts)-2:], "_")
	ts, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid snapshot timestamp in %q: %w", name, err)
	}

	subject := strings.Join(parts[:len(parts)-2], "_")
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("invalid snapshot name %q: empty subject", name)
	}
	return subject, ts, nil
}

// Save annotates frame with detections, writes it as the snapshot for subject and
// enforces retention. The file's modification time is set to now so retention
// orders artifacts by the time they were taken.
func (s *SnapshotStore) Save(frame []byte, subject string, detections []model.Detection, camera string, now time.Time) (string, error) {
	if len(frame) == 0 {
		return "", fmt.Errorf("no frame data for snapshot of %s", subject)
	}

	if err := s.ensureDir(); err != nil {
		return "", err
	}

	data := frame
	if s.annotate != nil {
		annotated, err := s.annotate(frame, detections)
		if err != nil {
			s.logger.Warning("Failed to annotate snapshot for %s, storing raw frame: %v", subject, err)
		} else {
			data = annotated
		}
	}

	filename := SnapshotName(subject, now)
	fullpath := filepath.Join(s.imagesDir, filename)

	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", filename, err)
	}
	if err := os.Chtimes(fullpath, now, now); err != nil {
		s.logger.Warning("Failed to stamp snapshot %s: %v", filename, err)
	}

	s.index(filename, fullpath, subject, camera, now, int64(len(data)), detections)

	if err := s.EnforceRetention(); err != nil {
		s.logger.Error("Snapshot retention failed: %v", err)
	}

	// Retention may evict the new file when it is older than everything kept.
	if _, err := os.Stat(fullpath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("snapshot %s: %w", filename, ErrEvicted)
		}
		return "", fmt.Errorf("failed to stat snapshot %s: %w", filename, err)
	}

	s.logger.Info("📷 Saved snapshot %s", filename)
	return fullpath, nil
}

// EnforceRetention deletes the oldest snapshots until at most maxImages remain.
// Files removed concurrently are treated as already deleted.
func (s *SnapshotStore) EnforceRetention() error {
	snapshots, err := s.list()
	if err != nil {
		return err
	}

	for len(snapshots) > s.maxImages {
		oldest := snapshots[0]
		snapshots = snapshots[1:]

		if err := os.Remove(filepath.Join(s.imagesDir, oldest.name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete snapshot %s: %w", oldest.name, err)
		}
		if s.snapshotRepo != nil {
			if err := s.snapshotRepo.DeleteByFilename(oldest.name); err != nil {
				s.logger.Error("Error removing snapshot %s from database: %v", oldest.name, err)
			}
		}
		s.logger.Debug("Evicted snapshot %s", oldest.name)
	}
	return nil
}

// Count returns the number of snapshots currently on disk.
func (s *SnapshotStore) Count() int {
	snapshots, err := s.list()
	if err != nil {
		return 0
	}
	return len(snapshots)
}

// Names returns the stored snapshot names, oldest first.
func (s *SnapshotStore) Names() ([]string, error) {
	snapshots, err := s.list()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(snapshots))
	for i, snap := range snapshots {
		names[i] = snap.name
	}
	return names, nil
}

type storedSnapshot struct {
	name    string
	created time.Time
}

// list returns the snapshots on disk ordered by creation time, then name.
func (s *SnapshotStore) list() ([]storedSnapshot, error) {
	entries, err := os.ReadDir(s.imagesDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	snapshots := make([]storedSnapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != SnapshotExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		snapshots = append(snapshots, storedSnapshot{name: entry.Name(), created: info.ModTime()})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].created.Equal(snapshots[j].created) {
			return snapshots[i].created.Before(snapshots[j].created)
		}
		return snapshots[i].name < snapshots[j].name
	})
	return snapshots, nil
}

func (s *SnapshotStore) ensureDir() error {
	if s.dirReady {
		return nil
	}
	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	s.dirReady = true
	return nil
}

// index records the snapshot and its detections when repositories are configured.
func (s *SnapshotStore) index(filename, fullpath, subject, camera string, ts time.Time, size int64, detections []model.Detection) {
	if s.snapshotRepo == nil {
		return
	}

	snapshotID, err := s.snapshotRepo.Insert(&model.Snapshot{
		Filename:  filename,
		Subject:   subject,
		Camera:    camera,
		Timestamp: ts,
		FilePath:  fullpath,
		FileSize:  size,
	})
	if err != nil {
		s.logger.Error("Error saving snapshot to database %s: %v", filename, err)
		return
	}

	if s.detectionRepo == nil {
		return
	}
	// A name reused within the same second replaces the earlier snapshot.
	if err := s.detectionRepo.DeleteBySnapshotID(snapshotID); err != nil {
		s.logger.Error("Error clearing detections for %s: %v", filename, err)
		return
	}
	if len(detections) == 0 {
		return
	}

	records := make([]model.DetectionRecord, 0, len(detections))
	for _, det := range detections {
		box := det.Region.Canon()
		records = append(records, model.DetectionRecord{
			SnapshotID: snapshotID,
			Label:      det.Label,
			X:          box.Min.X,
			Y:          box.Min.Y,
			Width:      box.Dx(),
			Height:     box.Dy(),
			Confidence: det.Confidence,
		})
	}
	if err := s.detectionRepo.InsertBatch(records); err != nil {
		s.logger.Error("Error saving detections to database: %v", err)
	}
}

// sanitize keeps subject names safe for use in file names.
func sanitize(subject string) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '-'
		}
		return r
	}, subject)
	s = strings.ReplaceAll(s, "..", "-")
	if s == "" {
		return "unknown"
	}
	return s
}
