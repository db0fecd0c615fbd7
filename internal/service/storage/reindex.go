package storage

import (
	"errors"
	"os"
	"path/filepath"

	"petwatch/internal/model"
)

// ReindexResult summarises a Reindex run.
type ReindexResult struct {
	Indexed int
	Present int
	Skipped int
}

// Reindex adds every snapshot on disk that is missing from the index. Files whose
// names do not follow the snapshot naming scheme are skipped.
func (s *SnapshotStore) Reindex() (ReindexResult, error) {
	var result ReindexResult
	if s.snapshotRepo == nil {
		return result, errors.New("no snapshot index configured")
	}

	snapshots, err := s.list()
	if err != nil {
		return result, err
	}

	for _, snap := range snapshots {
		exists, err := s.snapshotRepo.Exists(snap.name)
		if err != nil {
			return result, err
		}
		if exists {
			result.Present++
			continue
		}

		subject, ts, err := ParseSnapshotName(snap.name)
		if err != nil {
			s.logger.Warning("⚠️  Skipping %s: %v", snap.name, err)
			result.Skipped++
			continue
		}

		fullpath := filepath.Join(s.imagesDir, snap.name)
		info, err := os.Stat(fullpath)
		if err != nil {
			s.logger.Warning("⚠️  Failed to get info for %s: %v", snap.name, err)
			result.Skipped++
			continue
		}

		if _, err := s.snapshotRepo.Insert(&model.Snapshot{
			Filename:  snap.name,
			Subject:   subject,
			Timestamp: ts,
			FilePath:  fullpath,
			FileSize:  info.Size(),
		}); err != nil {
			return result, err
		}
		result.Indexed++
	}

	return result, nil
}
