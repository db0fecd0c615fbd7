package handler

import (
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"petwatch/internal/config"
	"petwatch/internal/dto"
	"petwatch/internal/logger"
	"petwatch/internal/repository"
	"petwatch/internal/service/storage"

	"github.com/samber/lo"
)

const defaultSnapshotLimit = 24

// SnapshotsHandler handles GET /api/snapshots. It reads the index when one is
// configured and falls back to listing the snapshot directory otherwise.
func SnapshotsHandler(store *storage.SnapshotStore, logger *logger.Logger,
	snapshotRepo repository.SnapshotRepository, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		filter := &dto.SnapshotFilter{
			Subject: strings.ToLower(strings.TrimSpace(q.Get("subject"))),
			Camera:  q.Get("camera"),
			After:   parseDate(q.Get("after")),
			Before:  parseDate(q.Get("before")),
			Limit:   atoiDefault(q.Get("limit"), defaultSnapshotLimit),
			Offset:  atoiDefault(q.Get("offset"), 0),
		}
		if filter.Limit == 0 {
			filter.Limit = defaultSnapshotLimit
		}

		var page dto.SnapshotPage
		var err error
		if snapshotRepo != nil {
			page, err = snapshotsFromIndex(filter, snapshotRepo, detectionRepo, logger)
		} else {
			page, err = snapshotsFromDisk(filter, store)
		}
		if err != nil {
			logger.Error("Error listing snapshots: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, page)
	}
}

func snapshotsFromIndex(filter *dto.SnapshotFilter, snapshotRepo repository.SnapshotRepository,
	detectionRepo repository.DetectionRepository, logger *logger.Logger) (dto.SnapshotPage, error) {
	snapshots, err := snapshotRepo.GetAll(filter)
	if err != nil {
		return dto.SnapshotPage{}, err
	}
	total, err := snapshotRepo.GetTotalCount(filter)
	if err != nil {
		logger.Error("Error counting snapshots: %v", err)
		total = len(snapshots)
	}

	page := dto.SnapshotPage{Snapshots: make([]dto.SnapshotInfo, 0, len(snapshots)), Total: total, Limit: filter.Limit, Offset: filter.Offset, Subjects: []string{}}
	if detectionRepo != nil {
		labels, err := detectionRepo.GetAllLabels()
		if err != nil {
			logger.Error("Error getting labels: %v", err)
		} else {
			page.Subjects = subjectOptions(labels)
		}
	}
	for _, s := range snapshots {
		info := dto.SnapshotInfo{
			Filename:  s.Filename,
			Subject:   s.Subject,
			Camera:    s.Camera,
			Timestamp: s.Timestamp,
			FileSize:  s.FileSize,
			URL:       viewURL(s.Filename),
		}
		if detectionRepo != nil {
			info.Detections, err = detectionRepo.GetBySnapshotID(s.ID)
			if err != nil {
				logger.Error("Error getting detections for snapshot %d: %v", s.ID, err)
			}
		}
		page.Snapshots = append(page.Snapshots, info)
	}
	return page, nil
}

func snapshotsFromDisk(filter *dto.SnapshotFilter, store *storage.SnapshotStore) (dto.SnapshotPage, error) {
	names, err := store.Names()
	if err != nil {
		return dto.SnapshotPage{}, err
	}

	var all []dto.SnapshotInfo
	var subjects []string
	for _, name := range names {
		subject, ts, err := storage.ParseSnapshotName(name)
		if err != nil {
			continue
		}
		subjects = append(subjects, subject)
		if filter.Subject != "" && subject != filter.Subject {
			continue
		}
		if !filter.After.IsZero() && ts.Before(filter.After) {
			continue
		}
		if !filter.Before.IsZero() && !ts.Before(filter.Before) {
			continue
		}
		all = append(all, dto.SnapshotInfo{Filename: name, Subject: subject, Timestamp: ts, URL: viewURL(name)})
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })

	page := dto.SnapshotPage{Total: len(all), Limit: filter.Limit, Offset: filter.Offset, Subjects: subjectOptions(subjects)}
	page.Snapshots = lo.Subset(all, filter.Offset, uint(filter.Limit))
	if page.Snapshots == nil {
		page.Snapshots = []dto.SnapshotInfo{}
	}
	return page, nil
}

// subjectOptions normalizes labels the way subjects are keyed, deduplicated and sorted.
func subjectOptions(labels []string) []string {
	subjects := lo.Uniq(lo.FilterMap(labels, func(label string, _ int) (string, bool) {
		subject := strings.ToLower(strings.TrimSpace(label))
		return subject, subject != ""
	}))
	sort.Strings(subjects)
	return subjects
}

// ViewSnapshotHandler serves one snapshot file named by the "name" query parameter.
// With an index configured, only indexed snapshots are served.
func ViewSnapshotHandler(cfg *config.Config, snapshotRepo repository.SnapshotRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "Name parameter is required", http.StatusBadRequest)
			return
		}
		if !validSnapshotName(name) {
			http.Error(w, "Invalid snapshot name", http.StatusBadRequest)
			return
		}
		if snapshotRepo != nil {
			snapshot, err := snapshotRepo.GetByFilename(name)
			if err != nil {
				logger.Error("Error looking up snapshot %s: %v", name, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if snapshot == nil {
				http.NotFound(w, r)
				return
			}
		}
		http.ServeFile(w, r, filepath.Join(cfg.ImageDirectory, name))
	}
}

func validSnapshotName(name string) bool {
	return name == filepath.Base(name) &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.HasPrefix(name, ".") &&
		filepath.Ext(name) == storage.SnapshotExt
}

func viewURL(name string) string {
	return "/api/snapshots/view?name=" + url.QueryEscape(name)
}

// atoiDefault converts s to a non-negative int or returns def.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

// parseDate parses "2006-01-02" (HTML date input), returning the zero time when invalid.
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
