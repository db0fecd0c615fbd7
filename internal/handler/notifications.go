package handler

import (
	"net/http"

	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/repository"
)

const defaultNotificationLimit = 50

// NotificationInfo is a logged notification with its delivery outcomes.
type NotificationInfo struct {
	model.NotificationEvent
	Deliveries []model.Delivery `json:"deliveries"`
}

// NotificationsHandler handles GET /api/notifications, newest first.
func NotificationsHandler(repo repository.NotificationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if repo == nil {
			http.Error(w, "Notification log is disabled", http.StatusNotFound)
			return
		}

		limit := atoiDefault(r.URL.Query().Get("limit"), defaultNotificationLimit)
		if limit == 0 {
			limit = defaultNotificationLimit
		}

		events, err := repo.Recent(limit)
		if err != nil {
			logger.Error("Error querying notifications: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		out := make([]NotificationInfo, 0, len(events))
		for _, e := range events {
			deliveries, err := repo.GetDeliveries(e.ID)
			if err != nil {
				logger.Error("Error getting deliveries for %s: %v", e.ID, err)
			}
			if deliveries == nil {
				deliveries = []model.Delivery{}
			}
			out = append(out, NotificationInfo{NotificationEvent: e, Deliveries: deliveries})
		}

		writeJSON(w, logger, http.StatusOK, out)
	}
}
