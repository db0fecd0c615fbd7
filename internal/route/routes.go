package route

import (
	"net/http"
	"os"
	"path/filepath"

	"petwatch/internal/config"
	"petwatch/internal/handler"
	"petwatch/internal/logger"
	"petwatch/internal/middleware"
	"petwatch/internal/repository"
	"petwatch/internal/service"
	"petwatch/internal/service/storage"
	"petwatch/internal/service/websocket"
)

// StaticDir holds the optional web UI.
const StaticDir = "static"

// Services are the components the HTTP API exposes. The repositories may be nil.
type Services struct {
	Monitor       *service.Monitor
	Hub           *websocket.HubService
	Store         *storage.SnapshotStore
	SnapshotRepo  repository.SnapshotRepository
	DetectionRepo repository.DetectionRepository
	Notifications repository.NotificationRepository
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join(StaticDir, filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the API, log and auth endpoints and wraps the mux with
// the authentication middleware.
func SetupRoutes(svc Services, cfg *config.Config, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(StaticDir))))

	// Detector ingest and API
	mux.HandleFunc("/api/frames", handler.FramesHandler(svc.Monitor, cfg, log))
	mux.HandleFunc("/api/stats", handler.StatsHandler(svc.Monitor, log))
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(svc.Hub, log))
	mux.HandleFunc("/api/snapshots", handler.SnapshotsHandler(svc.Store, log, svc.SnapshotRepo, svc.DetectionRepo))
	mux.HandleFunc("/api/snapshots/view", handler.ViewSnapshotHandler(cfg, svc.SnapshotRepo, log))
	mux.HandleFunc("/api/notifications", handler.NotificationsHandler(svc.Notifications, log))

	// Log endpoints
	mux.HandleFunc("/logs/info", handler.ShowLogsHandler(cfg, logger.InfoFile))
	mux.HandleFunc("/logs/warning", handler.ShowLogsHandler(cfg, logger.WarningFile))
	mux.HandleFunc("/logs/error", handler.ShowLogsHandler(cfg, logger.ErrorFile))

	mux.HandleFunc("/logs/info/clear", handler.ClearLogsHandler(log, logger.InfoFile))
	mux.HandleFunc("/logs/warning/clear", handler.ClearLogsHandler(log, logger.WarningFile))
	mux.HandleFunc("/logs/error/clear", handler.ClearLogsHandler(log, logger.ErrorFile))

	// Auth endpoints
	mux.HandleFunc("/login", handler.LoginPageHandler)
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping, for example /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.AuthMiddleware(cfg)(mux)
}
