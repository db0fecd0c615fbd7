package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"petwatch/internal/config"
	"petwatch/internal/logger"
	"petwatch/internal/repository"
	"petwatch/internal/repository/sqlite"
	"petwatch/internal/route"
	"petwatch/internal/service"
	"petwatch/internal/service/composer"
	"petwatch/internal/service/cooldown"
	"petwatch/internal/service/dispatch"
	"petwatch/internal/service/palette"
	"petwatch/internal/service/platform"
	"petwatch/internal/service/presence"
	"petwatch/internal/service/render"
	"petwatch/internal/service/storage"
	"petwatch/internal/service/websocket"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	hub        *websocket.HubService
	platforms  []platform.Platform
	dispatcher *dispatch.Dispatcher
	store      *storage.SnapshotStore
	monitor    *service.Monitor

	snapshotRepo  repository.SnapshotRepository
	detectionRepo repository.DetectionRepository
	notifications repository.NotificationRepository
}

type options struct {
	clock    clock.Clock
	annotate storage.AnnotateFunc
	noDB     bool
}

// Option customises NewApp.
type Option func(*options)

// WithClock drives the monitor from c instead of the wall clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithAnnotator replaces the OpenCV renderer used for snapshots.
func WithAnnotator(fn storage.AnnotateFunc) Option {
	return func(o *options) { o.annotate = fn }
}

// WithoutDatabase disables the snapshot and notification index.
func WithoutDatabase() Option {
	return func(o *options) { o.noDB = true }
}

// NewApp wires every component from cfg.
func NewApp(cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.annotate == nil {
		o.annotate = render.NewRenderer(palette.New(), cfg.JPEGQuality).Annotate
	}

	a := &App{config: cfg, logger: log}

	var recorder dispatch.DeliveryRecorder
	if cfg.DatabasePath != "" && !o.noDB {
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.snapshotRepo = sqlite.NewSnapshotRepository(db)
		a.detectionRepo = sqlite.NewDetectionRepository(db)
		notificationRepo := sqlite.NewNotificationRepository(db)
		a.notifications, recorder = notificationRepo, notificationRepo
	}

	a.hub = websocket.NewHubService(log)
	a.platforms = platform.FromConfig(cfg.Platforms, platform.Deps{Hub: a.hub}, log)
	if len(a.platforms) == 0 {
		log.Warning("No notification platforms configured")
	}

	a.dispatcher = dispatch.NewDispatcher(a.platforms, dispatch.Options{
		Timeout:   cfg.SendTimeout,
		QueueSize: cfg.DispatchQueueSize,
	}, log, recorder)

	a.store = storage.NewSnapshotStore(cfg.ImageDirectory, cfg.MaxImages, o.annotate, log.With("storage"),
		a.snapshotRepo, a.detectionRepo)

	a.monitor = service.NewMonitor(service.MonitorDeps{
		Tracker:       presence.NewTracker(cfg.PersistenceFrames),
		Gate:          cooldown.NewGate(cfg.Cooldown()),
		Composer:      composer.New(cfg.Templates),
		Store:         a.store,
		Dispatcher:    a.dispatcher,
		Notifications: a.notifications,
		Viewers:       a.hub,
		Clock:         o.clock,
		SaveImages:    cfg.SaveImages,
	}, log)

	return a, nil
}

func (a *App) Monitor() *service.Monitor { return a.monitor }

func (a *App) Store() *storage.SnapshotStore { return a.store }

func (a *App) SnapshotRepository() repository.SnapshotRepository { return a.snapshotRepo }

// Start runs the live view hub and the dispatch worker until ctx ends.
func (a *App) Start(ctx context.Context) {
	go a.hub.Run(ctx)
	a.dispatcher.Start()
}

// Run serves the HTTP API until ctx is cancelled, then shuts the server down.
func (a *App) Run(ctx context.Context) error {
	a.Start(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("🚀 Pet watch server")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("📁 Snapshots: %s (max %d)", a.config.ImageDirectory, a.config.MaxImages)
	a.logger.Info("⏱  Persistence %d frame(s), cooldown %ds", a.config.PersistenceFrames, a.config.CooldownSeconds)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return route.SetupRoutes(route.Services{
		Monitor:       a.monitor,
		Hub:           a.hub,
		Store:         a.store,
		SnapshotRepo:  a.snapshotRepo,
		DetectionRepo: a.detectionRepo,
		Notifications: a.notifications,
	}, a.config, a.logger)
}

// Close drains pending notifications within the shutdown grace period and
// releases platforms and the database.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownGrace)
	defer cancel()

	err := a.dispatcher.Close(ctx)
	err = multierr.Append(err, platform.CloseAll(a.platforms))
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	return err
}
