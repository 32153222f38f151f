package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"diettracker/internal/catalog"
	"diettracker/internal/config"
	"diettracker/internal/logger"
	"diettracker/internal/repository"
	"diettracker/internal/repository/jsonfile"
	"diettracker/internal/repository/sqlite"
	"diettracker/internal/routes"
	"diettracker/internal/services"
	"diettracker/internal/services/ai"
	"diettracker/internal/services/storage"
	"diettracker/internal/services/websocket"
	"diettracker/internal/session"
)

type App struct {
	config           *config.Config
	logger           *logger.Logger
	detectorServices []*ai.DetectorService
	bufferService    *storage.BufferService
	hubService       *websocket.HubService
	manager          *services.Manager
}

// OpenEventLog opens the backend selected by EVENT_LOG_BACKEND.
func OpenEventLog(cfg *config.Config) (repository.EventLog, error) {
	switch cfg.EventLogBackend {
	case config.BackendJSON, "":
		return jsonfile.New(cfg.EventLogPath), nil
	case config.BackendSQLite:
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return sqlite.NewEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown event log backend %q", cfg.EventLogBackend)
	}
}

// LoadCatalog returns the catalog at CATALOG_PATH, or the built-in one.
func LoadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.CatalogPath)
}

// NewDetectors loads one model instance per worker.
func NewDetectors(cfg *config.Config, logger *logger.Logger) ([]*ai.DetectorService, error) {
	workers := max(cfg.ProcessingWorkers, 1)

	detectors := make([]*ai.DetectorService, 0, workers)
	for i := 0; i < workers; i++ {
		ds, err := ai.NewDetectorService(cfg, logger)
		if err != nil {
			for _, d := range detectors {
				d.Close()
			}
			return nil, err
		}
		detectors = append(detectors, ds)
	}
	return detectors, nil
}

func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	cat, err := LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	for label := range cat.AcceptedLabels() {
		if !ai.IsClassLabel(label) {
			log.Warning("Catalog label %q is never produced by the detector", label)
		}
	}

	eventLog, err := OpenEventLog(cfg)
	if err != nil {
		return nil, err
	}

	detectors, err := NewDetectors(cfg, log)
	if err != nil {
		eventLog.Close()
		return nil, err
	}
	pool := make([]session.Detector, 0, len(detectors))
	for _, d := range detectors {
		pool = append(pool, d)
	}

	buffer := storage.NewBufferService(cfg.ImageDirectory, cfg.ImageBufferLimit, log)
	hub := websocket.NewHubService(log)

	mng, err := services.NewManager(pool, cat, eventLog, buffer, hub, cfg, log)
	if err != nil {
		eventLog.Close()
		return nil, err
	}

	return &App{
		config:           cfg,
		logger:           log,
		detectorServices: detectors,
		bufferService:    buffer,
		hubService:       hub,
		manager:          mng,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then flushes buffered photos and
// releases the models and the event log.
func (a *App) Run(ctx context.Context) error {
	stop := make(chan struct{})
	go a.bufferService.Run(a.config.ImageBufferFlushInterval, stop)
	go a.hubService.Run(stop)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: routes.SetupRoutes(a.manager, a.config, a.logger),
	}

	a.logger.Info("Diet tracker listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Event log: %s, photos: %s, model: %s", a.config.EventLogBackend, a.config.ImageDirectory, a.config.ModelPath)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		runErr = server.Shutdown(shutdownCtx)
	case runErr = <-errCh:
	}

	a.logger.Info("Shutting down with %d photos pending", a.bufferService.Pending())
	close(stop)
	a.bufferService.FlushImages()
	a.Close()
	return runErr
}

func (a *App) Close() {
	for _, d := range a.detectorServices {
		if err := d.Close(); err != nil {
			a.logger.Error("Failed to close detector: %v", err)
		}
	}
	if err := a.manager.Close(); err != nil {
		a.logger.Error("Failed to close event log: %v", err)
	}
}
