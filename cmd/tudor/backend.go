package main

import (
	"fmt"
	"log/slog"

	"tudor/internal/config"
	"tudor/internal/service"
	"tudor/internal/store"
)

// localService opens the configured backend and wraps it in a service. The
// returned close func releases the backend; schemaVersion is zero for the
// memory backend.
func localService(cfg *config.Config, logger *slog.Logger) (svc *service.Service, schemaVersion int, closeFn func() error, err error) {
	if cfg == nil {
		return nil, 0, nil, fmt.Errorf("config not initialized")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var backend store.Backend
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory backend; data is lost on exit")
		backend = store.NewMemoryBackend()
	default:
		if cfg.DBPath == "" {
			return nil, 0, nil, fmt.Errorf("db path is required")
		}
		logger.Info("opening database", "path", cfg.DBPath)
		sqlite, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, 0, nil, err
		}
		plan, err := store.MigrationPlan(sqlite.DB())
		if err != nil {
			_ = sqlite.Close()
			return nil, 0, nil, fmt.Errorf("inspect migrations: %w", err)
		}
		schemaVersion = plan.CurrentVersion
		backend = sqlite
	}

	p := store.New(backend, logger)
	svc = service.New(p, logger, service.WithTasksPerPage(cfg.TasksPerPage))
	return svc, schemaVersion, backend.Close, nil
}
