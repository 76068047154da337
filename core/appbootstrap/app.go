package appbootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"phishnet/api"
	"phishnet/config"
	"phishnet/core/store"
	"phishnet/core/utils"
)

// Run opens the database, applies migrations, composes the runtime and
// serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) error {
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		return err
	}

	comp, err := composeRuntime(cfg, db, logger)
	if err != nil {
		return err
	}
	server := api.NewServer(cfg, comp.serverDeps, logger)

	for _, w := range comp.workers {
		if err := w.StartWithContext(ctx); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s (driver=%s)", cfg.ListenAddr, cfg.DBDriver)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, w := range comp.workers {
		if err := w.StopWithContext(shutdownCtx); err != nil {
			logger.Errorf("worker stop: %v", err)
		}
	}
	return httpServer.Shutdown(shutdownCtx)
}
