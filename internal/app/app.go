// Package app provides application lifecycle management for the display daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chuckbuilds/ledmatrix/internal/config"
	"github.com/chuckbuilds/ledmatrix/internal/logger"
)

// DisplayApp encapsulates all components needed to run the display
// daemon and its control API. It provides lifecycle management and
// graceful shutdown.
type DisplayApp struct {
	config     *config.Config
	components *Components
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the fetch scheduler, the cache reaper, the rotation
// loop, and the control API server. It blocks until the HTTP server
// stops or fails.
func (app *DisplayApp) Start() error {
	app.components.Scheduler.Start(app.ctx)

	if reap := app.config.Cache.ReapInterval.Std(); reap > 0 {
		go app.components.Cache.RunReaper(app.ctx, reap, app.config.Cache.Retention.Std())
	}

	go func() {
		if err := app.components.Controller.Start(app.ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("Rotation loop failed: %v", err)
		}
	}()

	logger.Infof("Server listening on %s", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout.
func (app *DisplayApp) Stop(timeout time.Duration) error {
	logger.Info("Shutting down...")

	app.components.Controller.Stop()
	app.components.Scheduler.Stop()

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if err := app.components.Telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Failed to shut down telemetry: %v", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *DisplayApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *DisplayApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetComponents returns the wired components
func (app *DisplayApp) GetComponents() *Components {
	return app.components
}
