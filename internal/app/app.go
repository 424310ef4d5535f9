// Package app wires the daemon's services together and runs their
// lifecycle: construct, start, wait for shutdown, stop in reverse
// order.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"dawnlamp/internal/config"
)

// App is the application container. It owns the service set and the
// run context.
type App struct {
	cfg      *config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates an App with all services initialized but not started.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Start launches all services. The provided context bounds their
// lifetime.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.services.Start(a.ctx); err != nil {
		return err
	}

	log.Info().Str("boot_id", a.services.BootID).Msg("dawnlamp started")
	return nil
}

// Stop shuts the services down and releases their resources.
func (a *App) Stop() error {
	log.Info().Msg("shutting down")

	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil {
		return a.services.Stop()
	}
	return nil
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// SignalContext returns a context cancelled by SIGINT or SIGTERM.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	return ctx
}
