package app

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/searchktools/micro-server/config"
	"github.com/searchktools/micro-server/core"
	"github.com/searchktools/micro-server/core/topology"
)

// App is the application instance: it decides the process role and runs
// either the worker supervisor or the server runtime.
type App struct {
	cfg    *config.Config
	server *core.Server
}

// New creates an application instance
func New(cfg *config.Config) *App {
	return &App{
		cfg:    cfg,
		server: core.NewServer(cfg),
	}
}

// Server returns the underlying server for route registration
func (a *App) Server() *core.Server {
	return a.server
}

// Run starts the application and blocks until shutdown completes.
//
// With Workers > 0 the first process acts as primary: it only supervises
// worker processes and never binds a listener. Workers (and Workers == 0
// single-process mode) serve traffic and drain gracefully on SIGINT or
// SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.Workers > 0 && !topology.IsWorker() {
		return topology.NewSupervisor(a.cfg.Workers, a.cfg.DrainTimeout).Run(ctx)
	}

	go func() {
		<-ctx.Done()
		log.Printf("Signal received. Shutting down...")

		drainCtx, cancel := context.WithTimeout(context.Background(), a.cfg.DrainTimeout)
		defer cancel()
		if err := a.server.Stop(drainCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	return a.server.Listen(a.cfg.Port)
}
