package app

import (
	"context"
	"errors"
	"os"
	"syscall"

	"github.com/oklog/run"
	log "github.com/sirupsen/logrus"
)

// App runs its services together. The first one to return stops all others.
type App struct {
	services []Service
	runner   *run.Group
}

func NewApp() *App {
	return &App{
		services: make([]Service, 0),
		runner:   &run.Group{},
	}
}

func (a *App) WithService(s Service) *App {
	a.services = append(a.services, s)
	return a
}

// WithSignals stops the app on SIGINT or SIGTERM.
func (a *App) WithSignals(ctx context.Context) *App {
	a.runner.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	return a
}

// Run blocks until every service has returned. A shutdown caused by a signal
// or by cancelling ctx is not an error.
func (a *App) Run(ctx context.Context) error {
	for _, service := range a.services {
		a.runner.Add(actor(ctx, service))
	}

	err := a.runner.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		log.Infof("Received %s, shutting down", sig.Signal)
		return nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
