package app

import (
	"context"
)

// Service is a long-running component that stops when its context is cancelled.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function to a Service.
type ServiceFunc func(ctx context.Context) error

func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

func actor(ctx context.Context, service Service) (func() error, func(err error)) {
	ctx, cancel := context.WithCancelCause(ctx)
	return func() error {
			return service.Run(ctx)
		}, func(err error) {
			cancel(err)
		}
}
