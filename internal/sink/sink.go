// File: internal/sink/sink.go

// Package sink delivers engine events (readiness results, removals,
// rewritten gestures) to their consumers: stdout streams, webhooks,
// in-process callbacks, and the journal.
package sink

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/wildmooseai/pageprep/api/schemas"
)

// Sink consumes engine events.
type Sink interface {
	Emit(ctx context.Context, ev schemas.Event) error
	Close() error
}

// Router fans events out to every registered sink. A failing sink does
// not stop delivery to the others.
type Router struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewRouter creates a router over the given sinks.
func NewRouter(logger *zap.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{sinks: sinks, logger: logger.Named("sink")}
}

// Emit delivers the event to every sink, returning the joined errors.
func (r *Router) Emit(ctx context.Context, ev schemas.Event) error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Emit(ctx, ev); err != nil {
			r.logger.Warn("Sink delivery failed.",
				zap.String("kind", string(ev.Kind)), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (r *Router) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CallbackSink adapts a function into a Sink.
type CallbackSink struct {
	fn func(context.Context, schemas.Event) error
}

// NewCallbackSink wraps fn as a sink.
func NewCallbackSink(fn func(context.Context, schemas.Event) error) *CallbackSink {
	return &CallbackSink{fn: fn}
}

func (c *CallbackSink) Emit(ctx context.Context, ev schemas.Event) error {
	return c.fn(ctx, ev)
}

func (c *CallbackSink) Close() error { return nil }
