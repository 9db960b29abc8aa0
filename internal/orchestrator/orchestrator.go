package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Runner is one fetch loop the orchestrator owns. *fetcher.SourceFetcher
// satisfies it.
type Runner interface {
	Name() string
	RunForever(ctx context.Context) error
}

// Orchestrator starts every fetcher loop concurrently and keeps the process
// alive for as long as any loop is running. A loop that exits with a fatal
// error is logged and surfaced; siblings are neither restarted nor stopped.
type Orchestrator struct {
	runners []Runner
	logger  zerolog.Logger
}

// New creates an orchestrator for the given fetcher loops.
func New(runners []Runner, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		runners: runners,
		logger:  logger.With().Str("component", "Orchestrator").Logger(),
	}
}

// Run blocks until every loop has ended. Cancelling ctx stops all loops at
// their next cancellation point. The returned error joins the fatal errors of
// any loops that died on their own; it is nil for a plain shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	if len(o.runners) == 0 {
		return errors.New("no fetchers configured to run")
	}

	o.logger.Info().Int("fetcher_count", len(o.runners)).Msg("Starting fetchers")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		fatals []error
	)

	for _, r := range o.runners {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			if err := r.RunForever(ctx); err != nil {
				o.logger.Error().Err(err).Str("source", r.Name()).Msg("Fetcher loop terminated with fatal error")
				mu.Lock()
				fatals = append(fatals, fmt.Errorf("fetcher '%s': %w", r.Name(), err))
				mu.Unlock()
				return
			}
			o.logger.Info().Str("source", r.Name()).Msg("Fetcher loop ended")
		}(r)
	}

	wg.Wait()
	o.logger.Info().Msg("All fetchers stopped")

	return errors.Join(fatals...)
}
