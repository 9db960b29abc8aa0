package fetcher

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"snapfetch/internal/common"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultContentType = "application/octet-stream"

// ContentSink is the store surface a fetcher needs. *datastore.ContentStore
// satisfies it.
type ContentSink interface {
	Store(ctx context.Context, content []byte, sourceURL, contentType string) (hash string, isNew bool, err error)
	Healthy(ctx context.Context) error
}

// Config holds the static identity of one fetcher.
type Config struct {
	Name      string
	URLs      []string
	Interval  time.Duration
	UserAgent string
}

// SourceFetcher polls one named source's URL set on a fixed, drift-compensated
// cadence, feeding response bodies into its content store. Failures are
// isolated per URL and per cycle.
type SourceFetcher struct {
	name       string
	urls       []string
	interval   time.Duration
	userAgent  string
	store      ContentSink
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewSourceFetcher creates a fetcher bound to one store.
func NewSourceFetcher(cfg Config, store ContentSink, httpClient *http.Client, logger zerolog.Logger) *SourceFetcher {
	return &SourceFetcher{
		name:       cfg.Name,
		urls:       cfg.URLs,
		interval:   cfg.Interval,
		userAgent:  cfg.UserAgent,
		store:      store,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "SourceFetcher").Logger(),
	}
}

// Name returns the fetcher's source name.
func (f *SourceFetcher) Name() string {
	return f.name
}

// RunForever loops fetch cycles until the context is cancelled. Each cycle
// fetches every URL concurrently; the next cycle starts interval minus the
// cycle's own duration later, immediately when a cycle overran. Overruns are
// never queued up, a slow cycle just lowers the effective frequency. The only
// error return is a fatal store failure; cancellation returns nil.
func (f *SourceFetcher) RunForever(ctx context.Context) error {
	f.logger.Info().
		Int("url_count", len(f.urls)).
		Dur("interval", f.interval).
		Msg("Starting fetcher loop")

	for {
		if ctx.Err() != nil {
			f.logger.Info().Msg("Fetcher loop stopped")
			return nil
		}

		start := time.Now()
		cycleLogger := f.logger.With().Str("cycle_id", uuid.NewString()).Logger()

		outcomes := f.runCycle(ctx, cycleLogger)
		elapsed := time.Since(start)
		logCycleSummary(cycleLogger, outcomes, elapsed)

		if err := fatalOutcomeError(outcomes); err != nil {
			cycleLogger.Error().Err(err).Msg("Content store is unusable, fetcher loop terminating")
			return err
		}

		if !f.sleepUntilNextCycle(ctx, nextDelay(f.interval, elapsed)) {
			f.logger.Info().Msg("Fetcher loop stopped")
			return nil
		}
	}
}

// runCycle executes one cycle, containing any panic so a single bad cycle can
// never end the loop.
func (f *SourceFetcher) runCycle(ctx context.Context, logger zerolog.Logger) (outcomes []FetchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Fetch cycle panicked, continuing with next cycle")
			outcomes = nil
		}
	}()
	return f.fetchCycle(ctx, logger)
}

// fetchCycle fans out fetchOne over every URL and waits for all of them,
// regardless of individual outcomes.
func (f *SourceFetcher) fetchCycle(ctx context.Context, logger zerolog.Logger) []FetchOutcome {
	outcomes := make([]FetchOutcome, len(f.urls))

	var wg sync.WaitGroup
	for i, url := range f.urls {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()
			outcomes[idx] = f.fetchOne(ctx, target, logger)
		}(i, url)
	}
	wg.Wait()

	return outcomes
}

// fetchOne issues a single GET and feeds a successful body into the store.
// Every error path is captured in the returned outcome.
func (f *SourceFetcher) fetchOne(ctx context.Context, url string, logger zerolog.Logger) FetchOutcome {
	start := time.Now()
	outcome := FetchOutcome{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = common.WrapError(err, "failed to create request")
		outcome.Elapsed = time.Since(start)
		logger.Error().Err(outcome.Err).Str("url", url).Msg("Fetch failed")
		return outcome
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = common.NewNetworkError(url, "HTTP request failed", err)
		outcome.Elapsed = time.Since(start)
		logger.Error().Err(outcome.Err).Str("url", url).Msg("Fetch failed")
		return outcome
	}
	defer resp.Body.Close()

	outcome.StatusCode = resp.StatusCode
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		outcome.Kind = OutcomeSkipped
		outcome.Elapsed = time.Since(start)
		logger.Warn().Str("url", url).Int("status_code", resp.StatusCode).Msg("Received non-success HTTP status, skipping")
		return outcome
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = common.WrapError(err, "failed to read response body")
		outcome.Elapsed = time.Since(start)
		logger.Error().Err(outcome.Err).Str("url", url).Msg("Fetch failed")
		return outcome
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	hash, isNew, err := f.store.Store(ctx, body, url, contentType)
	outcome.Elapsed = time.Since(start)
	if err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = err
		// A single item can fail to persist without the store being broken.
		// Only a failed health probe escalates to the fatal class.
		if healthErr := f.store.Healthy(ctx); healthErr != nil {
			outcome.Fatal = true
			outcome.Err = healthErr
		}
		logger.Error().Err(outcome.Err).Str("url", url).Msg("Failed to store content")
		return outcome
	}

	outcome.Kind = OutcomeStored
	outcome.Hash = hash
	outcome.IsNew = isNew

	status := "duplicate"
	if isNew {
		status = "new"
	}
	logger.Info().
		Str("url", url).
		Str("status", status).
		Str("hash", hash[:8]).
		Dur("elapsed", outcome.Elapsed).
		Msg("Fetched content")

	return outcome
}

// sleepUntilNextCycle waits out the remaining interval, honoring cancellation.
// It reports false when the context was cancelled.
func (f *SourceFetcher) sleepUntilNextCycle(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextDelay computes the drift-compensated sleep before the next cycle: the
// configured interval minus the elapsed cycle time, floored at zero.
func nextDelay(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

func fatalOutcomeError(outcomes []FetchOutcome) error {
	for _, o := range outcomes {
		if o.Fatal {
			return o.Err
		}
	}
	return nil
}

func logCycleSummary(logger zerolog.Logger, outcomes []FetchOutcome, elapsed time.Duration) {
	var stored, duplicates, skipped, failed int
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeStored:
			if o.IsNew {
				stored++
			} else {
				duplicates++
			}
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}

	logger.Info().
		Int("new", stored).
		Int("duplicate", duplicates).
		Int("skipped", skipped).
		Int("failed", failed).
		Dur("elapsed", elapsed).
		Msg("Fetch cycle completed")
}
