package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"snapfetch/internal/common"
	"snapfetch/internal/config"
	"snapfetch/internal/datastore"
	"snapfetch/internal/discovery"
	"snapfetch/internal/fetcher"
	"snapfetch/internal/logger"
	"snapfetch/internal/orchestrator"
)

func main() {
	flags := parseFlags()

	gCfg, err := config.LoadGlobalConfig(flags.configFile)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not load config from '%s': %v", flags.configFile, err)
	}
	if err := config.ApplyEnvOverrides(gCfg); err != nil {
		log.Fatalf("[FATAL] Main: Invalid environment override: %v", err)
	}
	if err := config.ValidateConfig(gCfg); err != nil {
		log.Fatalf("[FATAL] Main: Configuration validation failed: %v", err)
	}

	zLogger, err := logger.New(gCfg.LogConfig)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not initialize logger: %v", err)
	}
	zLogger.Info().Str("output_dir", gCfg.FetcherConfig.OutputDir).Msg("Configuration loaded")

	httpClient, err := common.NewHTTPClient(gCfg.HTTPConfig.ToClientConfig(), zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to build HTTP client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sources := gCfg.Sources
	if gCfg.DiscoveryConfig.Enabled {
		discovered, err := discovery.NewClient(httpClient, zLogger).DiscoverSources(ctx, gCfg.DiscoveryConfig)
		if err != nil {
			// Discovery failures only abort startup when nothing else is
			// configured; static sources keep running without the cameras.
			zLogger.Error().Err(err).Msg("Source discovery failed")
		}
		sources = append(sources, discovered...)
	}
	if len(sources) == 0 {
		zLogger.Fatal().Msg("No sources to fetch; configure sources or enable discovery")
	}

	runners, stores, err := buildFetchers(gCfg, sources, httpClient)
	if err != nil {
		closeStores(stores, zLogger)
		zLogger.Fatal().Err(err).Msg("Failed to initialize fetchers")
	}

	runErr := orchestrator.New(runners, zLogger).Run(ctx)
	closeStores(stores, zLogger)
	if runErr != nil {
		zLogger.Error().Err(runErr).Msg("Shutting down after fatal fetcher failure")
		os.Exit(1)
	}
	zLogger.Info().Msg("Shutdown complete")
}

// buildFetchers creates one content store and one fetcher per source. Each
// fetcher logs to its own fetcher.log inside the source's directory.
func buildFetchers(gCfg *config.GlobalConfig, sources []config.SourceConfig, httpClient *http.Client) ([]orchestrator.Runner, []*datastore.ContentStore, error) {
	runners := make([]orchestrator.Runner, 0, len(sources))
	stores := make([]*datastore.ContentStore, 0, len(sources))

	for _, src := range sources {
		sourceLogger, err := logger.NewSourceLogger(
			gCfg.LogConfig,
			src.Name,
			filepath.Join(gCfg.FetcherConfig.OutputDir, src.Name, "fetcher.log"),
		)
		if err != nil {
			return nil, stores, common.WrapError(err, "failed to create logger for source '"+src.Name+"'")
		}

		store, err := datastore.NewContentStore(src.Name, gCfg.FetcherConfig.OutputDir, src.EffectiveExtension(), sourceLogger)
		if err != nil {
			return nil, stores, common.WrapError(err, "failed to create content store for source '"+src.Name+"'")
		}
		stores = append(stores, store)

		interval := time.Duration(src.EffectiveInterval(gCfg.FetcherConfig.IntervalSeconds)) * time.Second
		runners = append(runners, fetcher.NewSourceFetcher(fetcher.Config{
			Name:      src.Name,
			URLs:      src.URLs,
			Interval:  interval,
			UserAgent: gCfg.HTTPConfig.UserAgent,
		}, store, httpClient, sourceLogger))
	}

	return runners, stores, nil
}

func closeStores(stores []*datastore.ContentStore, zLogger zerolog.Logger) {
	for _, store := range stores {
		if err := store.Close(); err != nil {
			zLogger.Error().Err(err).Str("source", store.Name()).Msg("Failed to close content store")
		}
	}
}
