package discovery

import (
	"context"
	"io"
	"net/http"
	"strings"

	"snapfetch/internal/common"
	"snapfetch/internal/config"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Client discovers camera feed URLs from a directory endpoint at startup and
// turns them into one additional source for the orchestrator.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a discovery client.
func NewClient(httpClient *http.Client, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger.With().Str("component", "Discovery").Logger(),
	}
}

// directoryListing mirrors the camera directory payload: a data array of
// entries, each carrying a static snapshot URL.
type directoryListing struct {
	Data []directoryEntry `json:"data"`
}

type directoryEntry struct {
	CCTV struct {
		Location struct {
			LocationName string `json:"locationName"`
		} `json:"location"`
		ImageData struct {
			Static struct {
				CurrentImageURL string `json:"currentImageURL"`
			} `json:"static"`
		} `json:"imageData"`
	} `json:"cctv"`
}

// DiscoverSources fetches the directory endpoint and returns the discovered
// source. It returns no sources and no error when discovery is disabled.
func (c *Client) DiscoverSources(ctx context.Context, cfg config.DiscoveryConfig) ([]config.SourceConfig, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.DirectoryURL == "" {
		return nil, common.NewError("discovery is enabled but directory_url is not set")
	}

	listing, err := c.fetchListing(ctx, cfg.DirectoryURL)
	if err != nil {
		return nil, err
	}

	urls := collectImageURLs(listing)
	if len(urls) == 0 {
		return nil, common.NewError("directory endpoint '%s' yielded no camera URLs", cfg.DirectoryURL)
	}

	c.logger.Info().
		Int("camera_count", len(urls)).
		Str("directory_url", cfg.DirectoryURL).
		Msg("Discovered camera feeds")

	name := cfg.SourceName
	if name == "" {
		name = config.DefaultDiscoverySourceName
	}

	return []config.SourceConfig{{
		Name:            name,
		URLs:            urls,
		IntervalSeconds: cfg.IntervalSeconds,
		Extension:       cfg.Extension,
	}}, nil
}

func (c *Client) fetchListing(ctx context.Context, directoryURL string) (*directoryListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, directoryURL, nil)
	if err != nil {
		return nil, common.WrapError(err, "failed to create directory request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.NewNetworkError(directoryURL, "directory request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, common.NewHTTPError(resp.StatusCode, directoryURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.WrapError(err, "failed to read directory response")
	}

	var listing directoryListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, common.WrapError(err, "failed to parse directory listing")
	}
	return &listing, nil
}

// collectImageURLs extracts usable snapshot URLs, dropping blank and
// placeholder entries and deduplicating the rest.
func collectImageURLs(listing *directoryListing) []string {
	seen := make(map[string]struct{}, len(listing.Data))
	urls := make([]string, 0, len(listing.Data))

	for _, entry := range listing.Data {
		url := strings.TrimSpace(entry.CCTV.ImageData.Static.CurrentImageURL)
		if !strings.HasPrefix(url, "http") {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}

	return urls
}
