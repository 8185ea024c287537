// Package scraper fetches and parses the semi-structured pages a
// BirdNET-Pi station serves: the today's stats table and the recent
// detections fragment.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/tphakala/birdnet-dash/internal/conf"
	"github.com/tphakala/birdnet-dash/internal/errors"
	"github.com/tphakala/birdnet-dash/internal/httpclient"
	"github.com/tphakala/birdnet-dash/internal/logging"
)

// Package-level logger specific to scraper service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "scraper.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "scraper", serviceLevelVar)
	if err != nil {
		// Fallback: log the error and keep a discard logger so calls stay safe
		log.Printf("Failed to initialize scraper file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "scraper")
		closeLogger = func() error { return nil }
	}
}

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 5 * time.Second

// Client fetches pages from BirdNET-Pi stations.
type Client struct {
	httpClient *httpclient.Client
	timeout    time.Duration
	fetchLimit int
}

// NewClient creates a scraper client from configuration.
func NewClient(settings *conf.ScraperSettings) *Client {
	timeout := DefaultTimeout
	fetchLimit := 200
	if settings != nil {
		if settings.TimeoutSeconds > 0 {
			timeout = time.Duration(settings.TimeoutSeconds) * time.Second
		}
		if settings.FetchLimit > 0 {
			fetchLimit = settings.FetchLimit
		}
	}
	return &Client{
		httpClient: httpclient.New(&httpclient.Config{
			DefaultTimeout:     timeout,
			InsecureSkipVerify: true,
		}),
		timeout:    timeout,
		fetchLimit: fetchLimit,
	}
}

// HTTPClient returns the underlying HTTP client, for tests that install a
// mock transport.
func (c *Client) HTTPClient() *httpclient.Client {
	return c.httpClient
}

// fetchPage retrieves one page body. Any transport error or non-success
// status is an error for that page only; callers degrade the affected
// section of the site report.
func (c *Client) fetchPage(ctx context.Context, url string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.httpClient.Get(fetchCtx, url)
	if err != nil {
		logger.Warn("page fetch failed", "url", url, "error", err)
		return "", errors.New(fmt.Errorf("fetching page: %w", err)).
			Category(errors.CategoryNetwork).
			Component("scraper").
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		logger.Warn("page fetch returned error status", "url", url, "status", resp.StatusCode)
		return "", errors.Newf("unexpected status %d fetching page", resp.StatusCode).
			Category(errors.CategoryHTTP).
			Component("scraper").
			Context("status", resp.StatusCode).
			Build()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.New(fmt.Errorf("reading page body: %w", err)).
			Category(errors.CategoryNetwork).
			Component("scraper").
			Build()
	}

	logger.Debug("page fetched", "url", url, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())
	return string(body), nil
}

// FetchStats retrieves and parses the today's stats table from a station.
func (c *Client) FetchStats(ctx context.Context, hostname string) (*Stats, error) {
	url := fmt.Sprintf("https://%s/todays_detections.php?today_stats=true", hostname)
	body, err := c.fetchPage(ctx, url)
	if err != nil {
		return nil, err
	}

	stats, err := ParseStats(body)
	if err != nil {
		return nil, err
	}

	logger.Debug("stats parsed", "hostname", hostname, "total", stats.Total, "species_today", stats.SpeciesToday)
	return stats, nil
}

// FetchDetections retrieves and parses recent detection rows from a
// station, most recent first, bounded by the configured fetch limit.
func (c *Client) FetchDetections(ctx context.Context, hostname string) ([]Detection, error) {
	url := fmt.Sprintf("https://%s/todays_detections.php?ajax_detections=true&display_limit=%d", hostname, c.fetchLimit)
	body, err := c.fetchPage(ctx, url)
	if err != nil {
		return nil, err
	}

	detections, err := ParseDetections(body)
	if err != nil {
		return nil, err
	}

	logger.Debug("detections parsed", "hostname", hostname, "rows", len(detections))
	return detections, nil
}

// Close releases idle connections and the service log writer.
func (c *Client) Close() {
	c.httpClient.Close()
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing scraper logger: %v", err)
		}
	}
}
