// Package probe implements station reachability checks. Each BirdNET-Pi
// station publishes one DNS name per network interface; the prober walks
// the candidate names in priority order and settles on the first one that
// answers.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tphakala/birdnet-dash/internal/conf"
	"github.com/tphakala/birdnet-dash/internal/errors"
	"github.com/tphakala/birdnet-dash/internal/httpclient"
	"github.com/tphakala/birdnet-dash/internal/logging"
)

// ErrUnreachable is returned when no candidate hostname answered the
// health check.
var ErrUnreachable = errors.NewStd("no reachable host")

// DefaultTimeout bounds a single candidate probe.
const DefaultTimeout = 3 * time.Second

// Prober performs sequential reachability checks against candidate
// hostnames.
type Prober struct {
	client  *httpclient.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Prober using the configured per-candidate timeout.
func New(settings *conf.ProbeSettings) *Prober {
	timeout := DefaultTimeout
	if settings != nil && settings.TimeoutSeconds > 0 {
		timeout = time.Duration(settings.TimeoutSeconds) * time.Second
	}
	return &Prober{
		client: httpclient.New(&httpclient.Config{
			DefaultTimeout:     timeout,
			InsecureSkipVerify: true,
		}),
		timeout: timeout,
		logger:  logging.ForService("probe"),
	}
}

// Client returns the underlying HTTP client, for tests that install a mock
// transport.
func (p *Prober) Client() *httpclient.Client {
	return p.client
}

// CheckHost probes a single station hostname. A HTTPS response with any
// status below 500 counts as reachable; connection errors and timeouts do
// not.
func (p *Prober) CheckHost(ctx context.Context, hostname string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Get(probeCtx, fmt.Sprintf("https://%s/", hostname))
	if err != nil {
		p.logger.Debug("host probe failed", "hostname", hostname, "error", err)
		return false
	}
	defer resp.Body.Close()

	up := resp.StatusCode < http.StatusInternalServerError
	p.logger.Debug("host probe completed", "hostname", hostname, "status", resp.StatusCode, "up", up)
	return up
}

// FirstReachable walks the candidates in order and returns the first
// hostname that answers the health check. A failed candidate is non-fatal
// and probing moves to the next one; exhausting the list returns
// ErrUnreachable wrapped with context.
func (p *Prober) FirstReachable(ctx context.Context, candidates []string) (string, error) {
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if p.CheckHost(ctx, candidate) {
			p.logger.Info("station reachable", "hostname", candidate)
			return candidate, nil
		}
	}
	return "", errors.New(fmt.Errorf("%w: tried %d candidates", ErrUnreachable, len(candidates))).
		Category(errors.CategoryNetwork).
		Component("probe").
		Context("candidates", len(candidates)).
		Build()
}

// Close releases idle connections held by the prober.
func (p *Prober) Close() {
	p.client.Close()
}
