// Package dashboard drives one generation run: probe every configured
// station, scrape the reachable ones, merge species history and render
// the static dashboard page.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/tphakala/birdnet-dash/internal/conf"
	"github.com/tphakala/birdnet-dash/internal/logging"
	"github.com/tphakala/birdnet-dash/internal/probe"
	"github.com/tphakala/birdnet-dash/internal/scraper"
	"github.com/tphakala/birdnet-dash/internal/speciestracker"
)

// SiteReport is the per-site input to rendering. Degraded states are
// explicit so the template can always render a card for every site.
type SiteReport struct {
	Site      conf.Site
	Host      string // chosen hostname, empty when unreachable
	Reachable bool

	Stats    *scraper.Stats
	StatsErr bool // stats page fetch or parse failed

	Detections    []scraper.Detection // most recent first, display-limited
	DetectionsErr bool                // detections page fetch or parse failed

	Species    []scraper.SpeciesSummary
	NewSpecies []string // species first recorded at this site this run
}

// ViewModel is the merged input for the dashboard template.
type ViewModel struct {
	Title             string
	GeneratedAt       string
	RefreshSeconds    int
	Sites             []SiteReport
	NewSpecies        []speciestracker.NewSpecies
	RecentDiscoveries []speciestracker.Discovery
}

// Generator runs the probe, scrape, track and render pipeline.
type Generator struct {
	settings *conf.Settings
	prober   *probe.Prober
	scraper  *scraper.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewGenerator creates a generator over immutable settings.
func NewGenerator(settings *conf.Settings) *Generator {
	return &Generator{
		settings: settings,
		prober:   probe.New(&settings.Probe),
		scraper:  scraper.NewClient(&settings.Scraper),
		logger:   logging.ForService("dashboard"),
		now:      time.Now,
	}
}

// Prober returns the station prober, for tests that install a mock
// transport.
func (g *Generator) Prober() *probe.Prober {
	return g.prober
}

// Scraper returns the page scraper, for tests that install a mock
// transport.
func (g *Generator) Scraper() *scraper.Client {
	return g.scraper
}

// SetClock overrides the generator's notion of now. Intended for tests.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Run executes one full generation: every configured site is collected in
// order, species history is merged and persisted, and the dashboard is
// rendered and written atomically. A failing site degrades its own card
// only; state I/O is the single run-level failure.
func (g *Generator) Run(ctx context.Context) error {
	tracker, err := speciestracker.New(g.settings.DataDir, &g.settings.Tracker)
	if err != nil {
		return err
	}

	now := g.now().UTC()

	reports := make([]SiteReport, 0, len(g.settings.Sites))
	for i := range g.settings.Sites {
		site := &g.settings.Sites[i]
		report := g.collectSite(ctx, site)
		report.NewSpecies = tracker.ApplySite(site, report.Species, now)
		reports = append(reports, report)
	}

	if err := tracker.Save(); err != nil {
		return err
	}

	vm := &ViewModel{
		Title:             g.settings.Dashboard.Title,
		GeneratedAt:       now.Format("2006-01-02 15:04:05 UTC"),
		RefreshSeconds:    g.settings.Dashboard.RefreshSeconds,
		Sites:             reports,
		NewSpecies:        tracker.NewSpeciesThisRun(),
		RecentDiscoveries: tracker.RecentDiscoveries(now),
	}

	page, err := Render(vm)
	if err != nil {
		return err
	}
	if err := WriteAtomic(g.settings.OutputDir, page); err != nil {
		return err
	}

	g.logger.Info("dashboard generated",
		"sites", len(reports),
		"new_species", len(vm.NewSpecies),
		"output_dir", g.settings.OutputDir)
	return nil
}

// collectSite probes one station and scrapes its pages. Every failure mode
// maps to an explicit degraded field on the report.
func (g *Generator) collectSite(ctx context.Context, site *conf.Site) SiteReport {
	report := SiteReport{Site: *site}

	host, err := g.prober.FirstReachable(ctx, site.Candidates(g.settings.Interfaces))
	if err != nil {
		g.logger.Warn("station unreachable", "site", site.Slug, "error", err)
		return report
	}
	report.Host = host
	report.Reachable = true

	stats, err := g.scraper.FetchStats(ctx, host)
	if err != nil {
		g.logger.Warn("stats unavailable", "site", site.Slug, "error", err)
		report.StatsErr = true
	} else {
		report.Stats = stats
	}

	detections, err := g.scraper.FetchDetections(ctx, host)
	if err != nil {
		g.logger.Warn("detections unavailable", "site", site.Slug, "error", err)
		report.DetectionsErr = true
		return report
	}

	report.Species = scraper.BuildSpeciesSummary(detections)
	if limit := g.settings.Dashboard.DisplayLimit; limit > 0 && len(detections) > limit {
		detections = detections[:limit]
	}
	report.Detections = detections
	return report
}

// Close releases the network clients.
func (g *Generator) Close() {
	g.prober.Close()
	g.scraper.Close()
}
