package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-dash/internal/conf"
	"github.com/tphakala/birdnet-dash/internal/scraper"
	"github.com/tphakala/birdnet-dash/internal/speciestracker"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		OutputDir:  filepath.Join(t.TempDir(), "site"),
		DataDir:    filepath.Join(t.TempDir(), "data"),
		Interfaces: []string{"ipv4.eth0"},
		Sites: []conf.Site{
			{Name: "Alpha", Slug: "alpha", Host: "a.example.com"},
			{Name: "Bravo", Slug: "bravo", Host: "b.example.com"},
			{Name: "Charlie", Slug: "charlie", Host: "c.example.com"},
		},
		Dashboard: conf.DashboardSettings{Title: "BirdNET-Pi Dashboard", RefreshSeconds: 300, DisplayLimit: 20},
		Scraper:   conf.ScraperSettings{FetchLimit: 200, TimeoutSeconds: 5},
		Probe:     conf.ProbeSettings{TimeoutSeconds: 3},
		Tracker:   conf.TrackerSettings{RecentWindowDays: 7},
	}
}

func newMockedGenerator(t *testing.T, settings *conf.Settings) (*Generator, *httpmock.MockTransport) {
	t.Helper()
	generator := NewGenerator(settings)
	t.Cleanup(generator.Close)

	transport := httpmock.NewMockTransport()
	generator.Prober().Client().SetTransport(transport)
	generator.Scraper().HTTPClient().SetTransport(transport)
	return generator, transport
}

const testStatsPage = `<table><tr><td>11536</td><td><form><button>599</button></form></td><td>26</td>` +
	`<td><form><button>24</button></form></td><td><form><button>10</button></form></td></tr></table>`

func detectionRow(timestamp, species, scientific string, confidence int) string {
	return fmt.Sprintf(`<tr class="relative"><td><div>%s<br><b><a class="a2" href="x">%s</a></b><br>`+
		`<i>%s</i><br><b>Confidence:</b> %d%%<br></div></td></tr>`, timestamp, species, scientific, confidence)
}

// alphaDetections is five detections of three species, most recent first.
var alphaDetections = detectionRow("14:53:59", "Spotted Dove", "Streptopelia chinensis", 75) +
	detectionRow("14:40:10", "Willie Wagtail", "Rhipidura leucophrys", 88) +
	detectionRow("14:22:01", "Spotted Dove", "Streptopelia chinensis", 92) +
	detectionRow("13:58:47", "Crested Pigeon", "Ocyphaps lophotes", 64) +
	detectionRow("13:30:12", "Willie Wagtail", "Rhipidura leucophrys", 71)

func registerScenario(transport *httpmock.MockTransport) {
	// Site A: fully reachable
	transport.RegisterResponder(http.MethodGet, "https://ipv4.eth0.a.example.com/",
		httpmock.NewStringResponder(http.StatusOK, "ok"))
	transport.RegisterResponder(http.MethodGet,
		"https://ipv4.eth0.a.example.com/todays_detections.php?today_stats=true",
		httpmock.NewStringResponder(http.StatusOK, testStatsPage))
	transport.RegisterResponder(http.MethodGet,
		"https://ipv4.eth0.a.example.com/todays_detections.php?ajax_detections=true&display_limit=200",
		httpmock.NewStringResponder(http.StatusOK, alphaDetections))

	// Site B: no responders at all, every probe fails

	// Site C: reachable, stats page fine, detections page broken
	transport.RegisterResponder(http.MethodGet, "https://ipv4.eth0.c.example.com/",
		httpmock.NewStringResponder(http.StatusOK, "ok"))
	transport.RegisterResponder(http.MethodGet,
		"https://ipv4.eth0.c.example.com/todays_detections.php?today_stats=true",
		httpmock.NewStringResponder(http.StatusOK, testStatsPage))
	transport.RegisterResponder(http.MethodGet,
		"https://ipv4.eth0.c.example.com/todays_detections.php?ajax_detections=true&display_limit=200",
		httpmock.NewStringResponder(http.StatusInternalServerError, "broken"))
}

// seedHistory records prior sightings for site alpha so that one of the
// scenario's three species counts as new on the next run.
func seedHistory(t *testing.T, settings *conf.Settings, when time.Time, names ...string) {
	t.Helper()
	tracker, err := speciestracker.New(settings.DataDir, &settings.Tracker)
	require.NoError(t, err)

	species := make([]scraper.SpeciesSummary, 0, len(names))
	for _, name := range names {
		species = append(species, scraper.SpeciesSummary{Species: name})
	}
	tracker.ApplySite(&settings.Sites[0], species, when)
	require.NoError(t, tracker.Save())
}

func TestGenerator_EndToEndScenario(t *testing.T) {
	settings := testSettings(t)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	seedHistory(t, settings, now.AddDate(0, 0, -30), "Spotted Dove", "Willie Wagtail")

	generator, transport := newMockedGenerator(t, settings)
	generator.SetClock(func() time.Time { return now })
	registerScenario(transport)

	require.NoError(t, generator.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(settings.OutputDir, OutputFileName))
	require.NoError(t, err)
	page := string(data)

	// Site A: normal card with detections and the new-species alert
	assert.Contains(t, page, "Alpha")
	assert.Contains(t, page, "Spotted Dove")
	assert.Contains(t, page, "Crested Pigeon")
	assert.Contains(t, page, "New species this run")
	assert.Contains(t, page, "NEW")

	// Site B: degraded card
	assert.Contains(t, page, "Bravo")
	assert.Contains(t, page, "Unavailable")

	// Site C: partial card, stats present but detections degraded
	assert.Contains(t, page, "Charlie")
	assert.Contains(t, page, "Detections unavailable")
}

func TestGenerator_EndToEndScenario_History(t *testing.T) {
	settings := testSettings(t)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	seedHistory(t, settings, now.AddDate(0, 0, -30), "Spotted Dove", "Willie Wagtail")

	generator, transport := newMockedGenerator(t, settings)
	generator.SetClock(func() time.Time { return now })
	registerScenario(transport)
	require.NoError(t, generator.Run(context.Background()))

	// Crested Pigeon was the only species not seeded; it must now be in
	// history with today's date
	tracker, err := speciestracker.New(settings.DataDir, &settings.Tracker)
	require.NoError(t, err)
	recent := tracker.RecentDiscoveries(now)
	require.Len(t, recent, 1)
	assert.Equal(t, "Crested Pigeon", recent[0].Species)
	assert.True(t, recent[0].FirstSeen.Equal(now))
}

func TestGenerator_FirstRunSeedsWithoutAlerts(t *testing.T) {
	settings := testSettings(t)
	generator, transport := newMockedGenerator(t, settings)
	registerScenario(transport)

	require.NoError(t, generator.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(settings.OutputDir, OutputFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "New species this run")
}

func TestGenerator_SecondIdenticalRunRaisesNoAlerts(t *testing.T) {
	settings := testSettings(t)
	generator, transport := newMockedGenerator(t, settings)
	registerScenario(transport)

	require.NoError(t, generator.Run(context.Background()))
	require.NoError(t, generator.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(settings.OutputDir, OutputFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "New species this run")
}

func TestGenerator_AllSitesUnreachableStillRenders(t *testing.T) {
	settings := testSettings(t)
	generator, _ := newMockedGenerator(t, settings)
	// No responders: every probe fails

	require.NoError(t, generator.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(settings.OutputDir, OutputFileName))
	require.NoError(t, err)
	page := string(data)
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		assert.Contains(t, page, name)
	}
	assert.Contains(t, page, "Unavailable")
}

func TestGenerator_CorruptHistoryIsRunLevelFailure(t *testing.T) {
	settings := testSettings(t)
	require.NoError(t, os.MkdirAll(settings.DataDir, 0o755))
	statePath := filepath.Join(settings.DataDir, speciestracker.StateFileName)
	require.NoError(t, os.WriteFile(statePath, []byte("{corrupt"), 0o644))

	generator, transport := newMockedGenerator(t, settings)
	registerScenario(transport)

	require.Error(t, generator.Run(context.Background()))

	// History must not have been overwritten and no page written
	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.Equal(t, "{corrupt", string(data))
	_, err = os.Stat(filepath.Join(settings.OutputDir, OutputFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerator_DisplayLimitAppliedToDetections(t *testing.T) {
	settings := testSettings(t)
	settings.Dashboard.DisplayLimit = 2
	generator, transport := newMockedGenerator(t, settings)
	registerScenario(transport)

	report := generator.collectSite(context.Background(), &settings.Sites[0])

	require.True(t, report.Reachable)
	assert.Len(t, report.Detections, 2)
	// Species summary still covers all fetched rows
	assert.Len(t, report.Species, 3)
}
