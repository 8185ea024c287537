package dashboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-dash/internal/conf"
	"github.com/tphakala/birdnet-dash/internal/scraper"
	"github.com/tphakala/birdnet-dash/internal/speciestracker"
)

func TestRender_AllSiteStates(t *testing.T) {
	vm := &ViewModel{
		Title:          "BirdNET-Pi Dashboard",
		GeneratedAt:    "2026-08-31 12:00:00 UTC",
		RefreshSeconds: 300,
		Sites: []SiteReport{
			{
				Site:      conf.Site{Name: "Alpha", Slug: "alpha", Host: "a.example.com"},
				Host:      "ipv4.eth0.a.example.com",
				Reachable: true,
				Stats:     &scraper.Stats{Total: 11536, Today: 599, LastHour: 26, SpeciesTotal: 24, SpeciesToday: 10},
				Detections: []scraper.Detection{
					{Species: "Spotted Dove", ScientificName: "Streptopelia chinensis", Time: "14:53:59", Confidence: 75},
				},
				Species: []scraper.SpeciesSummary{
					{Species: "Spotted Dove", ScientificName: "Streptopelia chinensis", Count: 1, MaxConfidence: 75, LatestTime: "14:53:59"},
				},
				NewSpecies: []string{"Spotted Dove"},
			},
			{
				Site: conf.Site{Name: "Bravo", Slug: "bravo", Host: "b.example.com"},
				// Unreachable
			},
			{
				Site:          conf.Site{Name: "Charlie", Slug: "charlie", Host: "c.example.com"},
				Host:          "ipv4.eth0.c.example.com",
				Reachable:     true,
				Stats:         &scraper.Stats{Total: 42, Today: 7, LastHour: 1, SpeciesTotal: 5, SpeciesToday: 2},
				DetectionsErr: true,
			},
		},
		NewSpecies: []speciestracker.NewSpecies{
			{Species: "Spotted Dove", ScientificName: "Streptopelia chinensis", SiteNames: []string{"Alpha"}},
		},
		RecentDiscoveries: []speciestracker.Discovery{
			{
				Species:   "Spotted Dove",
				FirstSeen: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
				Sites:     []speciestracker.SiteSighting{{Slug: "alpha"}},
			},
		},
	}

	page, err := Render(vm)

	require.NoError(t, err)
	// Reachable card
	assert.Contains(t, page, "Alpha")
	assert.Contains(t, page, "Spotted Dove")
	assert.Contains(t, page, "Streptopelia chinensis")
	assert.Contains(t, page, "11536")
	assert.Contains(t, page, "NEW")
	// Degraded card
	assert.Contains(t, page, "Bravo")
	assert.Contains(t, page, "Unavailable")
	// Partial card: stats rendered, detections section degraded
	assert.Contains(t, page, "Charlie")
	assert.Contains(t, page, "42")
	assert.Contains(t, page, "Detections unavailable")
	// Cross-site sections
	assert.Contains(t, page, "New species this run")
	assert.Contains(t, page, "Recent discoveries")
	// Self-contained document with client-side reload
	assert.Contains(t, page, `http-equiv="refresh" content="300"`)
	assert.NotContains(t, page, "<script")
}

func TestRender_EmptyRun(t *testing.T) {
	vm := &ViewModel{Title: "BirdNET-Pi Dashboard", GeneratedAt: "2026-08-31 12:00:00 UTC", RefreshSeconds: 300}

	page, err := Render(vm)

	require.NoError(t, err)
	assert.Contains(t, page, "BirdNET-Pi Dashboard")
	assert.NotContains(t, page, "New species this run")
}

func TestWriteAtomic_WritesOutputFile(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteAtomic(dir, "<html>v1</html>"))

	data, err := os.ReadFile(filepath.Join(dir, OutputFileName))
	require.NoError(t, err)
	assert.Equal(t, "<html>v1</html>", string(data))
}

func TestWriteAtomic_ReplacesPreviousVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteAtomic(dir, "<html>v1</html>"))

	require.NoError(t, WriteAtomic(dir, "<html>v2</html>"))

	data, err := os.ReadFile(filepath.Join(dir, OutputFileName))
	require.NoError(t, err)
	assert.Equal(t, "<html>v2</html>", string(data))
}

func TestWriteAtomic_LeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteAtomic(dir, strings.Repeat("x", 1<<16)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, OutputFileName, entries[0].Name())
}

func TestWriteAtomic_CreatesOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "site")

	require.NoError(t, WriteAtomic(dir, "<html></html>"))

	_, err := os.Stat(filepath.Join(dir, OutputFileName))
	assert.NoError(t, err)
}
