// Package speciestracker tracks which species have been observed at each
// site across runs and identifies new arrivals. First-seen dates are
// persisted in the data directory and are written exactly once per
// species and site.
package speciestracker

import (
	"log/slog"
	"sort"
	"time"

	"github.com/tphakala/birdnet-dash/internal/conf"
	"github.com/tphakala/birdnet-dash/internal/logging"
	"github.com/tphakala/birdnet-dash/internal/scraper"
)

// DefaultRecentWindowDays is the window for the recent discoveries view.
const DefaultRecentWindowDays = 7

// SpeciesEntry is one persisted first-sighting record.
type SpeciesEntry struct {
	ScientificName string    `json:"scientific_name"`
	ImageURL       string    `json:"image_url"`
	FirstSeen      time.Time `json:"first_seen"`
}

// SiteSighting is one site's first sighting of a species.
type SiteSighting struct {
	Slug      string
	FirstSeen time.Time
}

// Discovery is a species first seen within the recent window, with the
// sites it was sighted at. A species seen at several sites yields one
// Discovery.
type Discovery struct {
	Species        string
	ScientificName string
	ImageURL       string
	FirstSeen      time.Time // earliest first sighting across sites
	Sites          []SiteSighting
}

// NewSpecies is a species newly recorded during the current run, grouped
// across sites.
type NewSpecies struct {
	Species        string
	ScientificName string
	ImageURL       string
	SiteNames      []string
}

// rawSighting is one ungrouped new sighting recorded during this run.
type rawSighting struct {
	species  string
	entry    SpeciesEntry
	siteName string
}

// Tracker holds the species history state for one run. Not safe for
// concurrent use; the pipeline is sequential.
type Tracker struct {
	path       string
	state      *state
	windowDays int
	newThisRun []rawSighting
	logger     *slog.Logger
}

// New creates a tracker over the state file in dataDir, loading prior
// history. A missing state file is treated as a first run with empty
// history; an unreadable or structurally invalid file is an error, and the
// existing file is left untouched.
func New(dataDir string, settings *conf.TrackerSettings) (*Tracker, error) {
	windowDays := DefaultRecentWindowDays
	if settings != nil && settings.RecentWindowDays > 0 {
		windowDays = settings.RecentWindowDays
	}

	path := stateFilePath(dataDir)
	st, err := loadState(path)
	if err != nil {
		return nil, err
	}

	return &Tracker{
		path:       path,
		state:      st,
		windowDays: windowDays,
		logger:     logging.ForService("speciestracker"),
	}, nil
}

// ApplySite merges the species observed at one site into history and
// returns the names flagged as new this run. The first run for a site
// seeds every observed species without flagging any, so a fresh
// deployment does not raise an alert storm. A species already in history
// keeps its original first-seen date.
func (t *Tracker) ApplySite(site *conf.Site, species []scraper.SpeciesSummary, now time.Time) []string {
	siteHistory, known := t.state.Sites[site.Slug]
	if !known {
		// First run for this site, seed without alerts
		siteHistory = make(map[string]SpeciesEntry, len(species))
		for i := range species {
			s := &species[i]
			siteHistory[s.Species] = SpeciesEntry{
				ScientificName: s.ScientificName,
				ImageURL:       s.ImageURL,
				FirstSeen:      now,
			}
		}
		t.state.Sites[site.Slug] = siteHistory
		t.logger.Info("seeded species history for new site", "site", site.Slug, "species", len(siteHistory))
		return nil
	}

	var flagged []string
	for i := range species {
		s := &species[i]
		if _, seen := siteHistory[s.Species]; seen {
			continue
		}
		entry := SpeciesEntry{
			ScientificName: s.ScientificName,
			ImageURL:       s.ImageURL,
			FirstSeen:      now,
		}
		siteHistory[s.Species] = entry
		flagged = append(flagged, s.Species)
		t.newThisRun = append(t.newThisRun, rawSighting{
			species:  s.Species,
			entry:    entry,
			siteName: site.Name,
		})
		t.logger.Info("new species recorded", "site", site.Slug, "species", s.Species)
	}
	return flagged
}

// NewSpeciesThisRun returns the species newly recorded during this run,
// grouped by name with the sites that sighted them, in sighting order.
func (t *Tracker) NewSpeciesThisRun() []NewSpecies {
	index := make(map[string]int, len(t.newThisRun))
	var grouped []NewSpecies
	for i := range t.newThisRun {
		raw := &t.newThisRun[i]
		pos, seen := index[raw.species]
		if !seen {
			index[raw.species] = len(grouped)
			grouped = append(grouped, NewSpecies{
				Species:        raw.species,
				ScientificName: raw.entry.ScientificName,
				ImageURL:       raw.entry.ImageURL,
			})
			pos = len(grouped) - 1
		}
		g := &grouped[pos]
		g.SiteNames = append(g.SiteNames, raw.siteName)
		if g.ImageURL == "" {
			g.ImageURL = raw.entry.ImageURL
		}
	}
	return grouped
}

// RecentDiscoveries scans all history for species first seen within the
// recent window, grouped by species across sites. Sightings exactly at
// the cutoff are included. Species are ordered newest first by their
// earliest sighting; each species' site list is ordered oldest first.
func (t *Tracker) RecentDiscoveries(now time.Time) []Discovery {
	cutoff := now.AddDate(0, 0, -t.windowDays)

	index := make(map[string]int)
	var grouped []Discovery
	for slug, siteHistory := range t.state.Sites {
		for name, entry := range siteHistory {
			if entry.FirstSeen.Before(cutoff) {
				continue
			}
			pos, seen := index[name]
			if !seen {
				index[name] = len(grouped)
				grouped = append(grouped, Discovery{
					Species:        name,
					ScientificName: entry.ScientificName,
					ImageURL:       entry.ImageURL,
					FirstSeen:      entry.FirstSeen,
				})
				pos = len(grouped) - 1
			}
			d := &grouped[pos]
			d.Sites = append(d.Sites, SiteSighting{Slug: slug, FirstSeen: entry.FirstSeen})
			if d.ImageURL == "" {
				d.ImageURL = entry.ImageURL
			}
			if entry.FirstSeen.Before(d.FirstSeen) {
				d.FirstSeen = entry.FirstSeen
			}
		}
	}

	for i := range grouped {
		sights := grouped[i].Sites
		sort.Slice(sights, func(a, b int) bool {
			if sights[a].FirstSeen.Equal(sights[b].FirstSeen) {
				return sights[a].Slug < sights[b].Slug
			}
			return sights[a].FirstSeen.Before(sights[b].FirstSeen)
		})
	}
	sort.SliceStable(grouped, func(a, b int) bool {
		if grouped[a].FirstSeen.Equal(grouped[b].FirstSeen) {
			return grouped[a].Species < grouped[b].Species
		}
		return grouped[a].FirstSeen.After(grouped[b].FirstSeen)
	})
	return grouped
}

// Save persists the updated history back to the data directory.
func (t *Tracker) Save() error {
	return saveState(t.path, t.state)
}
