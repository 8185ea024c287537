// Package conf handles the configuration of the dashboard generator.
package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/tphakala/birdnet-dash/internal/errors"
)

// Site describes one BirdNET-Pi station. The list of sites is loaded once
// at startup and treated as immutable for the rest of the run.
type Site struct {
	// Name is the human readable station name shown on the dashboard
	Name string `mapstructure:"name"`
	// Slug is a stable identifier used as the key in persisted state
	Slug string `mapstructure:"slug"`
	// Host is the base DNS name of the station. Candidate hostnames are
	// built by prefixing the configured interface labels.
	Host string `mapstructure:"host"`
}

// Candidates returns the ordered candidate hostnames for the site, one per
// configured interface prefix. The order of interfaces is the probe order.
func (s *Site) Candidates(interfaces []string) []string {
	candidates := make([]string, 0, len(interfaces))
	for _, iface := range interfaces {
		candidates = append(candidates, fmt.Sprintf("%s.%s", iface, s.Host))
	}
	return candidates
}

// DashboardSettings contains settings for rendering the output page
type DashboardSettings struct {
	Title          string `mapstructure:"title"`          // page title
	RefreshSeconds int    `mapstructure:"refreshseconds"` // client-side reload interval
	DisplayLimit   int    `mapstructure:"displaylimit"`   // detections shown per site
}

// ScraperSettings contains settings for the station page scraper
type ScraperSettings struct {
	FetchLimit     int `mapstructure:"fetchlimit"`     // detection rows requested per site
	TimeoutSeconds int `mapstructure:"timeoutseconds"` // per page fetch timeout
}

// ProbeSettings contains settings for the reachability prober
type ProbeSettings struct {
	TimeoutSeconds int `mapstructure:"timeoutseconds"` // per candidate probe timeout
}

// TrackerSettings contains settings for species history tracking
type TrackerSettings struct {
	RecentWindowDays int `mapstructure:"recentwindowdays"` // window for recent discoveries
}

// Settings contains all runtime configuration
type Settings struct {
	Debug bool `mapstructure:"debug"` // true to enable debug logging

	OutputDir string `mapstructure:"outputdir"` // directory for index.html
	DataDir   string `mapstructure:"datadir"`   // directory for persisted state

	// Interfaces are the DNS label prefixes available for each station
	// host, in probe priority order.
	Interfaces []string `mapstructure:"interfaces"`

	Sites []Site `mapstructure:"sites"`

	Dashboard DashboardSettings `mapstructure:"dashboard"`
	Scraper   ScraperSettings   `mapstructure:"scraper"`
	Probe     ProbeSettings     `mapstructure:"probe"`
	Tracker   TrackerSettings   `mapstructure:"tracker"`
}

// Load reads the configuration into a new Settings struct. An optional
// config.yaml in the working directory or the user config directory
// overrides the built-in defaults; a missing config file is not an error.
func Load() (*Settings, error) {
	setDefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(dir, "birdnet-dash"))
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.New(fmt.Errorf("error reading config file: %w", err)).
				Category(errors.CategoryConfiguration).
				Component("conf").
				Build()
		}
		// No config file, defaults apply
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config: %w", err)).
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}

	if err := validate(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// validate checks settings that are required for a run to be meaningful.
func validate(settings *Settings) error {
	seen := make(map[string]struct{}, len(settings.Sites))
	for i := range settings.Sites {
		site := &settings.Sites[i]
		if site.Slug == "" {
			return errors.Newf("site %q has no slug", site.Name).
				Category(errors.CategoryValidation).
				Component("conf").
				Build()
		}
		if _, dup := seen[site.Slug]; dup {
			return errors.Newf("duplicate site slug %q", site.Slug).
				Category(errors.CategoryValidation).
				Component("conf").
				Build()
		}
		seen[site.Slug] = struct{}{}
	}
	return nil
}
