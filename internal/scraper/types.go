package scraper

// Stats holds the summary counters scraped from a station's stats table.
type Stats struct {
	Total        int `json:"total"`
	Today        int `json:"today"`
	LastHour     int `json:"last_hour"`
	SpeciesTotal int `json:"species_total"`
	SpeciesToday int `json:"species_today"`
}

// Detection is one logged bird observation parsed from a detections row.
// Fields missing from the markup are left at their zero value rather than
// failing the row.
type Detection struct {
	Species        string `json:"species"`
	ScientificName string `json:"scientific_name"`
	Time           string `json:"time"` // HH:MM:SS station local time
	Confidence     int    `json:"confidence"`
	ImageURL       string `json:"image_url"`
}

// SpeciesSummary is the per-species aggregate of a site's detections.
type SpeciesSummary struct {
	Species        string `json:"species"`
	ScientificName string `json:"scientific_name"`
	Count          int    `json:"count"`
	MaxConfidence  int    `json:"max_confidence"`
	LatestTime     string `json:"latest_time"`
	ImageURL       string `json:"image_url"`
}
