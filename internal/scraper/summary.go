package scraper

import "sort"

// BuildSpeciesSummary folds detections into per-species aggregates, sorted
// by detection count descending. Detections are expected most recent
// first, so the first row seen for a species carries its latest time.
// The first non-empty scientific name and image URL win as the
// representative values for the species.
func BuildSpeciesSummary(detections []Detection) []SpeciesSummary {
	index := make(map[string]int, len(detections))
	summaries := make([]SpeciesSummary, 0, len(detections))

	for i := range detections {
		d := &detections[i]
		pos, seen := index[d.Species]
		if !seen {
			index[d.Species] = len(summaries)
			summaries = append(summaries, SpeciesSummary{
				Species:        d.Species,
				ScientificName: d.ScientificName,
				LatestTime:     d.Time,
				ImageURL:       d.ImageURL,
			})
			pos = len(summaries) - 1
		}

		s := &summaries[pos]
		s.Count++
		if d.Confidence > s.MaxConfidence {
			s.MaxConfidence = d.Confidence
		}
		if s.ScientificName == "" {
			s.ScientificName = d.ScientificName
		}
		if s.ImageURL == "" {
			s.ImageURL = d.ImageURL
		}
	}

	// Stable sort keeps first-appearance order between equal counts
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Count > summaries[j].Count
	})
	return summaries
}
