package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tphakala/birdnet-dash/internal/errors"
)

// statsCellCount is the number of cells in the stats row, in order:
// total, today, last hour, species total, species today.
const statsCellCount = 5

var (
	numberRe     = regexp.MustCompile(`\d+`)
	timeRe       = regexp.MustCompile(`(\d{2}:\d{2}:\d{2})`)
	confidenceRe = regexp.MustCompile(`Confidence:\s*(\d+)\s*%`)
)

// parseDocument builds a goquery document from a page body. The station's
// ajax endpoints return bare <tr> fragments without an enclosing <table>;
// the html parser would otherwise foster-parent the cells and drop the row
// elements, so the body is wrapped in a table first.
func parseDocument(body string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader("<table>" + body + "</table>"))
}

// cellNumber extracts the counter from one stats cell. Some counters are
// wrapped in a form button, others are plain text; the button value wins
// when both are present. Returns false when the cell holds no number.
func cellNumber(cell *goquery.Selection) (int, bool) {
	if button := cell.Find("button").First(); button.Length() > 0 {
		if m := numberRe.FindString(button.Text()); m != "" {
			n, err := strconv.Atoi(m)
			if err == nil {
				return n, true
			}
		}
	}
	if m := numberRe.FindString(cell.Text()); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// ParseStats parses the stats table of a station's today's detections page.
// The five counters must all be present for the result to be trusted;
// anything less means the page shape changed and the stats are reported
// as a parse error for this site.
func ParseStats(body string) (*Stats, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryPageParsing).
			Component("scraper").
			Build()
	}

	values := make([]int, 0, statsCellCount)
	doc.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if n, ok := cellNumber(cell); ok {
			values = append(values, n)
		}
		return len(values) < statsCellCount
	})

	if len(values) < statsCellCount {
		return nil, errors.Newf("stats table has %d parseable cells, want %d", len(values), statsCellCount).
			Category(errors.CategoryPageParsing).
			Component("scraper").
			Build()
	}

	return &Stats{
		Total:        values[0],
		Today:        values[1],
		LastHour:     values[2],
		SpeciesTotal: values[3],
		SpeciesToday: values[4],
	}, nil
}

// rowTime extracts the HH:MM:SS timestamp from a detection row, or "" when
// absent.
func rowTime(text string) string {
	if m := timeRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// rowConfidence extracts the confidence percentage from a detection row,
// or 0 when absent.
func rowConfidence(text string) int {
	if m := confidenceRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n
		}
	}
	return 0
}

// ParseDetections parses detection rows from the ajax_detections fragment.
// Rows are returned in page order, most recent first. A row without a
// species anchor is skipped; all other fields degrade to empty or zero
// values so one malformed row never aborts the batch.
func ParseDetections(body string) ([]Detection, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryPageParsing).
			Component("scraper").
			Build()
	}

	var detections []Detection
	doc.Find("tr.relative").Each(func(_ int, row *goquery.Selection) {
		species := strings.TrimSpace(row.Find("a.a2").First().Text())
		if species == "" {
			return
		}

		text := row.Text()
		detections = append(detections, Detection{
			Species:        species,
			ScientificName: strings.TrimSpace(row.Find("i").First().Text()),
			Time:           rowTime(text),
			Confidence:     rowConfidence(text),
			ImageURL:       row.Find("img").First().AttrOr("src", ""),
		})
	})
	return detections, nil
}
