package dashboard

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/birdnet-dash/internal/errors"
)

// OutputFileName is the dashboard document written to the output directory.
const OutputFileName = "index.html"

//go:embed dashboard.html
var dashboardTemplate string

var pageTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"join": strings.Join,
	"shortDate": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
	"contains": func(list []string, s string) bool {
		return slices.Contains(list, s)
	},
}).Parse(dashboardTemplate))

// Render produces the complete dashboard document. Rendering is pure; it
// has no side effects beyond the returned string.
func Render(vm *ViewModel) (string, error) {
	var sb strings.Builder
	if err := pageTemplate.Execute(&sb, vm); err != nil {
		return "", errors.New(fmt.Errorf("rendering dashboard: %w", err)).
			Category(errors.CategoryGeneric).
			Component("dashboard").
			Build()
	}
	return sb.String(), nil
}

// WriteAtomic writes the page to <outputDir>/index.html via a temporary
// file and rename, so a reader serving the directory never observes a
// partially written document.
func WriteAtomic(outputDir, page string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return errors.New(fmt.Errorf("creating output directory: %w", err)).
			Category(errors.CategoryFileIO).
			Component("dashboard").
			Build()
	}

	tmp, err := os.CreateTemp(outputDir, "index-*.tmp")
	if err != nil {
		return errors.New(fmt.Errorf("creating temporary output file: %w", err)).
			Category(errors.CategoryFileIO).
			Component("dashboard").
			Build()
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(page); err != nil {
		tmp.Close()
		return errors.New(fmt.Errorf("writing temporary output file: %w", err)).
			Category(errors.CategoryFileIO).
			Component("dashboard").
			Build()
	}
	if err := tmp.Close(); err != nil {
		return errors.New(fmt.Errorf("closing temporary output file: %w", err)).
			Category(errors.CategoryFileIO).
			Component("dashboard").
			Build()
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.New(fmt.Errorf("setting output file permissions: %w", err)).
			Category(errors.CategoryFileIO).
			Component("dashboard").
			Build()
	}

	target := filepath.Join(outputDir, OutputFileName)
	if err := os.Rename(tmpName, target); err != nil {
		return errors.New(fmt.Errorf("replacing output file: %w", err)).
			Category(errors.CategoryFileIO).
			Component("dashboard").
			Build()
	}
	return nil
}
