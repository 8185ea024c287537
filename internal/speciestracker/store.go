package speciestracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tphakala/birdnet-dash/internal/errors"
)

// StateFileName is the species history file kept in the data directory.
const StateFileName = "species_seen.json"

// stateVersion is the current on-disk structure version.
const stateVersion = 1

// state is the persisted species history document.
type state struct {
	Version int                                `json:"version"`
	Sites   map[string]map[string]SpeciesEntry `json:"sites"`
}

func stateFilePath(dataDir string) string {
	return filepath.Join(dataDir, StateFileName)
}

// loadState reads and validates the history file. A missing file yields an
// empty state. A file that cannot be read or does not hold the expected
// structure is an error; history is never silently discarded.
func loadState(path string) (*state, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &state{
				Version: stateVersion,
				Sites:   make(map[string]map[string]SpeciesEntry),
			}, nil
		}
		return nil, errors.New(fmt.Errorf("reading species history: %w", err)).
			Category(errors.CategoryFileIO).
			Component("speciestracker").
			Build()
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.New(fmt.Errorf("species history file %s is corrupt, refusing to continue: %w", path, err)).
			Category(errors.CategoryState).
			Component("speciestracker").
			Build()
	}
	if st.Version != stateVersion {
		return nil, errors.Newf("species history file %s has unsupported version %d, refusing to continue", path, st.Version).
			Category(errors.CategoryState).
			Component("speciestracker").
			Build()
	}
	if st.Sites == nil {
		st.Sites = make(map[string]map[string]SpeciesEntry)
	}
	return &st, nil
}

// saveState writes the history durably: the document is written to a
// temporary file in the same directory and renamed over the old one, so a
// crash mid-write cannot corrupt existing history.
func saveState(path string, st *state) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(fmt.Errorf("creating data directory: %w", err)).
			Category(errors.CategoryFileIO).
			Component("speciestracker").
			Build()
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.New(fmt.Errorf("marshaling species history: %w", err)).
			Category(errors.CategoryState).
			Component("speciestracker").
			Build()
	}

	tmp, err := os.CreateTemp(dir, "species_seen-*.tmp")
	if err != nil {
		return errors.New(fmt.Errorf("creating temporary history file: %w", err)).
			Category(errors.CategoryFileIO).
			Component("speciestracker").
			Build()
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.New(fmt.Errorf("writing temporary history file: %w", err)).
			Category(errors.CategoryFileIO).
			Component("speciestracker").
			Build()
	}
	if err := tmp.Close(); err != nil {
		return errors.New(fmt.Errorf("closing temporary history file: %w", err)).
			Category(errors.CategoryFileIO).
			Component("speciestracker").
			Build()
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.New(fmt.Errorf("setting history file permissions: %w", err)).
			Category(errors.CategoryFileIO).
			Component("speciestracker").
			Build()
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.New(fmt.Errorf("replacing history file: %w", err)).
			Category(errors.CategoryFileIO).
			Component("speciestracker").
			Build()
	}
	return nil
}
