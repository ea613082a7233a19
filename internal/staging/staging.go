// Package staging manages the on-disk directory holding inbound PDF
// artifacts between ingestion and a terminal pipeline outcome.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Area is a flat directory of staged PDF artifacts. Names returned by Save
// and List are always bare file names relative to the area.
type Area struct {
	dir    string
	logger zerolog.Logger
}

// NewArea creates the staging directory if needed and returns a handle to it.
func NewArea(dir string, logger zerolog.Logger) (*Area, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	return &Area{
		dir:    dir,
		logger: logger.With().Str("component", "staging").Logger(),
	}, nil
}

// Save writes an artifact into the area and returns the name it was staged
// under. Unsafe or empty names are replaced with a generated one.
func (a *Area) Save(name string, data []byte) (string, error) {
	name = sanitize(name)

	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("stage artifact: %w", err)
	}

	a.logger.Debug().Str("file", name).Int("bytes", len(data)).Msg("artifact staged")
	return name, nil
}

// List returns the names of all staged PDF artifacts in lexical order.
func (a *Area) List() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("list staging dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

// Read returns the contents of a staged artifact.
func (a *Area) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(a.dir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("read staged artifact: %w", err)
	}
	return data, nil
}

// Remove deletes a staged artifact. Removing an already absent artifact is
// not an error.
func (a *Area) Remove(name string) error {
	err := os.Remove(filepath.Join(a.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staged artifact: %w", err)
	}
	return nil
}

func sanitize(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" || strings.HasPrefix(name, ".") {
		name = ""
	}
	if name == "" || !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return uuid.NewString() + ".pdf"
	}
	return name
}
