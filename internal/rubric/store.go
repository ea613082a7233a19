// Package rubric loads named grading rubrics from a static YAML resource.
package rubric

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/avalos-dev/assignment-reviewer/internal/models"
)

// GenericName is the reserved rubric name that must always resolve.
const GenericName = "generic"

// ErrNotFound indicates the requested rubric is not defined. It is distinct
// from an empty rubric so the grading engine can short-circuit cleanly.
var ErrNotFound = errors.New("rubric not found")

const defaultRubrics = `
rubrics:
  generic:
    criteria:
      - title: Clarity of writing
        description: The submission communicates its ideas clearly.
        max_points: 10
      - title: Accuracy of content
        description: Claims and facts in the submission are correct.
        max_points: 10
      - title: Structure and formatting
        description: The submission is well organised and readable.
        max_points: 5
      - title: Creativity/Originality
        description: The submission shows original thinking.
        max_points: 5
`

type rubricFile struct {
	Rubrics map[string]struct {
		Criteria []models.Criterion `yaml:"criteria"`
	} `yaml:"rubrics"`
}

// Store holds the rubric definitions loaded at startup. Rubrics are
// immutable once loaded.
type Store struct {
	rubrics map[string]models.Rubric
	logger  zerolog.Logger
}

// NewStore loads rubric definitions from the YAML file at path. An empty
// path loads the built-in definitions. The "generic" rubric is guaranteed to
// resolve either way.
func NewStore(path string, logger zerolog.Logger) (*Store, error) {
	data := []byte(defaultRubrics)
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rubric file: %w", err)
		}
		data = fileData
	}

	var parsed rubricFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse rubric file: %w", err)
	}

	rubrics := make(map[string]models.Rubric, len(parsed.Rubrics))
	for name, entry := range parsed.Rubrics {
		key := strings.ToLower(strings.TrimSpace(name))
		for _, criterion := range entry.Criteria {
			if criterion.MaxPoints < 0 {
				return nil, fmt.Errorf("rubric %q: criterion %q has negative max_points", name, criterion.Title)
			}
		}
		rubrics[key] = models.Rubric{Name: key, Criteria: entry.Criteria}
	}

	if _, ok := rubrics[GenericName]; !ok {
		return nil, fmt.Errorf("rubric definitions must include %q", GenericName)
	}

	store := &Store{
		rubrics: rubrics,
		logger:  logger.With().Str("component", "rubric_store").Logger(),
	}
	store.logger.Info().Int("rubrics", len(rubrics)).Msg("rubric definitions loaded")

	return store, nil
}

// Load resolves a rubric by name, returning ErrNotFound when it is not
// defined.
func (s *Store) Load(name string) (models.Rubric, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = GenericName
	}

	rubric, ok := s.rubrics[key]
	if !ok {
		return models.Rubric{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return rubric, nil
}
