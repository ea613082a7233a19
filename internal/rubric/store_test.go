package rubric

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestGenericAlwaysResolves(t *testing.T) {
	store, err := NewStore("", zerolog.New(io.Discard))
	require.NoError(t, err)

	rubric, err := store.Load(GenericName)
	require.NoError(t, err)
	require.Equal(t, GenericName, rubric.Name)
	require.Len(t, rubric.Criteria, 4)

	var total float64
	for _, criterion := range rubric.Criteria {
		total += criterion.MaxPoints
	}
	require.Equal(t, 30.0, total)
}

func TestLoadUnknownRubric(t *testing.T) {
	store, err := NewStore("", zerolog.New(io.Discard))
	require.NoError(t, err)

	_, err = store.Load("nonexistent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadEmptyNameFallsBackToGeneric(t *testing.T) {
	store, err := NewStore("", zerolog.New(io.Discard))
	require.NoError(t, err)

	rubric, err := store.Load("")
	require.NoError(t, err)
	require.Equal(t, GenericName, rubric.Name)
}

func TestLoadNameIsCaseInsensitive(t *testing.T) {
	store, err := NewStore("", zerolog.New(io.Discard))
	require.NoError(t, err)

	_, err = store.Load("  Generic ")
	require.NoError(t, err)
}

func TestNewStoreFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubrics.yaml")
	content := []byte(`
rubrics:
  generic:
    criteria:
      - title: Effort
        max_points: 10
  essay:
    criteria: []
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	store, err := NewStore(path, zerolog.New(io.Discard))
	require.NoError(t, err)

	// Zero-criteria rubrics are valid.
	essay, err := store.Load("essay")
	require.NoError(t, err)
	require.Empty(t, essay.Criteria)
}

func TestNewStoreRejectsNegativePoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubrics.yaml")
	content := []byte(`
rubrics:
  generic:
    criteria:
      - title: Effort
        max_points: -1
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	_, err := NewStore(path, zerolog.New(io.Discard))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestNewStoreRequiresGeneric(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubrics.yaml")
	content := []byte(`
rubrics:
  essay:
    criteria: []
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	_, err := NewStore(path, zerolog.New(io.Discard))
	require.Error(t, err)
}
