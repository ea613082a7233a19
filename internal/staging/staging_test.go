package staging

import (
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestArea(t *testing.T) *Area {
	t.Helper()
	area, err := NewArea(t.TempDir(), zerolog.New(io.Discard))
	require.NoError(t, err)
	return area
}

func TestSaveListReadRemove(t *testing.T) {
	area := newTestArea(t)

	name, err := area.Save("homework.pdf", []byte("pdf-bytes"))
	require.NoError(t, err)
	require.Equal(t, "homework.pdf", name)

	names, err := area.List()
	require.NoError(t, err)
	require.Equal(t, []string{"homework.pdf"}, names)

	data, err := area.Read(name)
	require.NoError(t, err)
	require.Equal(t, []byte("pdf-bytes"), data)

	require.NoError(t, area.Remove(name))

	names, err = area.List()
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestSaveSanitizesUnsafeNames(t *testing.T) {
	area := newTestArea(t)

	name, err := area.Save("../../etc/passwd.pdf", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "passwd.pdf", name)

	name, err = area.Save("nonsense.exe", []byte("x"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".pdf"))
	require.NotEqual(t, "nonsense.exe", name)

	name, err = area.Save("", []byte("x"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".pdf"))
}

func TestListIgnoresNonPDFFiles(t *testing.T) {
	area := newTestArea(t)

	_, err := area.Save("kept.pdf", []byte("x"))
	require.NoError(t, err)

	names, err := area.List()
	require.NoError(t, err)
	require.Equal(t, []string{"kept.pdf"}, names)
}

func TestRemoveAbsentArtifact(t *testing.T) {
	area := newTestArea(t)
	require.NoError(t, area.Remove("never-staged.pdf"))
}
