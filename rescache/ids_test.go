package rescache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCollapsesDotSegments(t *testing.T) {
	id, err := normalize(filepath.Join("a", "b", "..", "c.obj"))
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(id))
	require.Equal(t, "c.obj", filepath.Base(id))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	a, err := normalize("mesh.obj")
	require.NoError(t, err)
	b, err := normalize(a)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
