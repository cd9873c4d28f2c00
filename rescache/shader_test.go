package rescache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadSPIRVRejectsUnalignedLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triangle.vert.spv")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	_, err := readSPIRV(dir, "triangle", "vert")
	require.Error(t, err)
}

func TestReadSPIRVRejectsMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := readSPIRV(dir, "missing", "frag")
	require.Error(t, err)
}

func TestReadSPIRVAcceptsAlignedLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triangle.frag.spv")
	require.NoError(t, os.WriteFile(path, make([]byte, 20), 0o644))

	data, err := readSPIRV(dir, "triangle", "frag")
	require.NoError(t, err)
	require.Len(t, data, 20)
}
