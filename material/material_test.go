package material

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAlphaModeCaseInsensitive(t *testing.T) {
	require.Equal(t, Mask, parseAlphaMode("MASK"))
	require.Equal(t, Blend, parseAlphaMode("blend"))
	require.Equal(t, Opaque, parseAlphaMode("Opaque"))
}

func TestParseAlphaModeDefaultsToOpaque(t *testing.T) {
	require.Equal(t, Opaque, parseAlphaMode(""))
	require.Equal(t, Opaque, parseAlphaMode("glass"))
}

func TestAlphaModeString(t *testing.T) {
	require.Equal(t, "Mask", Mask.String())
	require.Equal(t, "Blend", Blend.String())
	require.Equal(t, "Opaque", Opaque.String())
}

func TestLoadWithoutTexturesAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "plain",
		"alpha": { "mode": "mask" }
	}`), 0o644))

	m, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, "plain", m.Name)
	require.Equal(t, Mask, m.Alpha.Mode)
	require.Equal(t, [4]float32{1, 1, 1, 1}, m.Factors.BaseColor)
	require.InDelta(t, 0.5, m.Alpha.Cutoff, 1e-6)
	require.InDelta(t, 1.0, m.Optical.RefractionIndex, 1e-6)
	require.Empty(t, m.Textures.BaseColor)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.Error(t, err)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := Load(path, nil)
	require.Error(t, err)
}

func TestLoadAppliesExplicitFactors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tinted.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"factors": { "baseColor": [0.1, 0.2, 0.3, 0.4], "metallic": 0.25, "roughness": 0.75 },
		"optical": { "refractionIndex": 1.5 }
	}`), 0o644))

	m, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, [4]float32{0.1, 0.2, 0.3, 0.4}, m.Factors.BaseColor)
	require.InDelta(t, 0.25, m.Factors.Metallic, 1e-6)
	require.InDelta(t, 0.75, m.Factors.Roughness, 1e-6)
	require.InDelta(t, 1.5, m.Optical.RefractionIndex, 1e-6)
}
