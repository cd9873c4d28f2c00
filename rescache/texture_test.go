package rescache

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhiteTextureIs4x4Opaque(t *testing.T) {
	img := whiteTexture()
	require.Equal(t, 4, img.Bounds().Dx())
	require.Equal(t, 4, img.Bounds().Dy())
	require.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(1, 1))
}

func TestDecodeImageFileDecodesPNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swatch.png")

	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	decoded, err := decodeImageFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, decoded.Bounds().Dx())
}

func TestDecodeImageFileRejectsMissingFile(t *testing.T) {
	_, err := decodeImageFile(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}
