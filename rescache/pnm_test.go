package rescache

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodePNMAsciiPPM(t *testing.T) {
	const src = "P3\n2 1\n255\n255 0 0  0 255 0\n"
	img, err := decodePNM(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, 2, img.Bounds().Dx())
	require.Equal(t, 1, img.Bounds().Dy())
	require.Equal(t, color.NRGBA{R: 255, G: 0, B: 0, A: 255}, img.NRGBAAt(0, 0))
	require.Equal(t, color.NRGBA{R: 0, G: 255, B: 0, A: 255}, img.NRGBAAt(1, 0))
}

func TestDecodePNMAsciiPGM(t *testing.T) {
	const src = "P2\n2 1\n255\n128 64\n"
	img, err := decodePNM(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, img.NRGBAAt(0, 0))
	require.Equal(t, color.NRGBA{R: 64, G: 64, B: 64, A: 255}, img.NRGBAAt(1, 0))
}

func TestDecodePNMBinaryPPM(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("P6\n2 1\n255\n")
	buf.Write([]byte{255, 0, 0, 0, 0, 255})
	img, err := decodePNM(&buf)
	require.NoError(t, err)
	require.Equal(t, color.NRGBA{R: 255, G: 0, B: 0, A: 255}, img.NRGBAAt(0, 0))
	require.Equal(t, color.NRGBA{R: 0, G: 0, B: 255, A: 255}, img.NRGBAAt(1, 0))
}

func TestDecodePNMSkipsComments(t *testing.T) {
	const src = "P2\n# a comment\n2 1\n255\n10 20\n"
	img, err := decodePNM(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, color.NRGBA{R: 10, G: 10, B: 10, A: 255}, img.NRGBAAt(0, 0))
}

func TestDecodePNMRejectsBadMagic(t *testing.T) {
	_, err := decodePNM(strings.NewReader("XX\n1 1\n255\n0\n"))
	require.Error(t, err)
}

func TestScalePNMClampsRange(t *testing.T) {
	require.Equal(t, byte(255), scalePNM(1000, 255))
	require.Equal(t, byte(0), scalePNM(-5, 255))
	require.Equal(t, byte(0), scalePNM(5, 0))
}
