package rescache

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRadianceHDRFlatScanline(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\n")
	buf.WriteString("FORMAT=32-bit_rle_rgbe\n")
	buf.WriteString("\n")
	buf.WriteString("-Y 2 +X 3\n")
	// width 3 < 8, forces the flat encoding path: 3 pixels per row, 2 rows.
	row := []byte{128, 128, 128, 136, 128, 0, 0, 0, 128, 128, 128, 136}
	buf.Write(row)
	buf.Write(row)

	img, err := decodeRadianceHDR(&buf)
	require.NoError(t, err)
	require.Equal(t, 3, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())
}

func TestParseResolutionLineRejectsUnsupportedOrientation(t *testing.T) {
	_, _, err := parseResolutionLine("+Y 2 -X 3\n")
	require.Error(t, err)
}

func TestRGBEToLDRZeroExponentIsBlack(t *testing.T) {
	r, g, b := rgbeToLDR(200, 200, 200, 0)
	require.Zero(t, r)
	require.Zero(t, g)
	require.Zero(t, b)
}

func TestClampLDRBounds(t *testing.T) {
	require.Equal(t, byte(0), clampLDR(-1))
	require.Equal(t, byte(255), clampLDR(2))
}

func TestDecodeRadianceHDRRejectsBadMagic(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("not an hdr file\n"))
	_, err := decodeRadianceHDR(r)
	require.Error(t, err)
}
