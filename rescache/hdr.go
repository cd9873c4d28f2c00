package rescache

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
)

// decodeRadianceHDR parses a Radiance RGBE (.hdr) stream: a text header
// terminated by a blank line, a "-Y height +X width" resolution line, and
// either flat or new-style run-length-encoded scanlines of shared-
// exponent RGBE pixels. Values are exposed through a simple fixed-
// exposure tonemap so the result fits the cache's RGBA8 upload path.
//
// No dependency in reach decodes Radiance HDR, so this reads the format
// directly against its documented layout.
func decodeRadianceHDR(r io.Reader) (*image.NRGBA, error) {
	br := bufio.NewReader(r)

	magic, err := br.ReadString('\n')
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "reading hdr magic", err)
	}
	if !strings.HasPrefix(magic, "#?") {
		return nil, ferrors.New(ferrors.UnsupportedFormat, prefix, "missing Radiance HDR magic")
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "reading hdr header", err)
		}
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
	}

	resLine, err := br.ReadString('\n')
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "reading hdr resolution line", err)
	}
	width, height, err := parseResolutionLine(resLine)
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	scan := make([]byte, width*4)
	for y := 0; y < height; y++ {
		if err := readScanline(br, scan, width); err != nil {
			return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, fmt.Sprintf("reading hdr scanline %d", y), err)
		}
		for x := 0; x < width; x++ {
			r, g, b := rgbeToLDR(scan[x*4], scan[x*4+1], scan[x*4+2], scan[x*4+3])
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img, nil
}

func parseResolutionLine(line string) (width, height int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[0] != "-Y" || fields[2] != "+X" {
		return 0, 0, ferrors.New(ferrors.UnsupportedFormat, prefix, "unsupported hdr resolution line orientation")
	}
	height, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "parsing hdr height", err)
	}
	width, err = strconv.Atoi(fields[3])
	if err != nil {
		return 0, 0, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "parsing hdr width", err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, ferrors.New(ferrors.UnsupportedFormat, prefix, "non-positive hdr dimensions")
	}
	return width, height, nil
}

// readScanline fills dst (4 bytes per pixel, RGBE) for one scanline of
// width pixels, handling both the flat-RGBE and new-style RLE encodings.
func readScanline(br *bufio.Reader, dst []byte, width int) error {
	if width < 8 || width > 0x7fff {
		return readFlatScanline(br, dst, width)
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(br, header); err != nil {
		return err
	}
	if header[0] != 2 || header[1] != 2 || (int(header[2])<<8|int(header[3])) != width {
		// Not new-style RLE: the 4 bytes already read are the first
		// flat-encoded pixel.
		copy(dst[0:4], header)
		return readFlatScanline(br, dst[4:], width-1)
	}

	for channel := 0; channel < 4; channel++ {
		x := 0
		for x < width {
			count, err := br.ReadByte()
			if err != nil {
				return err
			}
			if count > 128 {
				n := int(count) - 128
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				for i := 0; i < n; i++ {
					dst[(x+i)*4+channel] = v
				}
				x += n
			} else {
				n := int(count)
				for i := 0; i < n; i++ {
					v, err := br.ReadByte()
					if err != nil {
						return err
					}
					dst[(x+i)*4+channel] = v
				}
				x += n
			}
		}
	}
	return nil
}

func readFlatScanline(br *bufio.Reader, dst []byte, width int) error {
	_, err := io.ReadFull(br, dst[:width*4])
	return err
}

// rgbeToLDR converts one shared-exponent RGBE pixel to clamped 8-bit LDR
// via a fixed exposure scale (no tonemap curve, matching the simplest
// Radiance-to-display conversion).
func rgbeToLDR(r, g, b, e byte) (byte, byte, byte) {
	if e == 0 {
		return 0, 0, 0
	}
	scale := ldrExposure(e)
	return clampLDR(float64(r) * scale), clampLDR(float64(g) * scale), clampLDR(float64(b) * scale)
}

func ldrExposure(e byte) float64 {
	// RGBE's exponent is biased by 128; the mantissa is normalized to
	// [0,256), so the true scale is 2^(e-128-8).
	exp := int(e) - 128 - 8
	scale := 1.0
	if exp >= 0 {
		scale = float64(uint64(1) << uint(exp))
	} else {
		scale = 1.0 / float64(uint64(1)<<uint(-exp))
	}
	return scale
}

func clampLDR(v float64) byte {
	scaled := v * 255.0
	switch {
	case scaled <= 0:
		return 0
	case scaled >= 255:
		return 255
	default:
		return byte(scaled)
	}
}
