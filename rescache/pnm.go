package rescache

import (
	"bufio"
	"image"
	"image/color"
	"io"
	"strconv"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
)

// decodePNM decodes a NetPBM image (.pbm/.pgm/.ppm): ASCII (P1-P3) or
// binary (P4-P6) magic numbers, a whitespace-separated header of
// width/height (and maxval, for P2/P3/P5/P6), followed by raster data.
//
// No dependency in reach decodes NetPBM, so this reads the format
// directly against its documented layout.
func decodePNM(r io.Reader) (*image.NRGBA, error) {
	br := bufio.NewReader(r)

	magic, err := readPNMToken(br)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "reading pnm magic", err)
	}
	if len(magic) != 2 || magic[0] != 'P' || magic[1] < '1' || magic[1] > '6' {
		return nil, ferrors.New(ferrors.UnsupportedFormat, prefix, "unrecognized pnm magic "+magic)
	}
	kind := magic[1]

	width, err := readPNMInt(br)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "reading pnm width", err)
	}
	height, err := readPNMInt(br)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "reading pnm height", err)
	}
	if width <= 0 || height <= 0 {
		return nil, ferrors.New(ferrors.UnsupportedFormat, prefix, "non-positive pnm dimensions")
	}

	maxVal := 1
	if kind != '1' && kind != '4' {
		maxVal, err = readPNMInt(br)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "reading pnm maxval", err)
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	switch kind {
	case '1':
		err = decodeASCIIBitmap(br, img, width, height, true)
	case '2':
		err = decodeASCIIGray(br, img, width, height, maxVal)
	case '3':
		err = decodeASCIIRGB(br, img, width, height, maxVal)
	case '4':
		err = decodeBinaryBitmap(br, img, width, height)
	case '5':
		err = decodeBinaryGray(br, img, width, height, maxVal)
	case '6':
		err = decodeBinaryRGB(br, img, width, height, maxVal)
	}
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "decoding pnm raster", err)
	}
	return img, nil
}

// readPNMToken reads one whitespace-delimited token, skipping "#"
// comments (to end of line) as NetPBM headers allow between fields.
func readPNMToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if len(tok) > 0 {
				return string(tok), nil
			}
			return "", err
		}
		if b == '#' {
			for {
				c, err := br.ReadByte()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			if len(tok) > 0 {
				return string(tok), nil
			}
			continue
		}
		tok = append(tok, b)
	}
}

func readPNMInt(br *bufio.Reader) (int, error) {
	tok, err := readPNMToken(br)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(tok)
}

func decodeASCIIBitmap(br *bufio.Reader, img *image.NRGBA, w, h int, _ bool) error {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tok, err := readPNMToken(br)
			if err != nil {
				return err
			}
			v := byte(255)
			if tok == "1" {
				v = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return nil
}

func decodeASCIIGray(br *bufio.Reader, img *image.NRGBA, w, h, maxVal int) error {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n, err := readPNMInt(br)
			if err != nil {
				return err
			}
			v := scalePNM(n, maxVal)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return nil
}

func decodeASCIIRGB(br *bufio.Reader, img *image.NRGBA, w, h, maxVal int) error {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, err := readPNMInt(br)
			if err != nil {
				return err
			}
			g, err := readPNMInt(br)
			if err != nil {
				return err
			}
			b, err := readPNMInt(br)
			if err != nil {
				return err
			}
			img.SetNRGBA(x, y, color.NRGBA{R: scalePNM(r, maxVal), G: scalePNM(g, maxVal), B: scalePNM(b, maxVal), A: 255})
		}
	}
	return nil
}

func decodeBinaryBitmap(br *bufio.Reader, img *image.NRGBA, w, h int) error {
	rowBytes := (w + 7) / 8
	row := make([]byte, rowBytes)
	for y := 0; y < h; y++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return err
		}
		for x := 0; x < w; x++ {
			bit := row[x/8] >> uint(7-x%8) & 1
			v := byte(255)
			if bit == 1 {
				v = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return nil
}

func decodeBinaryGray(br *bufio.Reader, img *image.NRGBA, w, h, maxVal int) error {
	bytesPerSample := 1
	if maxVal > 255 {
		bytesPerSample = 2
	}
	row := make([]byte, w*bytesPerSample)
	for y := 0; y < h; y++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return err
		}
		for x := 0; x < w; x++ {
			n := int(row[x*bytesPerSample])
			if bytesPerSample == 2 {
				n = int(row[x*2])<<8 | int(row[x*2+1])
			}
			v := scalePNM(n, maxVal)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return nil
}

func decodeBinaryRGB(br *bufio.Reader, img *image.NRGBA, w, h, maxVal int) error {
	bytesPerSample := 1
	if maxVal > 255 {
		bytesPerSample = 2
	}
	row := make([]byte, w*3*bytesPerSample)
	for y := 0; y < h; y++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return err
		}
		for x := 0; x < w; x++ {
			base := x * 3 * bytesPerSample
			sample := func(i int) int {
				if bytesPerSample == 2 {
					return int(row[base+i*2])<<8 | int(row[base+i*2+1])
				}
				return int(row[base+i])
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: scalePNM(sample(0), maxVal),
				G: scalePNM(sample(1), maxVal),
				B: scalePNM(sample(2), maxVal),
				A: 255,
			})
		}
	}
	return nil
}

func scalePNM(v, maxVal int) byte {
	if maxVal <= 0 {
		return 0
	}
	scaled := v * 255 / maxVal
	switch {
	case scaled < 0:
		return 0
	case scaled > 255:
		return 255
	default:
		return byte(scaled)
	}
}
