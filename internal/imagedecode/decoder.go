package imagedecode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	pigo "github.com/esimov/pigo/core"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/example/face-auth/internal/face"
)

// DefaultMaxPixels bounds decoded images to guard against decompression bombs.
const DefaultMaxPixels = 40_000_000

// ErrInvalidImage is returned for any payload that cannot be turned into pixels.
var ErrInvalidImage = errors.New("invalid image data")

var supportedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

// Decoder turns transport encoded payloads into RGB pixel grids.
type Decoder struct {
	MaxPixels int
}

// NewDecoder returns a Decoder with the default pixel limit.
func NewDecoder() *Decoder {
	return &Decoder{MaxPixels: DefaultMaxPixels}
}

// StripDataURL removes a "data:image/...;base64," prefix if present.
func StripDataURL(payload string) string {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "data:") {
		return payload
	}
	if _, rest, ok := strings.Cut(payload, ","); ok {
		return rest
	}
	return ""
}

// DecodeBase64 strips an optional data URL prefix and decodes standard base64,
// padded or not. Embedded whitespace and line breaks are ignored.
func DecodeBase64(payload string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, StripDataURL(payload))
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return data, nil
}

// DecodeString decodes a base64 (optionally data URL) payload into a grid.
func (d *Decoder) DecodeString(payload string) (*face.PixelGrid, error) {
	data, err := DecodeBase64(payload)
	if err != nil {
		return nil, err
	}
	return d.Decode(data)
}

// Decode decodes raw container bytes into a three channel grid, dropping alpha.
func (d *Decoder) Decode(data []byte) (*face.PixelGrid, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), supportedTypes...) {
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, mtype.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if d.MaxPixels > 0 && cfg.Width*cfg.Height > d.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds pixel limit", ErrInvalidImage, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return FromImage(img), nil
}

// FromImage copies any image.Image into an RGB grid.
func FromImage(img image.Image) *face.PixelGrid {
	src := pigo.ImgToNRGBA(img)
	b := src.Bounds()
	grid := face.NewRGB(b.Dx(), b.Dy())
	for y := 0; y < grid.Height; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < grid.Width; x++ {
			o := (y*grid.Width + x) * 3
			copy(grid.Pix[o:o+3], row[x*4:x*4+3])
		}
	}
	return grid
}
