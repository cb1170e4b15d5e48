package face

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// Normalizer crops a region, resizes it to the canonical resolution and flattens it
// row-major into a FeatureVector. The flattening order is part of the persisted
// format: row 0 left to right, then row 1, and so on.
type Normalizer struct {
	Width  int
	Height int
}

// NewNormalizer returns a Normalizer for a width x height canonical grid.
func NewNormalizer(width, height int) *Normalizer {
	return &Normalizer{Width: width, Height: height}
}

// Length is the number of samples in every vector this normalizer emits.
func (n *Normalizer) Length() int {
	return n.Width * n.Height
}

// Normalize implements the crop, resize, rescale, flatten pipeline.
func (n *Normalizer) Normalize(grid *PixelGrid, r Region) (FeatureVector, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if !r.Within(grid.Width, grid.Height) {
		return nil, fmt.Errorf("%w: %+v in %dx%d grid", ErrOutOfBounds, r, grid.Width, grid.Height)
	}
	gray := grid.Gray()

	crop := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		src := (r.Y+y)*gray.Width + r.X
		copy(crop.Pix[y*crop.Stride:y*crop.Stride+r.Width], gray.Pix[src:src+r.Width])
	}

	resized := resize.Resize(uint(n.Width), uint(n.Height), crop, resize.Bilinear)
	b := resized.Bounds()

	vec := make(FeatureVector, n.Width*n.Height)
	for y := 0; y < n.Height; y++ {
		for x := 0; x < n.Width; x++ {
			vec[y*n.Width+x] = float32(sampleAt(resized, b.Min.X+x, b.Min.Y+y)) / 255
		}
	}
	return vec, nil
}

func sampleAt(img image.Image, x, y int) uint8 {
	if g, ok := img.(*image.Gray); ok {
		return g.GrayAt(x, y).Y
	}
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}
