package face

import (
	_ "embed"
	"fmt"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// facefinderCascade is the frontal face cascade distributed with pigo (MIT, see
// cascade/LICENSE.pigo).
//
//go:embed cascade/facefinder
var facefinderCascade []byte

// groupOverlap is the IoU above which two raw hits are considered the same face.
const groupOverlap = 0.2

// PigoLocator runs a pixel-intensity-comparison cascade over the grid at multiple
// scales and groups the raw hits.
type PigoLocator struct {
	classifier  *pigo.Pigo
	params      DetectorParams
	shiftFactor float64
}

// LoadPigoLocator reads a pigo cascade file from disk. An empty path selects the
// built-in facefinder cascade.
func LoadPigoLocator(path string, params DetectorParams) (*PigoLocator, error) {
	if path == "" {
		return NewPigoLocator(facefinderCascade, params)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cascade file: %w", err)
	}
	return NewPigoLocator(data, params)
}

// NewPigoLocator unpacks a binary cascade.
func NewPigoLocator(cascade []byte, params DetectorParams) (*PigoLocator, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}
	if params.ScaleFactor <= 1 {
		return nil, fmt.Errorf("scale factor must be greater than 1, got %v", params.ScaleFactor)
	}
	return &PigoLocator{
		classifier:  classifier,
		params:      params,
		shiftFactor: 0.1,
	}, nil
}

// Locate implements Locator.
func (l *PigoLocator) Locate(grid *PixelGrid) ([]Region, error) {
	if err := requireGray(grid); err != nil {
		return nil, err
	}

	cp := pigo.CascadeParams{
		MinSize:     l.params.MinSize,
		MaxSize:     l.params.maxSize(grid),
		ShiftFactor: l.shiftFactor,
		ScaleFactor: l.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: grid.Pix,
			Rows:   grid.Height,
			Cols:   grid.Width,
			Dim:    grid.Width,
		},
	}

	// Detections are centre points plus a square side length.
	dets := l.classifier.RunCascade(cp, 0.0)
	hits := make([]Region, 0, len(dets))
	for _, det := range dets {
		half := det.Scale / 2
		r := Region{X: det.Col - half, Y: det.Row - half, Width: det.Scale, Height: det.Scale}.clip(grid.Width, grid.Height)
		if r.Area() == 0 {
			continue
		}
		hits = append(hits, r)
	}
	return groupRegions(hits, l.params.MinNeighbors, groupOverlap), nil
}
