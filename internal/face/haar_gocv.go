//go:build gocv

package face

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// HaarLocator wraps an OpenCV Haar cascade. Requires the gocv build tag and a local
// OpenCV installation.
type HaarLocator struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	params     DetectorParams
}

// LoadHaarLocator loads a cascade XML such as haarcascade_frontalface_default.xml.
func LoadHaarLocator(path string, params DetectorParams) (*HaarLocator, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("load haar cascade %s", path)
	}
	return &HaarLocator{classifier: classifier, params: params}, nil
}

// Close releases the native classifier.
func (l *HaarLocator) Close() error {
	return l.classifier.Close()
}

// Locate implements Locator.
func (l *HaarLocator) Locate(grid *PixelGrid) ([]Region, error) {
	if err := requireGray(grid); err != nil {
		return nil, err
	}
	mat, err := gocv.NewMatFromBytes(grid.Height, grid.Width, gocv.MatTypeCV8UC1, grid.Pix)
	if err != nil {
		return nil, fmt.Errorf("wrap grid: %w", err)
	}
	defer mat.Close()

	minSize := image.Pt(l.params.MinSize, l.params.MinSize)
	maxSize := image.Pt(l.params.maxSize(grid), l.params.maxSize(grid))

	// CascadeClassifier is not safe for concurrent use.
	l.mu.Lock()
	rects := l.classifier.DetectMultiScaleWithParams(mat, l.params.ScaleFactor, l.params.MinNeighbors, 0, minSize, maxSize)
	l.mu.Unlock()

	out := make([]Region, 0, len(rects))
	for _, r := range rects {
		out = append(out, Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()})
	}
	return out, nil
}

func loadHaar(path string, params DetectorParams) (Locator, error) {
	return LoadHaarLocator(path, params)
}
