package face

import (
	"errors"
	"fmt"
	"strings"
)

// Detector backends accepted by NewLocator.
const (
	DetectorPigo     = "pigo"
	DetectorHaar     = "haar"
	DetectorContrast = "contrast"
)

// NewLocator builds the named detector backend. cascadePath is ignored by the
// contrast detector; pigo falls back to its built-in cascade when it is empty.
func NewLocator(kind, cascadePath string, params DetectorParams) (Locator, error) {
	switch strings.ToLower(kind) {
	case DetectorPigo:
		return LoadPigoLocator(cascadePath, params)
	case DetectorHaar:
		if cascadePath == "" {
			return nil, errors.New("haar detector requires a cascade path")
		}
		return loadHaar(cascadePath, params)
	case DetectorContrast:
		return NewContrastLocator(params.MinSize), nil
	default:
		return nil, fmt.Errorf("unknown detector %q", kind)
	}
}

// Vectorizer turns an image grid into the FeatureVector of its largest face.
type Vectorizer struct {
	locator    Locator
	normalizer *Normalizer
}

// NewVectorizer wires a detector backend to a normalizer.
func NewVectorizer(locator Locator, normalizer *Normalizer) *Vectorizer {
	return &Vectorizer{locator: locator, normalizer: normalizer}
}

// Length is the length of every vector produced by Vectorize.
func (v *Vectorizer) Length() int {
	return v.normalizer.Length()
}

// Detect converts the grid to gray, runs the locator and returns the selected region
// together with the gray grid it refers to.
func (v *Vectorizer) Detect(grid *PixelGrid) (Region, *PixelGrid, error) {
	if err := grid.Validate(); err != nil {
		return Region{}, nil, err
	}
	gray := grid.Gray()
	regions, err := v.locator.Locate(gray)
	if err != nil {
		return Region{}, nil, fmt.Errorf("locate faces: %w", err)
	}
	best, ok := SelectLargest(regions)
	if !ok {
		return Region{}, nil, ErrNoFaceDetected
	}
	return best, gray, nil
}

// Vectorize returns ErrNoFaceDetected when the locator finds nothing.
func (v *Vectorizer) Vectorize(grid *PixelGrid) (FeatureVector, error) {
	_, vec, err := v.DetectAndVectorize(grid)
	return vec, err
}

// DetectAndVectorize runs the locator once and returns both the selected region
// and its feature vector.
func (v *Vectorizer) DetectAndVectorize(grid *PixelGrid) (Region, FeatureVector, error) {
	region, gray, err := v.Detect(grid)
	if err != nil {
		return Region{}, nil, err
	}
	vec, err := v.normalizer.Normalize(gray, region)
	if err != nil {
		return Region{}, nil, err
	}
	return region, vec, nil
}

// SelectLargest picks the region with the largest area. Ties go to the earliest
// region, so the result depends on the locator's order.
func SelectLargest(regions []Region) (Region, bool) {
	if len(regions) == 0 {
		return Region{}, false
	}
	best := regions[0]
	for _, r := range regions[1:] {
		if r.Area() > best.Area() {
			best = r
		}
	}
	return best, true
}
