// Package similarity decides whether two face vectors belong to the same person.
//
// The decision is a Pearson correlation over raw normalized intensities. It has no
// alignment tolerance and reacts to global brightness and contrast changes, so it is
// a weak boundary; it is kept as is because every enrolled vector was matched this way.
package similarity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/example/face-auth/internal/face"
)

// DefaultThreshold is the correlation existing enrollments were accepted against.
const DefaultThreshold = 0.8

// ErrLengthMismatch is returned when two vectors have different lengths.
var ErrLengthMismatch = errors.New("feature vector length mismatch")

// Engine compares feature vectors against a fixed threshold.
type Engine struct {
	threshold float64
}

// NewEngine returns an Engine that accepts correlations strictly above threshold.
func NewEngine(threshold float64) *Engine {
	return &Engine{threshold: threshold}
}

// Threshold returns the configured acceptance threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Similar reports whether a and b correlate above the engine threshold.
func (e *Engine) Similar(a, b face.FeatureVector) (bool, error) {
	return SimilarWithThreshold(a, b, e.threshold)
}

// Score returns the correlation and the decision in one pass.
func (e *Engine) Score(a, b face.FeatureVector) (float64, bool, error) {
	r, err := Correlation(a, b)
	if err != nil {
		return 0, false, err
	}
	return r, accept(r, e.threshold), nil
}

// SimilarWithThreshold reports whether corr(a, b) > threshold. Degenerate inputs
// (zero variance, empty vectors) are never similar.
func SimilarWithThreshold(a, b face.FeatureVector, threshold float64) (bool, error) {
	r, err := Correlation(a, b)
	if err != nil {
		return false, err
	}
	return accept(r, threshold), nil
}

func accept(r, threshold float64) bool {
	if math.IsNaN(r) {
		return false
	}
	return r > threshold
}

// Correlation returns the Pearson correlation coefficient of a and b treated as
// paired samples. It is NaN when either vector is constant or empty.
func Correlation(a, b face.FeatureVector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 || constant(a) || constant(b) {
		return math.NaN(), nil
	}
	r := stat.Correlation(widen(a), widen(b), nil)
	if math.IsNaN(r) {
		return r, nil
	}
	// Rounding can push identical inputs marginally past 1.
	return math.Max(-1, math.Min(1, r)), nil
}

// constant is checked exactly; a float mean of equal samples may not be.
func constant(v face.FeatureVector) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

func widen(v face.FeatureVector) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
