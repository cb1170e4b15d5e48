package similarity

import (
	"errors"
	"math"
	"testing"

	"github.com/example/face-auth/internal/face"
)

func ramp(n int) face.FeatureVector {
	v := make(face.FeatureVector, n)
	for i := range v {
		v[i] = float32(i%17) / 16
	}
	return v
}

func TestSimilarSelf(t *testing.T) {
	v := ramp(256)
	for _, threshold := range []float64{-1, 0, 0.5, DefaultThreshold, 0.999} {
		ok, err := SimilarWithThreshold(v, v, threshold)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("expected self-similarity at threshold %v", threshold)
		}
	}
}

func TestCorrelation(t *testing.T) {
	tests := []struct {
		name string
		a    face.FeatureVector
		b    face.FeatureVector
		want float64
	}{
		{name: "identical", a: face.FeatureVector{0, 0.5, 1}, b: face.FeatureVector{0, 0.5, 1}, want: 1},
		{name: "inverted", a: face.FeatureVector{0, 0.5, 1}, b: face.FeatureVector{1, 0.5, 0}, want: -1},
		{name: "affine shift", a: face.FeatureVector{0.1, 0.2, 0.4}, b: face.FeatureVector{0.3, 0.4, 0.6}, want: 1},
		{name: "uncorrelated", a: face.FeatureVector{0, 1, 0, 1}, b: face.FeatureVector{0, 0, 1, 1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Correlation(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Correlation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThresholdIsStrict(t *testing.T) {
	a := face.FeatureVector{0, 1, 0, 1}
	b := face.FeatureVector{0, 0, 1, 1}
	ok, err := SimilarWithThreshold(a, b, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("correlation equal to threshold must not be accepted")
	}
}

func TestLengthMismatch(t *testing.T) {
	_, err := NewEngine(DefaultThreshold).Similar(ramp(10), ramp(11))
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestZeroVarianceIsNotSimilar(t *testing.T) {
	flat := make(face.FeatureVector, 64)
	saturated := make(face.FeatureVector, 64)
	gray := make(face.FeatureVector, 64)
	for i := range saturated {
		saturated[i] = 1
		gray[i] = 0.3
	}
	engine := NewEngine(DefaultThreshold)
	for _, pair := range [][2]face.FeatureVector{{flat, ramp(64)}, {ramp(64), saturated}, {flat, flat}, {gray, gray}, {{}, {}}} {
		ok, err := engine.Similar(pair[0], pair[1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatal("degenerate vectors must not be similar")
		}
	}
}

func TestScoreReportsCorrelation(t *testing.T) {
	score, ok, err := NewEngine(0.9).Score(ramp(64), ramp(64))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || math.Abs(score-1) > 1e-9 {
		t.Fatalf("expected accepted score 1, got %v (%v)", score, ok)
	}
}
