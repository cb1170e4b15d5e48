package usecase

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/example/face-auth/internal/face"
)

// ImageDecoder turns a transport payload into pixels.
type ImageDecoder interface {
	DecodeString(payload string) (*face.PixelGrid, error)
}

// FaceVectorizer turns pixels into the feature vector of the selected face.
type FaceVectorizer interface {
	Vectorize(grid *face.PixelGrid) (face.FeatureVector, error)
}

// Pipeline runs decode and vectorize under a process-wide concurrency limit.
type Pipeline struct {
	decoder    ImageDecoder
	vectorizer FaceVectorizer
	sem        *semaphore.Weighted
}

// NewPipeline allows at most workers concurrent vectorizations.
func NewPipeline(decoder ImageDecoder, vectorizer FaceVectorizer, workers int) *Pipeline {
	return &Pipeline{
		decoder:    decoder,
		vectorizer: vectorizer,
		sem:        semaphore.NewWeighted(int64(max(workers, 1))),
	}
}

// Vectorize decodes payload and extracts its feature vector. Errors are passed
// through unchanged for the caller to classify.
func (p *Pipeline) Vectorize(ctx context.Context, payload string) (face.FeatureVector, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	grid, err := p.decoder.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	return p.vectorizer.Vectorize(grid)
}
