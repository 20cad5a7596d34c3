package vision

import (
	"errors"
	"image"
	"testing"
)

type fakeDetector struct {
	detections []Detection
	err        error
}

func (f *fakeDetector) DetectAndEmbed(img image.Image) ([]Detection, error) {
	return f.detections, f.err
}

func (f *fakeDetector) Close() error { return nil }

func TestExtractSingle(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	embedding := make([]float32, EmbeddingDim)
	embedding[0] = 1

	det := &fakeDetector{detections: []Detection{
		{Box: image.Rect(0, 0, 50, 50), Embedding: embedding},
	}}
	got, err := ExtractSingle(det, img)
	if err != nil {
		t.Fatalf("expected success for single face, got %v", err)
	}
	if got[0] != 1 {
		t.Errorf("expected embedding of the detected face, got %v", got[0])
	}
}

func TestExtractSingleNoFace(t *testing.T) {
	det := &fakeDetector{}
	_, err := ExtractSingle(det, image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if !errors.Is(err, ErrNoFace) {
		t.Errorf("expected ErrNoFace, got %v", err)
	}
}

func TestExtractSingleMultipleFaces(t *testing.T) {
	det := &fakeDetector{detections: []Detection{
		{Box: image.Rect(0, 0, 50, 50), Embedding: make([]float32, EmbeddingDim)},
		{Box: image.Rect(50, 50, 100, 100), Embedding: make([]float32, EmbeddingDim)},
	}}
	_, err := ExtractSingle(det, image.NewRGBA(image.Rect(0, 0, 100, 100)))
	if !errors.Is(err, ErrMultipleFaces) {
		t.Errorf("expected ErrMultipleFaces, got %v", err)
	}
}

func TestExtractSingleDetectorError(t *testing.T) {
	wantErr := errors.New("model failure")
	det := &fakeDetector{err: wantErr}
	_, err := ExtractSingle(det, image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if !errors.Is(err, wantErr) {
		t.Errorf("expected detector error to propagate, got %v", err)
	}
}
