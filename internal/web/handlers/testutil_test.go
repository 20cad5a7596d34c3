package handlers

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/recognizer"
	"github.com/classwatch/classwatch/internal/storage"
	"github.com/classwatch/classwatch/internal/vision"
)

// testConfig creates a minimal config for testing
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Admin: config.AdminConfig{
			Username: "admin",
			Password: "test-password",
		},
		Camera: config.CameraConfig{Width: 640, Height: 480},
		Faces: config.FacesConfig{
			Dir:            t.TempDir(),
			MaxUploadBytes: 16 << 20,
		},
		Recognition: config.RecognitionConfig{JPEGQuality: 85},
	}
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// fakeDetector returns a fixed set of detections for any image
type fakeDetector struct {
	detections []vision.Detection
	err        error
}

func (f *fakeDetector) DetectAndEmbed(img image.Image) ([]vision.Detection, error) {
	return f.detections, f.err
}

func (f *fakeDetector) Close() error { return nil }

// singleFaceDetector detects exactly one face in every image
func singleFaceDetector() *fakeDetector {
	return &fakeDetector{detections: []vision.Detection{{
		Box:       image.Rect(10, 10, 90, 90),
		Embedding: make([]float32, storage.EmbeddingDim),
	}}}
}

// fakePipeline is a controllable Pipeline implementation
type fakePipeline struct {
	frames    [][]byte
	streamErr error
	status    recognizer.Status
	enabled   bool
	reloads   int
	reloadErr error
}

func (p *fakePipeline) Stream(ctx context.Context, emit func(frame []byte) error) error {
	if p.streamErr != nil {
		return p.streamErr
	}
	for _, f := range p.frames {
		if err := emit(f); err != nil {
			return nil
		}
	}
	return nil
}

func (p *fakePipeline) Status() recognizer.Status { return p.status }

func (p *fakePipeline) SetEnabled(enabled bool) { p.enabled = enabled }

func (p *fakePipeline) ReloadCache(ctx context.Context) error {
	p.reloads++
	return p.reloadErr
}

// multipartPhotoRequest builds a multipart registration request with a
// generated PNG photo.
func multipartPhotoRequest(t *testing.T, path string, fields map[string]string, filename string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("writing field %s: %v", key, err)
		}
	}

	if filename != "" {
		part, err := writer.CreateFormFile("photo", filename)
		if err != nil {
			t.Fatalf("creating photo part: %v", err)
		}
		img := image.NewRGBA(image.Rect(0, 0, 100, 100))
		if err := png.Encode(part, img); err != nil {
			t.Fatalf("encoding test photo: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
