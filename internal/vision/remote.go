package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// RemoteDetector calls an HTTP face-detection service instead of
// running dlib in-process. The service accepts a multipart image upload
// and returns bounding boxes with embeddings.
type RemoteDetector struct {
	baseURL string
	client  *http.Client
}

// NewRemoteDetector creates a client for the detector service at baseURL.
func NewRemoteDetector(baseURL string) *RemoteDetector {
	return &RemoteDetector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// remoteFace is one detected face in the service response.
type remoteFace struct {
	BBox      [4]int    `json:"bbox"` // x1, y1, x2, y2 in pixels
	Embedding []float32 `json:"embedding"`
	Dim       int       `json:"dim"`
}

// DetectAndEmbed posts the image to the detector service.
func (d *RemoteDetector) DetectAndEmbed(img image.Image) ([]Detection, error) {
	var imgBuf bytes.Buffer
	if err := jpeg.Encode(&imgBuf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encoding frame for detection: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imgBuf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Faces []remoteFace `json:"faces"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detector response: %w", err)
	}

	detections := make([]Detection, 0, len(parsed.Faces))
	for _, f := range parsed.Faces {
		if len(f.Embedding) != EmbeddingDim {
			return nil, fmt.Errorf("detector returned %d-dim embedding, want %d", len(f.Embedding), EmbeddingDim)
		}
		detections = append(detections, Detection{
			Box:       image.Rect(f.BBox[0], f.BBox[1], f.BBox[2], f.BBox[3]),
			Embedding: f.Embedding,
		})
	}
	return detections, nil
}

// Close is a no-op; the remote service owns the model resources.
func (d *RemoteDetector) Close() error {
	return nil
}
