// Package vision abstracts face detection and embedding extraction. The
// rest of the pipeline only sees DetectAndEmbed; production uses dlib
// via go-face, with an HTTP detector service as an alternative for
// deployments without the dlib toolchain.
package vision

import (
	"errors"
	"image"
)

// EmbeddingDim is the dimension of the face descriptors produced by the
// dlib ResNet model.
const EmbeddingDim = 128

// ErrNoFace is returned by single-face extraction when no face is found.
var ErrNoFace = errors.New("no face detected")

// ErrMultipleFaces is returned by single-face extraction when more than
// one face is found.
var ErrMultipleFaces = errors.New("multiple faces detected")

// Detection is one detected face: its bounding box in the analyzed
// image's pixel coordinates and its embedding vector.
type Detection struct {
	Box       image.Rectangle
	Embedding []float32
}

// Detector finds faces and computes their embeddings. Implementations
// must be deterministic per call and safe for use from a single
// long-lived goroutine.
type Detector interface {
	// DetectAndEmbed returns zero or more detections for the image.
	DetectAndEmbed(img image.Image) ([]Detection, error)
	// Close releases any model resources.
	Close() error
}

// ExtractSingle runs the detector and requires exactly one face,
// returning its embedding. Used by enrollment, where a profile photo
// with several people is a user error.
func ExtractSingle(det Detector, img image.Image) ([]float32, error) {
	detections, err := det.DetectAndEmbed(img)
	if err != nil {
		return nil, err
	}
	switch len(detections) {
	case 0:
		return nil, ErrNoFace
	case 1:
		return detections[0].Embedding, nil
	default:
		return nil, ErrMultipleFaces
	}
}
