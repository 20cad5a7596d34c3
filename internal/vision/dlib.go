package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/Kagami/go-face"
)

// DlibDetector runs dlib's HOG face detector and ResNet descriptor
// model in-process via go-face.
type DlibDetector struct {
	rec *face.Recognizer
}

// NewDlibDetector loads the dlib models from modelsDir. The directory
// must contain shape_predictor_5_face_landmarks.dat and
// dlib_face_recognition_resnet_model_v1.dat.
func NewDlibDetector(modelsDir string) (*DlibDetector, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading dlib models from %s: %w", modelsDir, err)
	}
	return &DlibDetector{rec: rec}, nil
}

// DetectAndEmbed returns one detection per face found in the image.
func (d *DlibDetector) DetectAndEmbed(img image.Image) ([]Detection, error) {
	// go-face only accepts JPEG input.
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encoding frame for detection: %w", err)
	}

	faces, err := d.rec.Recognize(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("running face detection: %w", err)
	}

	detections := make([]Detection, 0, len(faces))
	for _, f := range faces {
		embedding := make([]float32, EmbeddingDim)
		copy(embedding, f.Descriptor[:])
		detections = append(detections, Detection{
			Box:       f.Rectangle,
			Embedding: embedding,
		})
	}
	return detections, nil
}

// Close frees the dlib recognizer.
func (d *DlibDetector) Close() error {
	d.rec.Close()
	return nil
}
