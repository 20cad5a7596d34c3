package cmd

import (
	"fmt"

	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/vision"
)

// openDetector picks the face detector: the HTTP service when
// VISION_URL is set, otherwise in-process dlib.
func openDetector(cfg *config.Config) (vision.Detector, error) {
	if cfg.Vision.URL != "" {
		fmt.Printf("Using remote face detector at %s\n", cfg.Vision.URL)
		return vision.NewRemoteDetector(cfg.Vision.URL), nil
	}
	return vision.NewDlibDetector(cfg.Vision.ModelsDir)
}
