package camera

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GocvDevice captures frames from a V4L2 webcam through OpenCV.
type GocvDevice struct {
	deviceID int
	width    int
	height   int

	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// NewGocvDevice creates a device for the given webcam index. Width and
// height are requested from the driver on Open; the driver may pick the
// nearest supported mode.
func NewGocvDevice(deviceID, width, height int) *GocvDevice {
	return &GocvDevice{deviceID: deviceID, width: width, height: height}
}

// Open opens the capture device.
func (d *GocvDevice) Open() error {
	capture, err := gocv.OpenVideoCapture(d.deviceID)
	if err != nil {
		return fmt.Errorf("failed to open video capture %d: %w", d.deviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("video capture %d is not opened", d.deviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(d.width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(d.height))

	d.capture = capture
	d.mat = gocv.NewMat()
	return nil
}

// Read grabs one frame and converts it to an image.Image.
func (d *GocvDevice) Read() (image.Image, error) {
	if d.capture == nil {
		return nil, fmt.Errorf("capture not opened")
	}
	if !d.capture.Read(&d.mat) || d.mat.Empty() {
		return nil, fmt.Errorf("could not read frame from device %d", d.deviceID)
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("could not convert frame: %w", err)
	}
	return img, nil
}

// Close releases the capture device.
func (d *GocvDevice) Close() error {
	if d.capture == nil {
		return nil
	}
	if err := d.mat.Close(); err != nil {
		return fmt.Errorf("closing frame buffer: %w", err)
	}
	capture := d.capture
	d.capture = nil
	if err := capture.Close(); err != nil {
		return fmt.Errorf("closing video capture: %w", err)
	}
	return nil
}
