// Package overlay renders recognition results onto frames before they
// are streamed: bounding boxes, name labels, and placeholder frames for
// error states.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	// ColorMatched marks recognized students.
	ColorMatched = color.RGBA{0, 200, 0, 255}
	// ColorUnknown marks faces that matched nobody.
	ColorUnknown = color.RGBA{220, 0, 0, 255}

	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{20, 20, 20, 255}
)

const (
	boxLineWidth = 2
	labelStripH  = 18
	labelPadding = 4
)

// Downsample shrinks the image by the given integer factor. Used to
// speed up detection; factor 1 returns a plain RGBA copy.
func Downsample(img image.Image, factor int) *image.RGBA {
	bounds := img.Bounds()
	if factor < 1 {
		factor = 1
	}
	w := bounds.Dx() / factor
	h := bounds.Dy() / factor
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// ScaleRect maps a box detected on a downsampled image back to the
// full-resolution frame.
func ScaleRect(r image.Rectangle, factor int) image.Rectangle {
	if factor < 1 {
		factor = 1
	}
	return image.Rect(r.Min.X*factor, r.Min.Y*factor, r.Max.X*factor, r.Max.Y*factor)
}

// Box is one annotation to draw: a face rectangle and its label.
type Box struct {
	Rect  image.Rectangle
	Label string
	Color color.RGBA
}

// Annotate draws the boxes and their label strips onto a copy of the
// frame. The input image is not modified.
func Annotate(frame image.Image, boxes []Box) *image.RGBA {
	bounds := frame.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, frame, bounds.Min, draw.Src)

	for _, b := range boxes {
		drawRect(dst, b.Rect, b.Color)
		drawLabel(dst, b.Rect, b.Label, b.Color)
	}
	return dst
}

func drawRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	for w := 0; w < boxLineWidth; w++ {
		drawHLine(dst, r.Min.X, r.Max.X, r.Min.Y+w, c)
		drawHLine(dst, r.Min.X, r.Max.X, r.Max.Y-w, c)
		drawVLine(dst, r.Min.Y, r.Max.Y, r.Min.X+w, c)
		drawVLine(dst, r.Min.Y, r.Max.Y, r.Max.X-w, c)
	}
}

// drawLabel fills a strip below the box and writes the label in white,
// so the text stays readable on any background.
func drawLabel(dst *image.RGBA, r image.Rectangle, label string, c color.RGBA) {
	if label == "" {
		return
	}
	strip := image.Rect(r.Min.X, r.Max.Y-labelStripH, r.Max.X, r.Max.Y)
	draw.Draw(dst, strip.Intersect(dst.Bounds()), &image.Uniform{c}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{white},
		Face: basicfont.Face7x13,
		Dot: fixed.P(
			r.Min.X+labelPadding,
			r.Max.Y-labelStripH/2+basicfont.Face7x13.Height/2-1,
		),
	}
	drawer.DrawString(label)
}

func drawHLine(dst *image.RGBA, x1, x2, y int, c color.RGBA) {
	bounds := dst.Bounds()
	if y < bounds.Min.Y || y >= bounds.Max.Y {
		return
	}
	for x := x1; x <= x2; x++ {
		if x >= bounds.Min.X && x < bounds.Max.X {
			dst.Set(x, y, c)
		}
	}
}

func drawVLine(dst *image.RGBA, y1, y2, x int, c color.RGBA) {
	bounds := dst.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X {
		return
	}
	for y := y1; y <= y2; y++ {
		if y >= bounds.Min.Y && y < bounds.Max.Y {
			dst.Set(x, y, c)
		}
	}
}

// ErrorFrame renders a dark placeholder with a centered message. Used
// when the camera is unavailable or already claimed by another viewer.
func ErrorFrame(width, height int, message string) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{black}, image.Point{}, draw.Src)

	textWidth := len(message) * basicfont.Face7x13.Advance
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{white},
		Face: basicfont.Face7x13,
		Dot:  fixed.P((width-textWidth)/2, height/2),
	}
	drawer.DrawString(message)
	return dst
}

// EncodeJPEG serializes the frame for the MJPEG stream.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("could not encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
