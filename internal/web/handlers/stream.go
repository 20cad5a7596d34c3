package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/classwatch/classwatch/internal/camera"
	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/overlay"
	"github.com/classwatch/classwatch/internal/recognizer"
)

const mjpegBoundary = "frame"

// Pipeline is what the stream endpoints need from the recognizer.
type Pipeline interface {
	Stream(ctx context.Context, emit func(frame []byte) error) error
	Status() recognizer.Status
	SetEnabled(enabled bool)
	ReloadCache(ctx context.Context) error
}

// StreamHandler serves the live MJPEG feed and recognition controls
type StreamHandler struct {
	config   *config.Config
	pipeline Pipeline
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(cfg *config.Config, pipeline Pipeline) *StreamHandler {
	return &StreamHandler{
		config:   cfg,
		pipeline: pipeline,
	}
}

// writeFrame sends one JPEG as a multipart part and flushes it.
func writeFrame(w http.ResponseWriter, flusher http.Flusher, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// errorFrame renders a placeholder frame at the configured camera size.
func (h *StreamHandler) errorFrame(message string) []byte {
	img := overlay.ErrorFrame(h.config.Camera.Width, h.config.Camera.Height, message)
	data, err := overlay.EncodeJPEG(img, h.config.Recognition.JPEGQuality)
	if err != nil {
		log.Printf("encoding error frame: %v", err)
		return nil
	}
	return data
}

// VideoFeed streams annotated camera frames as MJPEG. When the camera
// is held by another viewer or fails, a placeholder frame is sent so
// the browser shows something instead of a broken image.
func (h *StreamHandler) VideoFeed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	w.Header().Set("Cache-Control", "no-store")

	err := h.pipeline.Stream(r.Context(), func(frame []byte) error {
		return writeFrame(w, flusher, frame)
	})
	switch {
	case err == nil:
		return
	case errors.Is(err, camera.ErrBusy):
		if frame := h.errorFrame("Camera in use by another viewer"); frame != nil {
			_ = writeFrame(w, flusher, frame)
		}
	default:
		log.Printf("video feed: %v", err)
		if frame := h.errorFrame("Camera unavailable"); frame != nil {
			_ = writeFrame(w, flusher, frame)
		}
	}
}

// Status reports the pipeline state.
func (h *StreamHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.pipeline.Status())
}

// Start enables recognition on the live feed.
func (h *StreamHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.pipeline.SetEnabled(true)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Stop disables recognition; the feed keeps streaming raw video.
func (h *StreamHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.pipeline.SetEnabled(false)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Reload refreshes the embedding cache from storage.
func (h *StreamHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.ReloadCache(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reload embeddings")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
