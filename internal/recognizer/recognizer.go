// Package recognizer runs the live recognition loop: read a frame,
// detect faces on a downsampled copy, match them against the enrolled
// embeddings, mark attendance, and hand the annotated frame to the
// stream writer.
package recognizer

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classwatch/classwatch/internal/camera"
	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/dedup"
	"github.com/classwatch/classwatch/internal/encodings"
	"github.com/classwatch/classwatch/internal/match"
	"github.com/classwatch/classwatch/internal/overlay"
	"github.com/classwatch/classwatch/internal/storage"
	"github.com/classwatch/classwatch/internal/vision"
)

// Recognizer owns the moving parts of the live pipeline. One instance
// serves the whole process; concurrent streams are refused at the
// camera manager.
type Recognizer struct {
	cameras  *camera.Manager
	detector vision.Detector
	cache    *encodings.Cache
	engine   *match.Engine
	gate     *dedup.Gate
	ledger   storage.AttendanceLedger
	cfg      config.RecognitionConfig

	now func() time.Time

	mu      sync.Mutex
	enabled bool
}

// New wires a recognizer from its components.
func New(
	cameras *camera.Manager,
	detector vision.Detector,
	cache *encodings.Cache,
	engine *match.Engine,
	gate *dedup.Gate,
	ledger storage.AttendanceLedger,
	cfg config.RecognitionConfig,
) *Recognizer {
	return &Recognizer{
		cameras:  cameras,
		detector: detector,
		cache:    cache,
		engine:   engine,
		gate:     gate,
		ledger:   ledger,
		cfg:      cfg,
		now:      time.Now,
		enabled:  true,
	}
}

// SetEnabled toggles recognition. A disabled recognizer still streams
// video, it just skips detection and marking.
func (r *Recognizer) SetEnabled(enabled bool) {
	r.mu.Lock()
	r.enabled = enabled
	r.mu.Unlock()
	log.Printf("recognition enabled=%v", enabled)
}

// Enabled reports whether detection and marking are active.
func (r *Recognizer) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Status is a point-in-time view for the status endpoint.
type Status struct {
	Streaming      bool `json:"streaming"`
	Enabled        bool `json:"recognition_enabled"`
	EnrolledCount  int  `json:"enrolled_count"`
	ConfirmedToday int  `json:"confirmed_today"`
}

// Status reports the current pipeline state.
func (r *Recognizer) Status() Status {
	return Status{
		Streaming:      r.cameras.Busy(),
		Enabled:        r.Enabled(),
		EnrolledCount:  r.cache.Snapshot().Len(),
		ConfirmedToday: r.gate.Size(),
	}
}

// ReloadCache refreshes the embedding cache from storage. Called after
// enrollment changes.
func (r *Recognizer) ReloadCache(ctx context.Context) error {
	return r.cache.Reload(ctx)
}

// Stream acquires the camera and runs the loop, calling emit with one
// encoded JPEG per frame. It returns camera.ErrBusy when another stream
// holds the device, and nil when the context ends or the client goes
// away (emit returns an error).
func (r *Recognizer) Stream(ctx context.Context, emit func(frame []byte) error) error {
	session, err := r.cameras.Acquire()
	if err != nil {
		return err
	}
	defer session.Release()

	streamID := uuid.NewString()
	log.Printf("stream %s: started", streamID)
	defer log.Printf("stream %s: ended", streamID)

	r.gate.ResetIfNewDay()

	var (
		readFailures int
		frameNo      int
		lastBoxes    []overlay.Box
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := session.ReadFrame()
		if err != nil {
			readFailures++
			log.Printf("stream %s: %v (%d consecutive)", streamID, err, readFailures)
			if readFailures >= r.cfg.MaxReadFailures {
				session.Fail()
				return fmt.Errorf("camera failed after %d consecutive read errors", readFailures)
			}
			continue
		}
		readFailures = 0
		frameNo++

		if r.Enabled() {
			if frameNo%r.cfg.FrameStride == 1 || r.cfg.FrameStride <= 1 {
				lastBoxes = r.analyze(ctx, streamID, frame)
			}
		} else {
			lastBoxes = nil
		}

		annotated := overlay.Annotate(frame, lastBoxes)
		data, err := overlay.EncodeJPEG(annotated, r.cfg.JPEGQuality)
		if err != nil {
			log.Printf("stream %s: %v", streamID, err)
			continue
		}
		if err := emit(data); err != nil {
			// Client disconnected.
			return nil
		}
	}
}

// analyze detects faces on the downsampled frame, matches them, and
// applies the marking policy. Returns the annotations scaled back to
// full resolution.
func (r *Recognizer) analyze(ctx context.Context, streamID string, frame image.Image) []overlay.Box {
	small := overlay.Downsample(frame, r.cfg.Downsample)
	detections, err := r.detector.DetectAndEmbed(small)
	if err != nil {
		log.Printf("stream %s: detection failed: %v", streamID, err)
		return nil
	}

	snap := r.cache.Snapshot()
	boxes := make([]overlay.Box, 0, len(detections))
	for _, det := range detections {
		rect := overlay.ScaleRect(det.Box, r.cfg.Downsample)

		res, ok := r.engine.Best(snap, det.Embedding)
		if !ok {
			boxes = append(boxes, overlay.Box{Rect: rect, Label: "Unknown", Color: overlay.ColorUnknown})
			continue
		}

		label := r.mark(ctx, streamID, res)
		boxes = append(boxes, overlay.Box{Rect: rect, Label: label, Color: overlay.ColorMatched})
	}
	return boxes
}

// mark settles attendance for a matched student and returns the label
// to render. The in-memory gate avoids hitting the ledger once a
// student is confirmed for the day; the ledger's unique constraint is
// the real duplicate guard.
func (r *Recognizer) mark(ctx context.Context, streamID string, res match.Result) string {
	markedLabel := res.Name + " (Attendance Marked)"

	if r.gate.AlreadyConfirmed(res.StudentID) {
		return markedLabel
	}

	date := r.now().Format(storage.DateFormat)
	has, err := r.ledger.HasEvent(ctx, res.StudentID, date)
	if err != nil {
		log.Printf("stream %s: attendance lookup for %s: %v", streamID, res.StudentID, err)
		return res.Name
	}
	if has {
		r.gate.Confirm(res.StudentID)
		return markedLabel
	}

	confidence := res.Confidence
	outcome, err := r.ledger.Mark(ctx, storage.Mark{
		StudentID:  res.StudentID,
		Date:       date,
		Time:       r.now().Format(storage.TimeFormat),
		Status:     storage.StatusPresent,
		Method:     storage.MethodRecognition,
		Confidence: &confidence,
	})
	if err != nil {
		log.Printf("stream %s: marking %s: %v", streamID, res.StudentID, err)
		return res.Name
	}

	r.gate.Confirm(res.StudentID)
	if outcome == storage.MarkCreated {
		log.Printf("stream %s: marked %s (%s) confidence %.2f", streamID, res.StudentID, res.Name, res.Confidence)
		return fmt.Sprintf("%s (%.2f)", res.Name, res.Confidence)
	}
	return markedLabel
}
