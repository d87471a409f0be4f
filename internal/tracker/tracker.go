package tracker

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/kozaktomas/person-tracker/internal/catalog"
	"github.com/kozaktomas/person-tracker/internal/gallery"
	"github.com/kozaktomas/person-tracker/internal/vision"
)

// FrameSource delivers frames from the capture device.
type FrameSource interface {
	Read() (image.Image, error)
	Close() error
}

// Detector finds faces and their embeddings in an encoded frame.
type Detector interface {
	DetectFaces(ctx context.Context, frameJPEG []byte) ([]vision.Detection, error)
}

// RenderFunc receives each cycle's frame and identity labels for display.
// Returning false stops tracking (the user closed the preview).
type RenderFunc func(frame image.Image, labels []vision.Label, totalIdentities int) (bool, error)

// Options wires the tracker's collaborators and policy values.
type Options struct {
	Store       *catalog.Store
	Gallery     *gallery.Gallery
	Source      FrameSource
	Detector    Detector
	Threshold   float64
	Interval    time.Duration
	CropPadding int
	CycleDelay  time.Duration
	Render      RenderFunc // optional
	Logger      *slog.Logger
}

// Tracker runs the per-frame cycle: detect, resolve each face to an
// identity, throttle-gate persistence, and keep gallery and catalog in
// step. Everything runs on one goroutine; cancellation is observed between
// cycles so an in-progress persist always completes.
type Tracker struct {
	opts      Options
	resolver  *Resolver
	throttler *Throttler
	captured  int
}

// New creates a tracker from the given options.
func New(opts Options) *Tracker {
	return &Tracker{
		opts:      opts,
		resolver:  NewResolver(opts.Gallery, opts.Threshold),
		throttler: NewThrottler(opts.Gallery, opts.Interval),
	}
}

// Run loops until the context is cancelled, the preview requests a stop, or
// the camera stops delivering frames. Teardown (camera release, ledger
// flush) runs exactly once on every exit path. The returned error is always
// nil today; setup failures are surfaced before Run is ever called.
func (t *Tracker) Run(ctx context.Context) error {
	log := t.opts.Logger
	log.Info("tracking started", "identities", t.opts.Gallery.Count())

	defer func() {
		if err := t.opts.Source.Close(); err != nil {
			log.Warn("closing frame source", "error", err)
		}
		if err := t.opts.Store.Flush(); err != nil {
			log.Warn("flushing ledger", "error", err)
		}
		log.Info("tracking stopped",
			"identities", t.opts.Gallery.Count(), "images_captured", t.captured)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("tracking cancelled")
			return nil
		default:
		}

		frame, err := t.opts.Source.Read()
		if err != nil {
			// A dead camera is unrecoverable within this process; end the
			// loop and tear down instead of retrying.
			log.Error("frame read failed, stopping", "error", err)
			return nil
		}

		labels := t.Cycle(ctx, frame, time.Now())

		if t.opts.Render != nil {
			keep, err := t.opts.Render(frame, labels, t.opts.Gallery.Count())
			if err != nil {
				log.Warn("rendering preview", "error", err)
			} else if !keep {
				log.Info("preview closed by user")
				return nil
			}
		}

		if !sleepCtx(ctx, t.opts.CycleDelay) {
			log.Info("tracking cancelled")
			return nil
		}
	}
}

// Cycle processes one frame: detect faces, resolve each to an identity,
// and persist throttled captures. Returns the identity labels for
// rendering. Failures inside a cycle are logged and absorbed; the loop's
// availability wins over strict completeness.
func (t *Tracker) Cycle(ctx context.Context, frame image.Image, now time.Time) []vision.Label {
	log := t.opts.Logger

	frameJPEG, err := vision.EncodeJPEG(frame)
	if err != nil {
		log.Warn("encoding frame", "error", err)
		return nil
	}

	detections, err := t.opts.Detector.DetectFaces(ctx, frameJPEG)
	if err != nil {
		log.Warn("face detection failed", "error", err)
		return nil
	}

	labels := make([]vision.Label, 0, len(detections))
	for _, det := range detections {
		id, isNew := t.resolver.Resolve(det.Embedding)
		name := catalog.IdentityName(id)
		if isNew {
			log.Info("registered new person", "identity", name)
		}

		if t.throttler.ShouldCapture(id, isNew, now) {
			t.capture(frame, det, id, now)
		}

		labels = append(labels, vision.Label{Region: det.Region, Name: name})
	}
	return labels
}

// capture persists one image and its ledger record. Any failure drops this
// capture and leaves the identity valid in the gallery; the throttle clock
// only restarts after a successful write.
func (t *Tracker) capture(frame image.Image, det vision.Detection, id int, now time.Time) {
	log := t.opts.Logger
	name := catalog.IdentityName(id)

	data, err := vision.EncodeCrop(frame, det.Region, t.opts.CropPadding)
	if err != nil {
		log.Warn("cropping face", "identity", name, "error", err)
		return
	}

	path, err := t.opts.Store.PersistImage(id, data, now)
	if err != nil {
		log.Warn("persisting image", "identity", name, "error", err)
		return
	}

	if err := t.opts.Store.UpsertLedger(id, now); err != nil {
		// The image is on disk; keep the ledger drift visible in the log
		// rather than deleting the capture.
		log.Warn("updating ledger", "identity", name, "error", err)
	}

	t.opts.Gallery.Touch(id, now)
	t.captured++
	log.Info("saved image", "identity", name, "path", path)
}

// Captured returns the number of images persisted during this run.
func (t *Tracker) Captured() int {
	return t.captured
}

// sleepCtx waits for the cycle delay, returning false if the context was
// cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
