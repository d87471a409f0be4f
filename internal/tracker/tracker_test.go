package tracker

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/person-tracker/internal/catalog"
	"github.com/kozaktomas/person-tracker/internal/gallery"
	"github.com/kozaktomas/person-tracker/internal/vision"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

var testRegion = vision.Region{Top: 100, Right: 300, Bottom: 300, Left: 100}

// fakeDetector returns one prepared detection list per call.
type fakeDetector struct {
	results [][]vision.Detection
	calls   int
}

func (d *fakeDetector) DetectFaces(_ context.Context, _ []byte) ([]vision.Detection, error) {
	if d.calls >= len(d.results) {
		return nil, nil
	}
	res := d.results[d.calls]
	d.calls++
	return res, nil
}

// fakeSource serves a fixed number of frames, then fails like a dead camera.
type fakeSource struct {
	frames int
	closed bool
}

func (s *fakeSource) Read() (image.Image, error) {
	if s.frames <= 0 {
		return nil, vision.ErrFrameRead
	}
	s.frames--
	return testFrame(), nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func newTestTracker(t *testing.T, det Detector) (*Tracker, *catalog.Store, *gallery.Gallery) {
	t.Helper()
	store, err := catalog.NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	g := gallery.New()
	tr := New(Options{
		Store:       store,
		Gallery:     g,
		Source:      &fakeSource{},
		Detector:    det,
		Threshold:   0.6,
		Interval:    300 * time.Second,
		CropPadding: 50,
		Logger:      testLogger(),
	})
	return tr, store, g
}

func detection(embedding []float32) vision.Detection {
	return vision.Detection{Region: testRegion, Confidence: 0.9, Embedding: embedding}
}

// Mirrors the expected end-to-end behavior on an empty catalog: two distinct
// faces each get an identity and an image; a re-sighting of the first face
// matches but is throttled.
func TestCycleEndToEndScenario(t *testing.T) {
	e1 := []float32{0, 0}
	e2 := []float32{0.9, 0} // 0.9 from e1: new person
	e3 := []float32{0.1, 0} // 0.1 from e1: same person, throttled

	det := &fakeDetector{results: [][]vision.Detection{
		{detection(e1)},
		{detection(e2)},
		{detection(e3)},
	}}
	tr, store, g := newTestTracker(t, det)

	ctx := context.Background()
	frame := testFrame()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	labels1 := tr.Cycle(ctx, frame, now)
	labels2 := tr.Cycle(ctx, frame, now)
	labels3 := tr.Cycle(ctx, frame, now.Add(time.Second))

	if len(labels1) != 1 || labels1[0].Name != "Person_1" {
		t.Errorf("first cycle labels = %+v; want Person_1", labels1)
	}
	if len(labels2) != 1 || labels2[0].Name != "Person_2" {
		t.Errorf("second cycle labels = %+v; want Person_2", labels2)
	}
	if len(labels3) != 1 || labels3[0].Name != "Person_1" {
		t.Errorf("third cycle labels = %+v; want Person_1 again", labels3)
	}

	if g.Count() != 2 {
		t.Errorf("gallery count = %d; want 2", g.Count())
	}
	if store.CountImages(1) != 1 {
		t.Errorf("Person_1 images = %d; want 1 (third sighting throttled)", store.CountImages(1))
	}
	if store.CountImages(2) != 1 {
		t.Errorf("Person_2 images = %d; want 1", store.CountImages(2))
	}

	rec, ok := store.RecordFor(1)
	if !ok {
		t.Fatal("Person_1 missing from ledger")
	}
	if rec.TotalImages != 1 {
		t.Errorf("Person_1 total_images = %d; want 1", rec.TotalImages)
	}
}

func TestCycleCapturesAgainAfterInterval(t *testing.T) {
	e := []float32{0, 0}
	det := &fakeDetector{results: [][]vision.Detection{
		{detection(e)},
		{detection(e)},
	}}
	tr, store, _ := newTestTracker(t, det)

	ctx := context.Background()
	frame := testFrame()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tr.Cycle(ctx, frame, now)
	tr.Cycle(ctx, frame, now.Add(301*time.Second))

	if got := store.CountImages(1); got != 2 {
		t.Errorf("Person_1 images = %d; want 2 after interval elapsed", got)
	}
	rec, _ := store.RecordFor(1)
	if rec.TotalImages != 2 {
		t.Errorf("ledger total_images = %d; want 2", rec.TotalImages)
	}
	if !rec.LastSeen.Equal(now.Add(301 * time.Second)) {
		t.Errorf("last_seen = %v; want persistence time", rec.LastSeen)
	}
}

func TestCycleMultipleFacesInOneFrame(t *testing.T) {
	det := &fakeDetector{results: [][]vision.Detection{
		{detection([]float32{0, 0}), detection([]float32{5, 0})},
	}}
	tr, store, g := newTestTracker(t, det)

	labels := tr.Cycle(context.Background(), testFrame(), time.Now())

	if len(labels) != 2 {
		t.Fatalf("got %d labels; want 2", len(labels))
	}
	if g.Count() != 2 {
		t.Errorf("gallery count = %d; want 2", g.Count())
	}
	if store.CountImages(1) != 1 || store.CountImages(2) != 1 {
		t.Error("both new identities should capture their first image immediately")
	}
}

func TestCycleDetectionFailureIsAbsorbed(t *testing.T) {
	tr, _, g := newTestTracker(t, failingDetector{})

	labels := tr.Cycle(context.Background(), testFrame(), time.Now())
	if labels != nil {
		t.Errorf("labels = %v; want nil on detection failure", labels)
	}
	if g.Count() != 0 {
		t.Errorf("gallery count = %d; want 0", g.Count())
	}
}

type failingDetector struct{}

func (failingDetector) DetectFaces(context.Context, []byte) ([]vision.Detection, error) {
	return nil, errors.New("detector offline")
}

func TestRunStopsOnFrameReadFailureAndTearsDown(t *testing.T) {
	store, err := catalog.NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{frames: 2}
	det := &fakeDetector{results: [][]vision.Detection{
		{detection([]float32{0, 0})},
	}}

	tr := New(Options{
		Store:       store,
		Gallery:     gallery.New(),
		Source:      src,
		Detector:    det,
		Threshold:   0.6,
		Interval:    300 * time.Second,
		CropPadding: 50,
		Logger:      testLogger(),
	})

	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v; frame-read failure is not a process error", err)
	}
	if !src.closed {
		t.Error("frame source was not closed during teardown")
	}
	if _, err := os.Stat(filepath.Join(store.Root(), catalog.LedgerFile)); err != nil {
		t.Errorf("ledger not flushed during teardown: %v", err)
	}
	if tr.Captured() != 1 {
		t.Errorf("captured = %d; want 1", tr.Captured())
	}
}

func TestRunObservesCancellation(t *testing.T) {
	store, err := catalog.NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{frames: 1 << 30}

	tr := New(Options{
		Store:       store,
		Gallery:     gallery.New(),
		Source:      src,
		Detector:    &fakeDetector{},
		Threshold:   0.6,
		Interval:    300 * time.Second,
		CropPadding: 50,
		CycleDelay:  time.Millisecond,
		Logger:      testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v on cancellation; want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if !src.closed {
		t.Error("frame source was not closed after cancellation")
	}
}

func TestRunStopsWhenRenderRequestsQuit(t *testing.T) {
	store, err := catalog.NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{frames: 1 << 30}
	renders := 0

	tr := New(Options{
		Store:       store,
		Gallery:     gallery.New(),
		Source:      src,
		Detector:    &fakeDetector{},
		Threshold:   0.6,
		Interval:    300 * time.Second,
		CropPadding: 50,
		Logger:      testLogger(),
		Render: func(_ image.Image, _ []vision.Label, _ int) (bool, error) {
			renders++
			return renders < 3, nil
		},
	})

	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if renders != 3 {
		t.Errorf("render called %d times; want 3", renders)
	}
}

func TestCollectStatistics(t *testing.T) {
	det := &fakeDetector{results: [][]vision.Detection{
		{detection([]float32{0, 0})},
		{detection([]float32{5, 0})},
	}}
	tr, store, g := newTestTracker(t, det)

	ctx := context.Background()
	now := time.Now()
	tr.Cycle(ctx, testFrame(), now)
	tr.Cycle(ctx, testFrame(), now)

	stats := Collect(g, store)
	if stats.TotalPersons != 2 {
		t.Errorf("TotalPersons = %d; want 2", stats.TotalPersons)
	}
	if len(stats.Persons) != 2 {
		t.Fatalf("Persons has %d entries; want 2", len(stats.Persons))
	}
	if stats.Persons["Person_1"].TotalImages != 1 {
		t.Errorf("Person_1 TotalImages = %d; want 1", stats.Persons["Person_1"].TotalImages)
	}

	offline, err := CollectOffline(store)
	if err != nil {
		t.Fatalf("CollectOffline failed: %v", err)
	}
	if offline.TotalPersons != 2 {
		t.Errorf("offline TotalPersons = %d; want 2", offline.TotalPersons)
	}
}
