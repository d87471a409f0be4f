package tracker

import (
	"testing"

	"github.com/kozaktomas/person-tracker/internal/gallery"
)

func TestResolveEmptyGalleryRegisters(t *testing.T) {
	g := gallery.New()
	r := NewResolver(g, 0.6)

	id, isNew := r.Resolve([]float32{1, 2, 3})
	if !isNew {
		t.Error("first face on empty gallery must be new")
	}
	if id != 1 {
		t.Errorf("first id = %d; want 1", id)
	}
	if g.Count() != 1 {
		t.Errorf("gallery count = %d; want 1", g.Count())
	}
}

func TestResolveThresholdBoundary(t *testing.T) {
	const threshold = 0.6
	const epsilon = 1e-4

	tests := []struct {
		name      string
		query     []float32
		wantMatch bool
	}{
		{"well inside threshold", []float32{0.1, 0}, true},
		{"just below threshold", []float32{threshold - epsilon, 0}, true},
		{"exactly at threshold", []float32{threshold, 0}, false},
		{"just above threshold", []float32{threshold + epsilon, 0}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := gallery.New()
			ref := g.Register([]float32{0, 0})
			r := NewResolver(g, threshold)

			id, isNew := r.Resolve(tc.query)
			if tc.wantMatch {
				if isNew || id != ref {
					t.Errorf("Resolve = (%d, new=%v); want match to %d", id, isNew, ref)
				}
			} else {
				if !isNew || id == ref {
					t.Errorf("Resolve = (%d, new=%v); want a new identity", id, isNew)
				}
			}
		})
	}
}

func TestResolveMatchesNearestOfMany(t *testing.T) {
	g := gallery.New()
	g.Register([]float32{0, 0})
	b := g.Register([]float32{2, 0})
	r := NewResolver(g, 0.6)

	id, isNew := r.Resolve([]float32{2.1, 0})
	if isNew || id != b {
		t.Errorf("Resolve = (%d, new=%v); want match to %d", id, isNew, b)
	}
}

func TestResolveDistinctFacesGetDistinctIDs(t *testing.T) {
	g := gallery.New()
	r := NewResolver(g, 0.6)

	a, _ := r.Resolve([]float32{0, 0})
	b, _ := r.Resolve([]float32{5, 0})
	if a == b {
		t.Errorf("distinct faces resolved to the same identity %d", a)
	}
	if b <= a {
		t.Errorf("ids not strictly increasing: %d then %d", a, b)
	}
}
