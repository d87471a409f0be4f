package gallery

import (
	"math"
	"testing"
	"time"
)

func TestFindNearestEmptyGallery(t *testing.T) {
	g := New()

	_, _, ok := g.FindNearest([]float32{1, 2, 3})
	if ok {
		t.Error("FindNearest on empty gallery reported a match")
	}
}

func TestFindNearestPicksMinimum(t *testing.T) {
	g := New()
	a := g.Register([]float32{0, 0})
	b := g.Register([]float32{10, 0})

	id, dist, ok := g.FindNearest([]float32{9, 0})
	if !ok {
		t.Fatal("expected a match")
	}
	if id != b {
		t.Errorf("nearest id = %d; want %d", id, b)
	}
	if math.Abs(dist-1.0) > 1e-9 {
		t.Errorf("distance = %v; want 1.0", dist)
	}

	id, _, _ = g.FindNearest([]float32{1, 0})
	if id != a {
		t.Errorf("nearest id = %d; want %d", id, a)
	}
}

func TestFindNearestTieGoesToFirstInserted(t *testing.T) {
	g := New()
	first := g.Register([]float32{1, 0})
	g.Register([]float32{-1, 0})

	// The query is equidistant from both references.
	id, _, ok := g.FindNearest([]float32{0, 0})
	if !ok {
		t.Fatal("expected a match")
	}
	if id != first {
		t.Errorf("tie resolved to %d; want first-inserted %d", id, first)
	}
}

func TestRegisterAllocatesIncreasingIDs(t *testing.T) {
	g := New()

	prev := 0
	for i := 0; i < 5; i++ {
		id := g.Register([]float32{float32(i)})
		if id <= prev {
			t.Fatalf("id %d not strictly greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestInsertRecomputesNextIDAcrossGaps(t *testing.T) {
	g := New()
	// Simulates a reload where Person_2 was deleted by hand: only 1 and 5
	// survive on disk.
	g.Insert(1, []float32{1})
	g.Insert(5, []float32{2})

	if g.NextID() != 6 {
		t.Errorf("NextID = %d; want 6 (max observed + 1)", g.NextID())
	}
	if id := g.Register([]float32{3}); id != 6 {
		t.Errorf("Register allocated %d; want 6", id)
	}
}

func TestInsertOrderDoesNotLowerNextID(t *testing.T) {
	g := New()
	g.Insert(7, []float32{1})
	g.Insert(2, []float32{2})

	if g.NextID() != 8 {
		t.Errorf("NextID = %d; want 8", g.NextID())
	}
}

func TestTouchAndLastUpdate(t *testing.T) {
	g := New()
	id := g.Register([]float32{1})

	if !g.LastUpdate(id).IsZero() {
		t.Error("LastUpdate should be zero before any Touch")
	}

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	g.Touch(id, now)
	if got := g.LastUpdate(id); !got.Equal(now) {
		t.Errorf("LastUpdate = %v; want %v", got, now)
	}
}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit apart", []float32{0, 0}, []float32{1, 0}, 1},
		{"3-4-5", []float32{0, 0}, []float32{3, 4}, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EuclideanDistance(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("EuclideanDistance = %v; want %v", got, tc.want)
			}
		})
	}

	t.Run("length mismatch is infinite", func(t *testing.T) {
		if d := EuclideanDistance([]float32{1}, []float32{1, 2}); !math.IsInf(d, 1) {
			t.Errorf("distance = %v; want +Inf", d)
		}
	})
	t.Run("empty vectors are infinite", func(t *testing.T) {
		if d := EuclideanDistance(nil, nil); !math.IsInf(d, 1) {
			t.Errorf("distance = %v; want +Inf", d)
		}
	})
}

func TestSimilarIndexSearch(t *testing.T) {
	g := New()
	g.Insert(1, []float32{0, 0})
	g.Insert(2, []float32{1, 0})
	g.Insert(3, []float32{10, 10})

	idx, err := BuildSimilarIndex(g.Entries())
	if err != nil {
		t.Fatalf("BuildSimilarIndex failed: %v", err)
	}

	neighbors := idx.Search([]float32{0.9, 0}, 2)
	if len(neighbors) != 2 {
		t.Fatalf("got %d neighbors; want 2", len(neighbors))
	}
	if neighbors[0].ID != 2 {
		t.Errorf("closest neighbor = %d; want 2", neighbors[0].ID)
	}
	if math.Abs(neighbors[0].Distance-0.1) > 1e-6 {
		t.Errorf("closest distance = %v; want 0.1", neighbors[0].Distance)
	}
}

func TestSimilarIndexEmpty(t *testing.T) {
	if _, err := BuildSimilarIndex(nil); err == nil {
		t.Error("BuildSimilarIndex on empty entries should fail")
	}
}
