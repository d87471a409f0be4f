// Package gallery holds the in-memory index of known identities: one
// founding reference embedding per identity plus the timestamp of its last
// persisted capture. Lookup is a linear scan, which is fine for the tens to
// low hundreds of identities a single camera accumulates.
package gallery

import "time"

// Entry is one identity's reference embedding. The embedding is set at
// registration and never replaced.
type Entry struct {
	ID        int
	Embedding []float32
}

// Gallery is not safe for concurrent mutation; the tracking loop is its
// single writer.
type Gallery struct {
	entries    []Entry
	lastUpdate map[int]time.Time
	nextID     int
}

// New creates an empty gallery. The first registered identity gets id 1.
func New() *Gallery {
	return &Gallery{
		lastUpdate: make(map[int]time.Time),
		nextID:     1,
	}
}

// Insert adds an identity with a known id, used when rebuilding the gallery
// from the on-disk catalog. The next id to allocate is recomputed as
// max(observed)+1 so a restart never collides with history, even when
// folders were deleted by hand and the id sequence has gaps.
func (g *Gallery) Insert(id int, embedding []float32) {
	g.entries = append(g.entries, Entry{ID: id, Embedding: embedding})
	if id >= g.nextID {
		g.nextID = id + 1
	}
}

// Register allocates the next identity id and stores the embedding as that
// identity's permanent reference.
func (g *Gallery) Register(embedding []float32) int {
	id := g.nextID
	g.nextID++
	g.entries = append(g.entries, Entry{ID: id, Embedding: embedding})
	return id
}

// FindNearest returns the identity whose reference embedding is closest to
// the query, with its distance. ok is false for an empty gallery. Ties go
// to the first entry in iteration order; callers must not depend on which.
func (g *Gallery) FindNearest(embedding []float32) (id int, distance float64, ok bool) {
	if len(g.entries) == 0 {
		return 0, 0, false
	}

	best := -1
	bestDist := 0.0
	for i := range g.entries {
		d := EuclideanDistance(g.entries[i].Embedding, embedding)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return g.entries[best].ID, bestDist, true
}

// Touch records the moment an image was persisted for the identity. Owned
// by the capture throttling path; nothing else mutates these timestamps.
func (g *Gallery) Touch(id int, now time.Time) {
	g.lastUpdate[id] = now
}

// LastUpdate returns the last persistence time for an identity. The zero
// time means no capture has happened this run, so the throttle lets the
// next one through.
func (g *Gallery) LastUpdate(id int) time.Time {
	return g.lastUpdate[id]
}

// Count returns the number of known identities.
func (g *Gallery) Count() int {
	return len(g.entries)
}

// Entries returns a copy of the identity entries in insertion order.
func (g *Gallery) Entries() []Entry {
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// NextID exposes the id that the next registration would take.
func (g *Gallery) NextID() int {
	return g.nextID
}
