// Package tracker contains the identity resolution core: the matching
// policy that assigns detected faces to identities, the capture throttle,
// and the frame loop that drives both against the gallery and catalog.
package tracker

import "github.com/kozaktomas/person-tracker/internal/gallery"

// Resolver assigns a detected face embedding to an existing identity or
// mints a new one.
type Resolver struct {
	gallery   *gallery.Gallery
	threshold float64
}

// NewResolver creates a resolver over the given gallery. threshold is the
// maximum embedding distance still considered the same person; lower is
// stricter.
func NewResolver(g *gallery.Gallery, threshold float64) *Resolver {
	return &Resolver{gallery: g, threshold: threshold}
}

// Resolve returns the identity for the embedding and whether it was newly
// registered. A face matches only when its nearest neighbor lies strictly
// below the threshold; a distance of exactly the threshold registers a new
// identity.
func (r *Resolver) Resolve(embedding []float32) (id int, isNew bool) {
	nearest, distance, ok := r.gallery.FindNearest(embedding)
	if ok && distance < r.threshold {
		return nearest, false
	}
	return r.gallery.Register(embedding), true
}
