package tracker

import (
	"time"

	"github.com/kozaktomas/person-tracker/internal/gallery"
)

// Throttler bounds how often imagery is persisted per identity.
type Throttler struct {
	gallery  *gallery.Gallery
	interval time.Duration
}

// NewThrottler creates a throttler with the given minimum interval between
// captures of the same identity.
func NewThrottler(g *gallery.Gallery, interval time.Duration) *Throttler {
	return &Throttler{gallery: g, interval: interval}
}

// ShouldCapture reports whether an image should be persisted now. Newly
// registered identities always capture immediately. On true, the caller
// must Touch the gallery after the write completes so the interval restarts
// from the persistence moment, not the detection moment.
func (t *Throttler) ShouldCapture(id int, isNew bool, now time.Time) bool {
	if isNew {
		return true
	}
	return now.Sub(t.gallery.LastUpdate(id)) >= t.interval
}
