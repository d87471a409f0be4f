package tracker

import (
	"github.com/kozaktomas/person-tracker/internal/catalog"
	"github.com/kozaktomas/person-tracker/internal/gallery"
)

// PersonStats combines the on-disk image count with the ledger record for
// one identity.
type PersonStats struct {
	TotalImages int            `json:"total_images"`
	Metadata    catalog.Record `json:"metadata"`
}

// Statistics is an on-demand snapshot of the whole catalog; nothing here is
// persisted separately.
type Statistics struct {
	TotalPersons int                    `json:"total_persons"`
	DatabasePath string                 `json:"database_path"`
	Persons      map[string]PersonStats `json:"persons"`
}

// Collect builds statistics from the live gallery plus catalog state.
func Collect(g *gallery.Gallery, store *catalog.Store) Statistics {
	stats := Statistics{
		TotalPersons: g.Count(),
		DatabasePath: store.Root(),
		Persons:      make(map[string]PersonStats),
	}

	for _, entry := range g.Entries() {
		name := catalog.IdentityName(entry.ID)
		rec, _ := store.RecordFor(entry.ID)
		stats.Persons[name] = PersonStats{
			TotalImages: store.CountImages(entry.ID),
			Metadata:    rec,
		}
	}
	return stats
}

// CollectOffline builds statistics from disk state alone, for commands that
// run without the embedding service (and therefore without a gallery).
func CollectOffline(store *catalog.Store) (Statistics, error) {
	names, err := store.IdentityDirs()
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		TotalPersons: len(names),
		DatabasePath: store.Root(),
		Persons:      make(map[string]PersonStats),
	}
	for _, name := range names {
		id, ok := catalog.ParseIdentityName(name)
		if !ok {
			continue
		}
		rec, _ := store.RecordFor(id)
		stats.Persons[name] = PersonStats{
			TotalImages: store.CountImages(id),
			Metadata:    rec,
		}
	}
	return stats, nil
}
