// Package catalog persists the durable identity database: one directory of
// timestamped images per identity plus a shared metadata ledger. It holds no
// matching logic; the gallery and resolver build on top of it.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const identityPrefix = "Person_"

// maxNameAttempts bounds the collision suffix search when several captures
// for one identity land within the same second.
const maxNameAttempts = 1000

// IdentityName returns the folder name for a numeric identity id.
func IdentityName(id int) string {
	return fmt.Sprintf("%s%d", identityPrefix, id)
}

// ParseIdentityName extracts the numeric id from a "Person_<n>" name.
func ParseIdentityName(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, identityPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// Reference is a reconstructed gallery entry: the founding embedding read
// back from an identity's representative image on disk.
type Reference struct {
	ID        int
	Name      string
	Embedding []float32
	ImagePath string
}

// EmbedFunc extracts a face embedding from stored image bytes. It is the
// external embedding collaborator, injected so the store stays pure I/O.
type EmbedFunc func(ctx context.Context, imageData []byte) ([]float32, error)

// Store is the file-system-backed catalog. It is not safe for concurrent
// mutation; all writes are serialized through the tracking loop.
type Store struct {
	root   string
	ledger Ledger
	logger *slog.Logger
}

// NewStore opens (creating if needed) the catalog at root and parses the
// ledger file. A corrupt ledger is replaced by an empty one with a warning;
// the image folders remain the source of truth for identities.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	ledger, err := readLedger(filepath.Join(root, LedgerFile))
	if err != nil {
		logger.Warn("ledger unreadable, starting with empty metadata", "error", err)
		ledger = Ledger{}
	}

	return &Store{
		root:   root,
		ledger: ledger,
		logger: logger,
	}, nil
}

// Root returns the database root path.
func (s *Store) Root() string {
	return s.root
}

// Load enumerates identity directories and reconstructs one reference per
// identity by embedding its first stored image. Directories with no readable
// image or no extractable embedding are skipped with a warning; they stay on
// disk and become visible again once a new image lands through the normal
// flow.
func (s *Store) Load(ctx context.Context, embed EmbedFunc) ([]Reference, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading database directory: %w", err)
	}

	var refs []Reference
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, ok := ParseIdentityName(entry.Name())
		if !ok {
			continue
		}

		imagePath, ok := s.firstImage(entry.Name())
		if !ok {
			s.logger.Warn("identity has no readable image, skipping", "identity", entry.Name())
			continue
		}

		data, err := os.ReadFile(imagePath)
		if err != nil {
			s.logger.Warn("could not read reference image, skipping identity",
				"identity", entry.Name(), "path", imagePath, "error", err)
			continue
		}

		embedding, err := embed(ctx, data)
		if err != nil {
			s.logger.Warn("could not extract reference embedding, skipping identity",
				"identity", entry.Name(), "path", imagePath, "error", err)
			continue
		}

		refs = append(refs, Reference{
			ID:        id,
			Name:      entry.Name(),
			Embedding: embedding,
			ImagePath: imagePath,
		})
		s.logger.Info("loaded existing identity", "identity", entry.Name())
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// IdentityDirs lists the identity directory names present on disk, sorted
// by numeric id.
func (s *Store) IdentityDirs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading database directory: %w", err)
	}

	var ids []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if id, ok := ParseIdentityName(entry.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = IdentityName(id)
	}
	return names, nil
}

// FirstImage returns the representative image path for an identity, if any.
func (s *Store) FirstImage(id int) (string, bool) {
	return s.firstImage(IdentityName(id))
}

func (s *Store) firstImage(name string) (string, bool) {
	dir := filepath.Join(s.root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isImageFile(entry.Name()) {
			images = append(images, entry.Name())
		}
	}
	if len(images) == 0 {
		return "", false
	}
	sort.Strings(images)
	return filepath.Join(dir, images[0]), true
}

// PersistImage writes a capture for an identity, creating its directory on
// first use. Filenames carry a second-resolution timestamp; a same-second
// collision gets a numeric suffix instead of overwriting the earlier file.
func (s *Store) PersistImage(id int, jpegData []byte, now time.Time) (string, error) {
	name := IdentityName(id)
	dir := filepath.Join(s.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating identity directory: %w", err)
	}

	base := fmt.Sprintf("%s_%s", name, now.Format("20060102_150405"))
	for seq := 0; seq < maxNameAttempts; seq++ {
		filename := base + ".jpg"
		if seq > 0 {
			filename = fmt.Sprintf("%s_%d.jpg", base, seq)
		}
		path := filepath.Join(dir, filename)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating image file: %w", err)
		}

		if _, err := f.Write(jpegData); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("writing image file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing image file: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free filename for %s at %s", name, base)
}

// UpsertLedger records a completed capture: first persistence creates the
// record, later ones increment the image count and bump last_seen. The
// ledger file is rewritten in full on every call.
func (s *Store) UpsertLedger(id int, now time.Time) error {
	name := IdentityName(id)
	rec, ok := s.ledger[name]
	if !ok {
		rec = Record{Created: now, TotalImages: 1, LastSeen: now}
	} else {
		rec.TotalImages++
		rec.LastSeen = now
	}
	s.ledger[name] = rec

	return s.ledger.write(filepath.Join(s.root, LedgerFile))
}

// RecordFor returns the ledger record for an identity, if present.
func (s *Store) RecordFor(id int) (Record, bool) {
	rec, ok := s.ledger[IdentityName(id)]
	return rec, ok
}

// Ledger returns a copy of the in-memory ledger.
func (s *Store) Ledger() Ledger {
	return s.ledger.Clone()
}

// CountImages counts the image files stored for an identity. A missing
// directory counts as zero: the identity may exist only in the gallery.
func (s *Store) CountImages(id int) int {
	dir := filepath.Join(s.root, IdentityName(id))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			count++
		}
	}
	return count
}

// Flush rewrites the ledger file. Called once during teardown so a run that
// never captured anything still leaves consistent metadata behind.
func (s *Store) Flush() error {
	return s.ledger.write(filepath.Join(s.root, LedgerFile))
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
