package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// LedgerFile is the shared metadata file at the database root.
const LedgerFile = "metadata.json"

// Record is one ledger entry, keyed by identity name in metadata.json.
// The fields are advisory bookkeeping; matching never consults them.
type Record struct {
	Created     time.Time `json:"created"`
	TotalImages int       `json:"total_images"`
	LastSeen    time.Time `json:"last_seen"`
}

// Ledger maps identity names ("Person_3") to their records.
type Ledger map[string]Record

// readLedger parses the ledger file. A missing file yields an empty ledger.
func readLedger(path string) (Ledger, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	ledger := Ledger{}
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("parsing ledger: %w", err)
	}
	return ledger, nil
}

// write rewrites the ledger file in full. Writing to a temp file and
// renaming keeps a reader from ever observing a partial document.
func (l Ledger) write(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}

// Clone returns a copy safe to hand to callers.
func (l Ledger) Clone() Ledger {
	c := make(Ledger, len(l))
	for name, rec := range l {
		c[name] = rec
	}
	return c
}
