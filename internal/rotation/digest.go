package rotation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/keeperops/vaultward/internal/logging"
	"github.com/keeperops/vaultward/internal/rotation/storage"
)

// digestEntry is the canonical per-candidate input to the fingerprint. Field
// order is fixed by the struct, so the encoding never depends on map
// iteration order.
type digestEntry struct {
	ID  string `json:"id"`
	Due string `json:"due"`
}

// Fingerprint reduces a candidate set to a stable SHA-256 hex digest of its
// (item id, due timestamp) pairs. Invariant: the fingerprint must not depend
// on input ordering. The pair list is sorted before hashing, and due
// timestamps are rendered as RFC3339 UTC so equal instants in different
// zones compare equal.
func Fingerprint(candidates []Candidate) string {
	entries := make([]digestEntry, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, digestEntry{
			ID:  c.Item.ID,
			Due: c.DueAt.UTC().Format(time.RFC3339),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ID != entries[j].ID {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Due < entries[j].Due
	})

	// Marshal cannot fail for this shape.
	payload, _ := json.Marshal(entries)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Tracker suppresses duplicate digest notifications across runs by comparing
// the current fingerprint against the persisted one.
type Tracker struct {
	store  storage.StateStore
	logger *logging.Logger
}

// NewTracker creates a tracker over the given state store.
func NewTracker(store storage.StateStore, logger *logging.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// HasChanged reports whether the fingerprint differs from the stored one,
// persisting the new value when it does. Persistence is best-effort both
// ways: a read failure counts as "no prior state" and a write failure is
// logged and ignored. Losing the state only risks one redundant
// notification, never a missed one.
func (t *Tracker) HasChanged(fingerprint string) bool {
	prev, err := t.store.ReadFingerprint()
	if err != nil {
		t.logger.Warn("could not read digest state, assuming changed: %v", err)
		prev = ""
	}

	if fingerprint == prev {
		return false
	}

	if err := t.store.WriteFingerprint(fingerprint); err != nil {
		t.logger.Warn("could not persist digest state: %v", err)
	}
	return true
}
