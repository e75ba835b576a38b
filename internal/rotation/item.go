// Package rotation implements the password-rotation evaluation engine:
// normalizing Vaultwarden ciphers, selecting items due for rotation under a
// policy, de-duplicating repeat runs via a digest fingerprint, and dispatching
// notifications.
package rotation

import (
	"strings"
	"time"
)

// ItemRecord is the wire shape of a cipher as returned by the Vaultwarden
// API. Only the fields the scheduler cares about are decoded.
type ItemRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	Type           int    `json:"type"`

	// Collection membership arrives either as a list or, from older
	// servers, as a single scalar field.
	CollectionIDs []string `json:"collectionIds"`
	CollectionID  string   `json:"collectionId"`

	RevisionDate string `json:"revisionDate"`

	// Two field names may carry the rotation timestamp; the first
	// non-empty one wins.
	PasswordRotation     string `json:"passwordRotation"`
	LastPasswordRotation string `json:"lastPasswordRotation"`
}

// VaultItem is the normalized, immutable view of a cipher used by the
// selection and dispatch logic.
type VaultItem struct {
	ID            string
	Name          string
	UserID        string
	CipherType    int
	CollectionIDs []string
	RevisionDate  time.Time
	LastRotatedAt *time.Time
}

// EffectiveRotationSource returns the timestamp rotation cadence is measured
// from: the last deliberate rotation when known, otherwise the revision date.
// Never zero for items built through NewVaultItem.
func (v VaultItem) EffectiveRotationSource() time.Time {
	if v.LastRotatedAt != nil {
		return *v.LastRotatedAt
	}
	return v.RevisionDate
}

// timestampLayouts are tried after RFC3339. Values matching these carry no
// offset and are assumed UTC. Go's parser accepts a fractional seconds field
// even when the layout omits one.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp formats Vaultwarden has emitted over
// time. Returns nil for empty or unparseable input; malformed timestamps
// never abort an evaluation run.
func ParseTimestamp(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// NewVaultItem normalizes a raw cipher record. Malformed fields degrade to
// defined fallbacks instead of failing: a missing or unparseable revision
// date becomes now, an unparseable rotation timestamp becomes absent, and a
// missing name falls back to the organization id, then a placeholder.
func NewVaultItem(rec ItemRecord, now time.Time) VaultItem {
	name := rec.Name
	if name == "" {
		name = rec.OrganizationID
	}
	if name == "" {
		name = "Unnamed entry"
	}

	revision := now
	if ts := ParseTimestamp(rec.RevisionDate); ts != nil {
		revision = *ts
	}

	lastRotated := ParseTimestamp(rec.PasswordRotation)
	if lastRotated == nil {
		lastRotated = ParseTimestamp(rec.LastPasswordRotation)
	}

	return VaultItem{
		ID:            rec.ID,
		Name:          name,
		UserID:        rec.UserID,
		CipherType:    rec.Type,
		CollectionIDs: normalizeCollections(rec),
		RevisionDate:  revision,
		LastRotatedAt: lastRotated,
	}
}

// normalizeCollections merges the list and legacy scalar collection fields
// into a duplicate-free set.
func normalizeCollections(rec ItemRecord) []string {
	seen := make(map[string]struct{}, len(rec.CollectionIDs)+1)
	out := make([]string, 0, len(rec.CollectionIDs)+1)

	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, id := range rec.CollectionIDs {
		add(id)
	}
	add(rec.CollectionID)
	return out
}
