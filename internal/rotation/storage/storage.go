// Package storage persists the digest fingerprint between scheduler runs.
//
// The contract is deliberately loose: reads of missing state succeed with an
// empty fingerprint, and callers are expected to treat write failures as
// non-fatal. The state only suppresses duplicate notifications; losing it
// costs at most one redundant message.
package storage

// StateStore reads and writes the last dispatched digest fingerprint at a
// single storage location. Implementations must tolerate absent state.
type StateStore interface {
	// ReadFingerprint returns the last stored fingerprint, or "" if no state
	// has been written yet.
	ReadFingerprint() (string, error)

	// WriteFingerprint replaces the stored fingerprint.
	WriteFingerprint(fingerprint string) error
}
