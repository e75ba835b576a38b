package rotation

import (
	"fmt"
	"strings"
	"time"

	vwerrors "github.com/keeperops/vaultward/internal/errors"
)

// Policy defines when an item becomes due for password rotation and which
// items are considered at all. Immutable once built.
type Policy struct {
	// FrequencyDays is the interval after which rotation is due. Must be
	// positive.
	FrequencyDays int

	// GracePeriodDays is how many days before the hard due date reminders
	// may already fire. Zero means reminder and deadline coincide.
	GracePeriodDays int

	// TargetCollections and TargetUsers are optional allow-lists. When set,
	// only matching items are considered; both filters are ANDed when both
	// are configured.
	TargetCollections []string
	TargetUsers       []string

	// SendDigest selects digest mode: one combined notification per run
	// instead of one per recipient.
	SendDigest bool
}

// Validate checks the policy for internally consistent values.
func (p Policy) Validate() error {
	if p.FrequencyDays <= 0 {
		return vwerrors.ConfigError{
			Field:      "ROTATION_FREQUENCY_DAYS",
			Value:      p.FrequencyDays,
			Message:    "must be greater than zero",
			Suggestion: "Set the rotation interval in days, e.g. 90",
		}
	}
	if p.GracePeriodDays < 0 {
		return vwerrors.ConfigError{
			Field:   "ROTATION_GRACE_PERIOD_DAYS",
			Value:   p.GracePeriodDays,
			Message: "must not be negative",
		}
	}
	if p.GracePeriodDays > p.FrequencyDays {
		return vwerrors.ConfigError{
			Field:      "ROTATION_GRACE_PERIOD_DAYS",
			Value:      p.GracePeriodDays,
			Message:    "must not exceed the rotation frequency",
			Suggestion: "Pick a grace period shorter than ROTATION_FREQUENCY_DAYS",
		}
	}
	return nil
}

// FrequencyDelta returns the rotation interval as a duration.
func (p Policy) FrequencyDelta() time.Duration {
	return time.Duration(p.FrequencyDays) * 24 * time.Hour
}

// GraceDelta returns the grace period as a duration.
func (p Policy) GraceDelta() time.Duration {
	return time.Duration(p.GracePeriodDays) * 24 * time.Hour
}

// Summary renders the active policy as a human-readable one-liner for
// inclusion in notification bodies, e.g.
// "frequency 90d, grace 5d, collections 2, users 3".
func (p Policy) Summary() string {
	parts := []string{fmt.Sprintf("frequency %dd", p.FrequencyDays)}
	if p.GracePeriodDays > 0 {
		parts = append(parts, fmt.Sprintf("grace %dd", p.GracePeriodDays))
	}
	if len(p.TargetCollections) > 0 {
		parts = append(parts, fmt.Sprintf("collections %d", len(p.TargetCollections)))
	}
	if len(p.TargetUsers) > 0 {
		parts = append(parts, fmt.Sprintf("users %d", len(p.TargetUsers)))
	}
	return strings.Join(parts, ", ")
}
