package rotation

import (
	"time"
)

// Candidate is an item that is due, or within the reminder window, for
// rotation. DueAt is the hard deadline, not the reminder point: reminders may
// fire before the deadline itself.
type Candidate struct {
	Item  VaultItem
	DueAt time.Time
}

// OverdueDelta returns how far past the hard deadline the item is. Negative
// while the item is still inside the reminder window.
func (c Candidate) OverdueDelta(now time.Time) time.Duration {
	return now.Sub(c.DueAt)
}

// FilterTargets applies the policy's collection and user allow-lists. An
// item matches the collection list if its own collection set intersects it,
// and the user list if its owner id is a member. Both filters are ANDed when
// both are configured; an absent list filters nothing on that axis.
// Input order is preserved.
func FilterTargets(items []VaultItem, policy Policy) []VaultItem {
	if len(policy.TargetCollections) == 0 && len(policy.TargetUsers) == 0 {
		return items
	}

	collections := toSet(policy.TargetCollections)
	users := toSet(policy.TargetUsers)

	out := make([]VaultItem, 0, len(items))
	for _, item := range items {
		if len(collections) > 0 && !intersects(item.CollectionIDs, collections) {
			continue
		}
		if len(users) > 0 {
			if _, ok := users[item.UserID]; !ok {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

// SelectDue computes the due set for a policy at the given instant. An item
// is due when now >= effective rotation source + (frequency - grace). The
// emitted DueAt is always source + frequency. Input order is preserved; ids
// are assumed unique per source, so no dedup happens here.
func SelectDue(items []VaultItem, policy Policy, now time.Time) []Candidate {
	frequency := policy.FrequencyDelta()
	reminderThreshold := frequency - policy.GraceDelta()

	candidates := make([]Candidate, 0)
	for _, item := range items {
		reference := item.EffectiveRotationSource()
		if now.Before(reference.Add(reminderThreshold)) {
			continue
		}
		candidates = append(candidates, Candidate{
			Item:  item,
			DueAt: reference.Add(frequency),
		})
	}
	return candidates
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func intersects(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
