package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemRevisedAt(id string, revised time.Time) VaultItem {
	return VaultItem{ID: id, Name: id, RevisionDate: revised}
}

func TestSelectDueScenario(t *testing.T) {
	t.Parallel()

	// revision 2024-01-01, frequency 90d, grace 5d: reminders start at day
	// 85, hard due date 2024-03-31.
	revised := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	policy := Policy{FrequencyDays: 90, GracePeriodDays: 5}
	items := []VaultItem{itemRevisedAt("item-1", revised)}

	t.Run("85 days later produces candidate with hard deadline", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2024, time.March, 26, 0, 0, 0, 0, time.UTC)
		candidates := SelectDue(items, policy, now)
		require.Len(t, candidates, 1)
		assert.Equal(t, "item-1", candidates[0].Item.ID)
		assert.True(t, candidates[0].DueAt.Equal(time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)),
			"DueAt must be the hard deadline, not the reminder point; got %v", candidates[0].DueAt)
		assert.Negative(t, candidates[0].OverdueDelta(now))
	})

	t.Run("79 days later is below the reminder threshold", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
		assert.Empty(t, SelectDue(items, policy, now))
	})
}

func TestSelectDueZeroGrace(t *testing.T) {
	t.Parallel()

	revised := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	policy := Policy{FrequencyDays: 90}
	items := []VaultItem{itemRevisedAt("item-1", revised)}
	deadline := revised.AddDate(0, 0, 90)

	// With zero grace the item becomes a candidate exactly at the deadline.
	assert.Empty(t, SelectDue(items, policy, deadline.Add(-time.Second)))

	candidates := SelectDue(items, policy, deadline)
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].DueAt.Equal(deadline))
	assert.Zero(t, candidates[0].OverdueDelta(deadline))
}

func TestSelectDuePrefersLastRotatedAt(t *testing.T) {
	t.Parallel()

	revised := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	rotated := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	item := VaultItem{ID: "item-1", Name: "item-1", RevisionDate: revised, LastRotatedAt: &rotated}
	policy := Policy{FrequencyDays: 90}

	// 90 days past the revision date but only 31 past the rotation: not due.
	now := revised.AddDate(0, 0, 90)
	assert.Empty(t, SelectDue([]VaultItem{item}, policy, now))

	now = rotated.AddDate(0, 0, 90)
	candidates := SelectDue([]VaultItem{item}, policy, now)
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].DueAt.Equal(rotated.AddDate(0, 0, 90)))
}

func TestSelectDuePreservesInputOrder(t *testing.T) {
	t.Parallel()

	old := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	items := []VaultItem{
		itemRevisedAt("z", old),
		itemRevisedAt("a", old),
		itemRevisedAt("m", old),
	}

	candidates := SelectDue(items, Policy{FrequencyDays: 30}, time.Now().UTC())
	require.Len(t, candidates, 3)
	assert.Equal(t, "z", candidates[0].Item.ID)
	assert.Equal(t, "a", candidates[1].Item.ID)
	assert.Equal(t, "m", candidates[2].Item.ID)
}

func TestFilterTargets(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	items := []VaultItem{
		{ID: "1", UserID: "u1", CollectionIDs: []string{"c1"}, RevisionDate: now},
		{ID: "2", UserID: "u2", CollectionIDs: []string{"c2"}, RevisionDate: now},
		{ID: "3", UserID: "u1", CollectionIDs: []string{"c2", "c3"}, RevisionDate: now},
		{ID: "4", UserID: "u3", CollectionIDs: nil, RevisionDate: now},
	}

	ids := func(filtered []VaultItem) []string {
		out := make([]string, 0, len(filtered))
		for _, item := range filtered {
			out = append(out, item.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		policy Policy
		want   []string
	}{
		{
			name:   "no filters passes everything",
			policy: Policy{FrequencyDays: 30},
			want:   []string{"1", "2", "3", "4"},
		},
		{
			name:   "collection filter matches on intersection",
			policy: Policy{FrequencyDays: 30, TargetCollections: []string{"c2"}},
			want:   []string{"2", "3"},
		},
		{
			name:   "user filter matches owner id",
			policy: Policy{FrequencyDays: 30, TargetUsers: []string{"u1"}},
			want:   []string{"1", "3"},
		},
		{
			name: "both filters are ANDed",
			policy: Policy{
				FrequencyDays:     30,
				TargetCollections: []string{"c2"},
				TargetUsers:       []string{"u1"},
			},
			want: []string{"3"},
		},
		{
			name:   "item without collections never matches a collection filter",
			policy: Policy{FrequencyDays: 30, TargetCollections: []string{"c1", "c2", "c3"}},
			want:   []string{"1", "2", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ids(FilterTargets(items, tt.policy)))
		})
	}
}
