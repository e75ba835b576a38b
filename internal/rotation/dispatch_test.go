package rotation

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeperops/vaultward/internal/logging"
	"github.com/keeperops/vaultward/internal/rotation/storage"
)

type sentNotice struct {
	recipient  string
	candidates []Candidate
	summary    string
}

type fakeNotifier struct {
	sent    []sentNotice
	sendErr error
}

func (f *fakeNotifier) Send(_ context.Context, recipient string, candidates []Candidate, summary string) (Receipt, error) {
	if f.sendErr != nil {
		return Receipt{}, f.sendErr
	}
	f.sent = append(f.sent, sentNotice{recipient: recipient, candidates: candidates, summary: summary})
	return Receipt{Recipient: recipient, MessageID: "msg-1"}, nil
}

type fakeResolver struct {
	emails map[string]string // userID -> email; missing key resolves to ""
	err    error
}

func (f *fakeResolver) ResolveRecipient(_ context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.emails[userID], nil
}

func newTestDispatcher(t *testing.T, policy Policy, notifier Notifier, resolver RecipientResolver) *Dispatcher {
	t.Helper()
	logger := logging.NewWithWriter(&bytes.Buffer{}, false, true)
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	return NewDispatcher(policy, notifier, resolver, NewTracker(store, logger), logger)
}

func dueCandidates(ids ...string) []Candidate {
	due := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	out := make([]Candidate, 0, len(ids))
	for i, id := range ids {
		out = append(out, Candidate{
			Item:  VaultItem{ID: id, Name: "entry " + id, UserID: "user-" + id},
			DueAt: due.AddDate(0, 0, i),
		})
	}
	return out
}

func TestDispatchEmptySetIsNoOp(t *testing.T) {
	t.Parallel()

	for _, digest := range []bool{true, false} {
		notifier := &fakeNotifier{}
		d := newTestDispatcher(t, Policy{FrequencyDays: 90, SendDigest: digest}, notifier, &fakeResolver{})
		require.NoError(t, d.Dispatch(context.Background(), nil))
		assert.Empty(t, notifier.sent)
	}
}

func TestDispatchDigestMode(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	policy := Policy{FrequencyDays: 90, GracePeriodDays: 5, SendDigest: true}
	d := newTestDispatcher(t, policy, notifier, nil)
	candidates := dueCandidates("a", "b")

	// First run: exactly one notification to the sentinel recipient.
	require.NoError(t, d.Dispatch(context.Background(), candidates))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, DigestRecipient, notifier.sent[0].recipient)
	assert.Len(t, notifier.sent[0].candidates, 2)
	assert.Equal(t, policy.Summary(), notifier.sent[0].summary)

	// Second run with an identical due set: silently suppressed.
	require.NoError(t, d.Dispatch(context.Background(), candidates))
	assert.Len(t, notifier.sent, 1, "two identical cycles must send exactly one notification total")

	// A changed due set dispatches again.
	require.NoError(t, d.Dispatch(context.Background(), dueCandidates("a", "b", "c")))
	assert.Len(t, notifier.sent, 2)
}

func TestDispatchDigestSendErrorPropagates(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{sendErr: errors.New("sns down")}
	d := newTestDispatcher(t, Policy{FrequencyDays: 90, SendDigest: true}, notifier, nil)

	err := d.Dispatch(context.Background(), dueCandidates("a"))
	assert.ErrorContains(t, err, "digest dispatch failed")
}

func TestDispatchPerRecipientMode(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	resolver := &fakeResolver{emails: map[string]string{
		"user-a": "alice@example.com",
		"user-b": "bob@example.com",
	}}
	d := newTestDispatcher(t, Policy{FrequencyDays: 90}, notifier, resolver)

	require.NoError(t, d.Dispatch(context.Background(), dueCandidates("a", "b")))

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "alice@example.com", notifier.sent[0].recipient)
	require.Len(t, notifier.sent[0].candidates, 1)
	assert.Equal(t, "a", notifier.sent[0].candidates[0].Item.ID)
	assert.Equal(t, "bob@example.com", notifier.sent[1].recipient)
	require.Len(t, notifier.sent[1].candidates, 1)
	assert.Equal(t, "b", notifier.sent[1].candidates[0].Item.ID)
}

func TestDispatchPerRecipientGroupsByRecipient(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	resolver := &fakeResolver{emails: map[string]string{
		"user-a": "shared@example.com",
		"user-b": "shared@example.com",
	}}
	d := newTestDispatcher(t, Policy{FrequencyDays: 90}, notifier, resolver)

	require.NoError(t, d.Dispatch(context.Background(), dueCandidates("a", "b")))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "shared@example.com", notifier.sent[0].recipient)
	assert.Len(t, notifier.sent[0].candidates, 2)
}

func TestDispatchPerRecipientSkipsUnresolvable(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	resolver := &fakeResolver{emails: map[string]string{"user-b": "bob@example.com"}}
	d := newTestDispatcher(t, Policy{FrequencyDays: 90}, notifier, resolver)

	require.NoError(t, d.Dispatch(context.Background(), dueCandidates("a", "b")))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "bob@example.com", notifier.sent[0].recipient)
}

func TestDispatchPerRecipientAllUnresolvableSendsNothing(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	d := newTestDispatcher(t, Policy{FrequencyDays: 90}, notifier, &fakeResolver{})

	require.NoError(t, d.Dispatch(context.Background(), dueCandidates("a", "b")))
	assert.Empty(t, notifier.sent)
}

func TestDispatchPerRecipientNoCrossRunDedup(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	resolver := &fakeResolver{emails: map[string]string{"user-a": "alice@example.com"}}
	d := newTestDispatcher(t, Policy{FrequencyDays: 90}, notifier, resolver)
	candidates := dueCandidates("a")

	// Unlike digest mode, every due run re-notifies.
	require.NoError(t, d.Dispatch(context.Background(), candidates))
	require.NoError(t, d.Dispatch(context.Background(), candidates))
	assert.Len(t, notifier.sent, 2)
}

func TestDispatchPerRecipientResolverErrorIsFatal(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	resolver := &fakeResolver{err: errors.New("profile endpoint 500")}
	d := newTestDispatcher(t, Policy{FrequencyDays: 90}, notifier, resolver)

	err := d.Dispatch(context.Background(), dueCandidates("a"))
	assert.ErrorContains(t, err, "recipient resolution failed")
	assert.Empty(t, notifier.sent)
}
