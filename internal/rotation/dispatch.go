package rotation

import (
	"context"
	"fmt"

	"github.com/keeperops/vaultward/internal/logging"
)

// DigestRecipient is the sentinel recipient for digest-mode notifications.
const DigestRecipient = "all"

// Receipt acknowledges a delivered notification.
type Receipt struct {
	Recipient string
	MessageID string
}

// Notifier delivers a rotation notice to one recipient. Implementations own
// their retry policy; an error from Send means delivery failed for good and
// is fatal to the current evaluation cycle.
type Notifier interface {
	Send(ctx context.Context, recipient string, candidates []Candidate, policySummary string) (Receipt, error)
}

// RecipientResolver maps a vault user id to a notification recipient.
// An empty result with a nil error means the recipient could not be resolved;
// that is a valid outcome, not an error. An empty userID resolves to the
// account owner's address.
type RecipientResolver interface {
	ResolveRecipient(ctx context.Context, userID string) (string, error)
}

// Dispatcher decides whether and to whom rotation notices go out.
type Dispatcher struct {
	policy   Policy
	notifier Notifier
	resolver RecipientResolver
	tracker  *Tracker
	logger   *logging.Logger
}

// NewDispatcher wires a dispatcher. The resolver is only consulted in
// per-recipient mode and may be nil when the policy always sends digests.
func NewDispatcher(policy Policy, notifier Notifier, resolver RecipientResolver, tracker *Tracker, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		policy:   policy,
		notifier: notifier,
		resolver: resolver,
		tracker:  tracker,
		logger:   logger,
	}
}

// Dispatch sends notifications for the candidate set according to the
// policy's mode. An empty set never produces a send in either mode.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	if d.policy.SendDigest {
		return d.dispatchDigest(ctx, candidates)
	}
	return d.dispatchPerRecipient(ctx, candidates)
}

// dispatchDigest sends the whole due set as one notification to the sentinel
// recipient, unless the set is unchanged since the last run.
func (d *Dispatcher) dispatchDigest(ctx context.Context, candidates []Candidate) error {
	fingerprint := Fingerprint(candidates)
	if !d.tracker.HasChanged(fingerprint) {
		incrementSuppressedCounter()
		d.logger.Debug("due set unchanged since last run, suppressing digest")
		return nil
	}

	receipt, err := d.notifier.Send(ctx, DigestRecipient, candidates, d.policy.Summary())
	if err != nil {
		return fmt.Errorf("digest dispatch failed: %w", err)
	}
	incrementSentCounter()
	d.logger.Info("digest notification sent (%d items, message %s)", len(candidates), receipt.MessageID)
	return nil
}

// dispatchPerRecipient groups candidates by resolved recipient and sends one
// notification per group. Candidates whose recipient cannot be resolved are
// skipped: we never notify "nobody". Unlike digest mode there is no
// cross-run dedup here; every due run re-notifies.
func (d *Dispatcher) dispatchPerRecipient(ctx context.Context, candidates []Candidate) error {
	grouped := make(map[string][]Candidate)
	order := make([]string, 0)

	for _, candidate := range candidates {
		recipient, err := d.resolver.ResolveRecipient(ctx, candidate.Item.UserID)
		if err != nil {
			return fmt.Errorf("recipient resolution failed for item %s: %w", candidate.Item.ID, err)
		}
		if recipient == "" {
			d.logger.Debug("no recipient for item %s, skipping", candidate.Item.ID)
			continue
		}
		if _, ok := grouped[recipient]; !ok {
			order = append(order, recipient)
		}
		grouped[recipient] = append(grouped[recipient], candidate)
	}

	if len(grouped) == 0 {
		return nil
	}

	summary := d.policy.Summary()
	for _, recipient := range order {
		receipt, err := d.notifier.Send(ctx, recipient, grouped[recipient], summary)
		if err != nil {
			return fmt.Errorf("dispatch to %q failed: %w", recipient, err)
		}
		incrementSentCounter()
		d.logger.Info("notification sent to %s (%d items, message %s)", recipient, len(grouped[recipient]), receipt.MessageID)
	}
	return nil
}
