// Package scheduler runs rotation evaluation cycles: pull ciphers from
// Vaultwarden, normalize and filter them, select the due set and hand it to
// the dispatcher. One cycle runs start to finish before the next is
// considered; the loop assumes at most one concurrent evaluation per digest
// state location.
package scheduler

import (
	"context"
	"time"

	"github.com/keeperops/vaultward/internal/logging"
	"github.com/keeperops/vaultward/internal/rotation"
)

// Source lists the raw cipher records to evaluate. Failures are fatal to the
// current cycle and propagate to the caller.
type Source interface {
	ListCiphers(ctx context.Context) ([]rotation.ItemRecord, error)
}

// Scheduler evaluates the vault against a rotation policy and dispatches
// notifications for the due set.
type Scheduler struct {
	source     Source
	policy     rotation.Policy
	dispatcher *rotation.Dispatcher
	logger     *logging.Logger
	now        func() time.Time
}

// Option is a functional option for configuring the scheduler.
type Option func(*Scheduler)

// WithNowFunc replaces the evaluation clock (for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a scheduler.
func New(source Source, policy rotation.Policy, dispatcher *rotation.Dispatcher, logger *logging.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:     source,
		policy:     policy,
		dispatcher: dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce performs one evaluation cycle and returns the due set. With send
// false (dry run) candidates are computed and logged but nothing is
// dispatched and no digest state is written. Normalization never fails the
// cycle; source and delivery errors do.
func (s *Scheduler) RunOnce(ctx context.Context, send bool) ([]rotation.Candidate, error) {
	records, err := s.source.ListCiphers(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]rotation.VaultItem, 0, len(records))
	for _, rec := range records {
		items = append(items, rotation.NewVaultItem(rec, now))
	}
	s.logger.Debug("normalized %d ciphers", len(items))

	items = rotation.FilterTargets(items, s.policy)
	candidates := rotation.SelectDue(items, s.policy, now)
	rotation.IncrementEvaluationCounters(len(candidates))
	s.logger.Debug("%d of %d items due for rotation", len(candidates), len(items))

	if send && len(candidates) > 0 {
		if err := s.dispatcher.Dispatch(ctx, candidates); err != nil {
			return candidates, err
		}
	}
	return candidates, nil
}

// RunLoop runs an evaluation immediately and then every interval until the
// context is cancelled. Per-cycle errors are logged, not returned: the loop
// decides to keep going, matching a long-lived sidecar deployment.
func (s *Scheduler) RunLoop(ctx context.Context, interval time.Duration, send bool) {
	s.executeCycle(ctx, send)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.executeCycle(ctx, send)
		}
	}
}

func (s *Scheduler) executeCycle(ctx context.Context, send bool) {
	start := time.Now()
	candidates, err := s.RunOnce(ctx, send)
	if err != nil {
		s.logger.Error("rotation evaluation failed: %v", err)
	} else {
		s.logger.Info("evaluation complete, candidates=%d", len(candidates))
	}
	s.logger.Debug("run duration %.2fs", time.Since(start).Seconds())
}
