package commands

import (
	"context"

	"github.com/keeperops/vaultward/internal/config"
	"github.com/keeperops/vaultward/internal/logging"
	"github.com/keeperops/vaultward/internal/notify"
	"github.com/keeperops/vaultward/internal/rotation"
	"github.com/keeperops/vaultward/internal/rotation/storage"
	"github.com/keeperops/vaultward/internal/scheduler"
	"github.com/keeperops/vaultward/internal/vaultwarden"
)

// Options carries state shared across commands, populated by the root
// command before any subcommand runs.
type Options struct {
	Logger *logging.Logger
}

// buildScheduler wires the full evaluation pipeline from a resolved config:
// vault client, SNS notifier, digest tracker and dispatcher.
func buildScheduler(ctx context.Context, cfg *config.Config) (*scheduler.Scheduler, error) {
	client := vaultwarden.NewClient(cfg.VaultwardenConfig())

	notifier, err := notify.NewSNSNotifier(ctx, cfg.NotifyConfig(), notify.DefaultRetryPolicy())
	if err != nil {
		return nil, err
	}

	tracker := rotation.NewTracker(storage.NewFileStore(cfg.Scheduler.StatePath), cfg.Logger)
	dispatcher := rotation.NewDispatcher(cfg.Policy, notifier, client, tracker, cfg.Logger)
	return scheduler.New(client, cfg.Policy, dispatcher, cfg.Logger), nil
}
