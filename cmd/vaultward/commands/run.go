package commands

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/keeperops/vaultward/internal/config"
	"github.com/keeperops/vaultward/internal/notify"
	"github.com/keeperops/vaultward/internal/rotation"
)

func NewRunCommand(opts *Options) *cobra.Command {
	var (
		once   bool
		dryRun bool
		poll   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the vault and send rotation reminders",
		Long: `Run the rotation scheduler against the configured Vaultwarden instance.

By default the scheduler polls on an interval and keeps running until
interrupted. Use --once for a single evaluation cycle (cron-friendly) and
--dry-run to see what would be sent without publishing anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv(opts.Logger)
			if err != nil {
				return err
			}
			if dryRun {
				cfg.Scheduler.DryRun = true
			}
			if once {
				cfg.Scheduler.RunOnce = true
			}
			if cmd.Flags().Changed("poll") {
				cfg.Scheduler.PollInterval = poll
			}

			rotation.InitMetrics()
			notify.InitMetrics()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched, err := buildScheduler(ctx, cfg)
			if err != nil {
				return err
			}

			send := !cfg.Scheduler.DryRun
			if !send {
				cfg.Logger.Info("dry run: reminders will not be sent")
			}

			if cfg.Scheduler.RunOnce {
				candidates, err := sched.RunOnce(ctx, send)
				if err != nil {
					return err
				}
				for _, c := range candidates {
					cfg.Logger.Info("due: %s (due %s)",
						notify.LabelFor(c), c.DueAt.Format("2006-01-02"))
				}
				cfg.Logger.Info("%d entries due for rotation", len(candidates))
				return nil
			}

			cfg.Logger.Info("scheduler started, polling every %s", cfg.Scheduler.PollInterval)
			sched.RunLoop(ctx, cfg.Scheduler.PollInterval, send)
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single evaluation cycle and exit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate without sending notifications")
	cmd.Flags().DurationVar(&poll, "poll", time.Hour, "Polling interval for the scheduler loop")

	return cmd
}
