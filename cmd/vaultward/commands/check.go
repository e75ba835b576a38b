package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/keeperops/vaultward/internal/config"
	"github.com/keeperops/vaultward/internal/notify"
	"github.com/keeperops/vaultward/internal/rotation"
	"github.com/keeperops/vaultward/internal/scheduler"
	"github.com/keeperops/vaultward/internal/vaultwarden"
)

func NewCheckCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "List vault entries that are due for rotation",
		Long: `Evaluate the vault against the rotation policy and print the due set.

Nothing is sent and no digest state is written, so this is safe to run at
any time. Exit status is zero even when entries are due.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv(opts.Logger)
			if err != nil {
				return err
			}

			client := vaultwarden.NewClient(cfg.VaultwardenConfig())
			// The dispatcher is never reached: send is false.
			sched := scheduler.New(client, cfg.Policy, nil, cfg.Logger)

			candidates, err := sched.RunOnce(cmd.Context(), false)
			if err != nil {
				return err
			}

			if len(candidates) == 0 {
				cfg.Logger.Info("no entries due for rotation (%s)", cfg.Policy.Summary())
				return nil
			}

			now := time.Now().UTC()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ENTRY\tDUE\tOVERDUE\n")
			for _, c := range candidates {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					notify.LabelFor(c),
					c.DueAt.Format("2006-01-02"),
					formatOverdue(c, now))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			cfg.Logger.Info("%d entries due for rotation (%s)", len(candidates), cfg.Policy.Summary())
			return nil
		},
	}

	return cmd
}

func formatOverdue(c rotation.Candidate, now time.Time) string {
	delta := c.OverdueDelta(now)
	if delta <= 0 {
		days := int(-delta.Hours() / 24)
		return fmt.Sprintf("in %dd", days)
	}
	return fmt.Sprintf("%dd", int(delta.Hours()/24))
}
