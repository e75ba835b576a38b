package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keeperops/vaultward/cmd/vaultward/commands"
	"github.com/keeperops/vaultward/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		noColor bool
		debug   bool
	)

	opts := &commands.Options{}

	rootCmd := &cobra.Command{
		Use:   "vaultward",
		Short: "Password rotation reminders for Vaultwarden",
		Long: `vaultward watches a Vaultwarden instance and sends rotation reminders
for passwords that have gone unrotated past the configured policy.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewRunCommand(opts),
		commands.NewCheckCommand(opts),
		commands.NewDoctorCommand(opts),
		commands.NewLoginCommand(opts),
		commands.NewCompletionCommand(opts),
	)

	return rootCmd.Execute()
}
