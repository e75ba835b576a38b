package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/keeperops/vaultward/internal/config"
	"github.com/keeperops/vaultward/internal/vaultwarden"
)

// checkResult is the outcome of a single doctor check.
type checkResult struct {
	Name       string
	Healthy    bool
	Message    string
	Suggestion string
}

func NewDoctorCommand(opts *Options) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check connectivity and configuration",
		Long: `Verify that the scheduler is properly configured and can reach its
dependencies.

This command checks:
- Required environment variables and policy validity
- Vaultwarden API authentication
- SNS topic configuration
- Digest state file writability`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Logger.Info("Checking vaultward configuration...")

			results := runDoctorChecks(cmd.Context(), opts)
			displayCheckResults(cmd, results, verbose)

			healthy := 0
			for _, r := range results {
				if r.Healthy {
					healthy++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nSummary: %d/%d checks healthy\n", healthy, len(results))
			if healthy < len(results) {
				return fmt.Errorf("some checks failed")
			}

			opts.Logger.Info("All systems operational")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show suggestions for failed checks")

	return cmd
}

func runDoctorChecks(ctx context.Context, opts *Options) []checkResult {
	results := make([]checkResult, 0, 4)

	cfg, err := config.FromEnv(opts.Logger)
	if err != nil {
		results = append(results, checkResult{
			Name:       "configuration",
			Message:    err.Error(),
			Suggestion: "Fix the reported setting and run doctor again",
		})
		return results
	}
	results = append(results, checkResult{
		Name:    "configuration",
		Healthy: true,
		Message: cfg.Policy.Summary(),
	})

	results = append(results, checkVaultAccess(ctx, cfg))
	results = append(results, checkTopicARN(cfg))
	results = append(results, checkStatePath(cfg))
	return results
}

func checkVaultAccess(ctx context.Context, cfg *config.Config) checkResult {
	result := checkResult{Name: "vaultwarden api"}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := vaultwarden.NewClient(cfg.VaultwardenConfig())
	profile, err := client.Profile(ctx)
	if err != nil {
		result.Message = err.Error()
		result.Suggestion = "Check VAULTWARDEN_URL and the API key credentials (Settings > Security > Keys)"
		return result
	}

	result.Healthy = true
	result.Message = fmt.Sprintf("authenticated as %s", profile.Email)
	return result
}

func checkTopicARN(cfg *config.Config) checkResult {
	result := checkResult{Name: "sns topic"}

	arn := cfg.SNS.TopicARN
	if !strings.HasPrefix(arn, "arn:") || strings.Count(arn, ":") < 5 {
		result.Message = fmt.Sprintf("%q does not look like a topic ARN", arn)
		result.Suggestion = "Expected arn:aws:sns:<region>:<account>:<topic>"
		return result
	}

	result.Healthy = true
	result.Message = arn
	return result
}

func checkStatePath(cfg *config.Config) checkResult {
	result := checkResult{Name: "state file"}

	path := cfg.Scheduler.StatePath
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		result.Message = fmt.Sprintf("cannot create state directory: %v", err)
		result.Suggestion = "Set ROTATION_STATE_FILE to a writable location"
		return result
	}
	probe, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		result.Message = fmt.Sprintf("cannot write state file: %v", err)
		result.Suggestion = "Set ROTATION_STATE_FILE to a writable location"
		return result
	}
	_ = probe.Close()

	result.Healthy = true
	result.Message = path
	return result
}

func displayCheckResults(cmd *cobra.Command, results []checkResult, verbose bool) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\n")
	fmt.Fprintf(w, "-----\t------\t-------\n")
	for _, r := range results {
		status := "✗ error"
		if r.Healthy {
			status = "✓ healthy"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, status, r.Message)
	}
	_ = w.Flush()

	if verbose {
		for _, r := range results {
			if !r.Healthy && r.Suggestion != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s suggestion:\n  • %s\n", r.Name, r.Suggestion)
			}
		}
	}
}
