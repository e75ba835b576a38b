package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keeperops/vaultward/internal/config"
	vwerrors "github.com/keeperops/vaultward/internal/errors"
)

func NewLoginCommand(opts *Options) *cobra.Command {
	var (
		clientID     string
		clientSecret string
		clear        bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store Vaultwarden API credentials in the OS keyring",
		Long: `Store the Vaultwarden API key credentials in the OS keyring so they do
not have to live in the environment.

The credentials come from the Vaultwarden web vault under
Settings > Security > Keys > API Key. Stored credentials are used whenever
CLIENT_ID and CLIENT_SECRET are not set.

Examples:
  vaultward login                              # Prompt for credentials
  vaultward login --client-id user.abc123      # Prompt for the secret only
  vaultward login --clear                      # Remove stored credentials`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				if err := config.ClearCredentials(); err != nil {
					return err
				}
				opts.Logger.Info("stored credentials removed")
				return nil
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			if clientID == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Client ID: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read client id: %w", err)
				}
				clientID = strings.TrimSpace(line)
			}
			if clientSecret == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Client secret: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read client secret: %w", err)
				}
				clientSecret = strings.TrimSpace(line)
			}

			if clientID == "" || clientSecret == "" {
				return vwerrors.UserError{
					Message:    "Both client id and client secret are required",
					Suggestion: "Find them in the web vault under Settings > Security > Keys > API Key",
				}
			}

			if err := config.StoreCredentials(clientID, clientSecret); err != nil {
				return err
			}
			opts.Logger.Info("credentials stored in the OS keyring")
			opts.Logger.Info("Next: run 'vaultward doctor' to verify authentication")
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "API key client id (user.<uuid>)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "API key client secret")
	cmd.Flags().BoolVar(&clear, "clear", false, "Remove stored credentials from the keyring")

	return cmd
}
