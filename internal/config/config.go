// Package config builds the runtime configuration from environment
// variables, the OS keyring and an optional targets file. Everything is
// resolved once at startup into explicit structs; nothing reads the
// environment during evaluation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"

	vwerrors "github.com/keeperops/vaultward/internal/errors"
	"github.com/keeperops/vaultward/internal/logging"
	"github.com/keeperops/vaultward/internal/notify"
	"github.com/keeperops/vaultward/internal/rotation"
	"github.com/keeperops/vaultward/internal/rotation/storage"
	"github.com/keeperops/vaultward/internal/secure"
	"github.com/keeperops/vaultward/internal/vaultwarden"
)

// KeyringService is the service name credentials are stored under in the OS
// keyring by `vaultward login`.
const KeyringService = "vaultward"

const (
	keyringClientID     = "client_id"
	keyringClientSecret = "client_secret"
)

// VaultwardenSettings holds the connection details for the vault API.
type VaultwardenSettings struct {
	BaseURL      string
	ClientID     string
	ClientSecret *secure.Buffer
	Timeout      time.Duration
}

// SNSSettings holds the notification transport settings.
type SNSSettings struct {
	Region        string
	TopicARN      string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	SubjectPrefix string
	MaxLines      int
}

// SchedulerSettings holds the poll-loop shell settings.
type SchedulerSettings struct {
	PollInterval time.Duration
	StatePath    string
	DryRun       bool
	RunOnce      bool
}

// Config is the fully resolved runtime configuration.
type Config struct {
	Logger      *logging.Logger
	Vaultwarden VaultwardenSettings
	Policy      rotation.Policy
	SNS         SNSSettings
	Scheduler   SchedulerSettings
}

// FromEnv resolves the configuration from the environment. CLIENT_ID and
// CLIENT_SECRET fall back to the OS keyring when unset, so credentials do
// not have to live in the environment of long-running deployments.
func FromEnv(logger *logging.Logger) (*Config, error) {
	clientID, clientSecret, err := resolveCredentials()
	if err != nil {
		return nil, err
	}

	for name, value := range map[string]string{
		"VAULTWARDEN_URL":        os.Getenv("VAULTWARDEN_URL"),
		"ROTATION_SNS_TOPIC_ARN": os.Getenv("ROTATION_SNS_TOPIC_ARN"),
		"AWS_SNS_REGION":         os.Getenv("AWS_SNS_REGION"),
	} {
		if value == "" {
			return nil, vwerrors.ConfigError{
				Field:      name,
				Message:    "required environment variable is not set",
				Suggestion: "Export " + name + " or add it to the service environment",
			}
		}
	}

	policy := rotation.Policy{
		FrequencyDays:     intEnv("ROTATION_FREQUENCY_DAYS", 90),
		GracePeriodDays:   intEnv("ROTATION_GRACE_PERIOD_DAYS", 5),
		TargetCollections: splitEnv("ROTATION_COLLECTION_IDS"),
		TargetUsers:       splitEnv("ROTATION_USER_IDS"),
		SendDigest:        boolEnv("ROTATION_SNS_DIGEST", true),
	}

	if path := os.Getenv("ROTATION_TARGETS_FILE"); path != "" {
		targets, err := LoadTargetsFile(path)
		if err != nil {
			return nil, err
		}
		// Env allow-lists override the file when both are set.
		if len(policy.TargetCollections) == 0 {
			policy.TargetCollections = targets.Collections
		}
		if len(policy.TargetUsers) == 0 {
			policy.TargetUsers = targets.Users
		}
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Logger: logger,
		Vaultwarden: VaultwardenSettings{
			BaseURL:      os.Getenv("VAULTWARDEN_URL"),
			ClientID:     clientID,
			ClientSecret: secure.NewBufferFromString(clientSecret),
			Timeout:      time.Duration(intEnv("VAULTWARDEN_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Policy: policy,
		SNS: SNSSettings{
			Region:        os.Getenv("AWS_SNS_REGION"),
			TopicARN:      os.Getenv("ROTATION_SNS_TOPIC_ARN"),
			AccessKey:     os.Getenv("AWS_SNS_ACCESS_KEY_ID"),
			SecretKey:     os.Getenv("AWS_SNS_SECRET_ACCESS_KEY"),
			Endpoint:      os.Getenv("AWS_ENDPOINT_URL"),
			SubjectPrefix: os.Getenv("ROTATION_SUBJECT_PREFIX"),
			MaxLines:      intEnv("ROTATION_SNS_MAX_LINES", notify.DefaultMaxLines),
		},
		Scheduler: SchedulerSettings{
			PollInterval: time.Duration(intEnv("ROTATION_POLL_SECONDS", 3600)) * time.Second,
			StatePath:    storage.DefaultStatePath(),
			DryRun:       boolEnv("ROTATION_DRY_RUN", false),
			RunOnce:      boolEnv("ROTATION_RUN_ONCE", false),
		},
	}
	return cfg, nil
}

// resolveCredentials reads the API credentials from the environment, falling
// back to the OS keyring for whichever part is missing.
func resolveCredentials() (string, string, error) {
	clientID := os.Getenv("CLIENT_ID")
	clientSecret := os.Getenv("CLIENT_SECRET")

	if clientID == "" {
		if stored, err := keyring.Get(KeyringService, keyringClientID); err == nil {
			clientID = stored
		}
	}
	if clientSecret == "" {
		if stored, err := keyring.Get(KeyringService, keyringClientSecret); err == nil {
			clientSecret = stored
		}
	}

	if clientID == "" || clientSecret == "" {
		return "", "", vwerrors.ConfigError{
			Field:      "CLIENT_ID/CLIENT_SECRET",
			Message:    "API credentials not found in the environment or the OS keyring",
			Suggestion: "Export CLIENT_ID and CLIENT_SECRET, or run 'vaultward login' to store them in the keyring",
		}
	}
	return clientID, clientSecret, nil
}

// StoreCredentials saves the API credentials in the OS keyring.
func StoreCredentials(clientID, clientSecret string) error {
	if err := keyring.Set(KeyringService, keyringClientID, clientID); err != nil {
		return fmt.Errorf("failed to store client id: %w", err)
	}
	if err := keyring.Set(KeyringService, keyringClientSecret, clientSecret); err != nil {
		return fmt.Errorf("failed to store client secret: %w", err)
	}
	return nil
}

// ClearCredentials removes the stored API credentials from the OS keyring.
func ClearCredentials() error {
	for _, account := range []string{keyringClientID, keyringClientSecret} {
		if err := keyring.Delete(KeyringService, account); err != nil && err != keyring.ErrNotFound {
			return fmt.Errorf("failed to remove %s from keyring: %w", account, err)
		}
	}
	return nil
}

// VaultwardenConfig maps the settings onto the API client config.
func (c *Config) VaultwardenConfig() vaultwarden.Config {
	return vaultwarden.Config{
		BaseURL:      c.Vaultwarden.BaseURL,
		ClientID:     c.Vaultwarden.ClientID,
		ClientSecret: c.Vaultwarden.ClientSecret,
		Timeout:      c.Vaultwarden.Timeout,
	}
}

// NotifyConfig maps the settings onto the SNS notifier config. Deep links in
// message bodies point back at the configured vault.
func (c *Config) NotifyConfig() notify.Config {
	return notify.Config{
		Region:        c.SNS.Region,
		TopicARN:      c.SNS.TopicARN,
		AccessKey:     c.SNS.AccessKey,
		SecretKey:     c.SNS.SecretKey,
		Endpoint:      c.SNS.Endpoint,
		SubjectPrefix: c.SNS.SubjectPrefix,
		MaxLines:      c.SNS.MaxLines,
		ItemBaseURL:   c.Vaultwarden.BaseURL,
	}
}

func splitEnv(name string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return parts
}

func boolEnv(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
