package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/keeperops/vaultward/internal/config"
)

func TestLoginCommandStoresCredentials(t *testing.T) {
	keyring.MockInit()

	opts, logOut := testOptions()
	cmd := NewLoginCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--client-id", "user.abc", "--client-secret", "shh"})

	require.NoError(t, cmd.Execute())

	stored, err := keyring.Get(config.KeyringService, "client_id")
	require.NoError(t, err)
	assert.Equal(t, "user.abc", stored)
	assert.Contains(t, logOut.String(), "credentials stored")
}

func TestLoginCommandPromptsForMissingValues(t *testing.T) {
	keyring.MockInit()

	opts, _ := testOptions()
	cmd := NewLoginCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("user.prompted\nprompted-secret\n"))
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	stored, err := keyring.Get(config.KeyringService, "client_secret")
	require.NoError(t, err)
	assert.Equal(t, "prompted-secret", stored)
}

func TestLoginCommandRejectsEmptyCredentials(t *testing.T) {
	keyring.MockInit()

	opts, _ := testOptions()
	cmd := NewLoginCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("\n\n"))
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestLoginCommandClear(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, config.StoreCredentials("user.abc", "shh"))

	opts, logOut := testOptions()
	cmd := NewLoginCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--clear"})

	require.NoError(t, cmd.Execute())

	_, err := keyring.Get(config.KeyringService, "client_id")
	assert.ErrorIs(t, err, keyring.ErrNotFound)
	assert.Contains(t, logOut.String(), "removed")
}
