package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCommandAllHealthy(t *testing.T) {
	server := newFakeVault(t, nil)
	setCommandEnv(t, server.URL)

	opts, _ := testOptions()
	cmd := NewDoctorCommand(opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "CHECK")
	assert.Contains(t, out.String(), "authenticated as owner@example.com")
	assert.Contains(t, out.String(), "Summary: 4/4 checks healthy")
}

func TestDoctorCommandMissingConfig(t *testing.T) {
	t.Setenv("VAULTWARDEN_URL", "")
	t.Setenv("CLIENT_ID", "user.test")
	t.Setenv("CLIENT_SECRET", "secret")

	opts, _ := testOptions()
	cmd := NewDoctorCommand(opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	assert.Error(t, cmd.Execute())
	assert.Contains(t, out.String(), "Summary: 0/1 checks healthy")
}

func TestDoctorCommandBadTopicARN(t *testing.T) {
	server := newFakeVault(t, nil)
	setCommandEnv(t, server.URL)
	t.Setenv("ROTATION_SNS_TOPIC_ARN", "not-an-arn")

	opts, _ := testOptions()
	cmd := NewDoctorCommand(opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--verbose"})

	assert.Error(t, cmd.Execute())
	assert.Contains(t, out.String(), "does not look like a topic ARN")
	assert.Contains(t, out.String(), "arn:aws:sns:<region>:<account>:<topic>")
}

func TestDoctorCommandFlagDefinitions(t *testing.T) {
	opts, _ := testOptions()
	cmd := NewDoctorCommand(opts)

	verboseFlag := cmd.Flags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "false", verboseFlag.DefValue)
}
