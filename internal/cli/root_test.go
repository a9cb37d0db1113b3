package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

func TestExitCode_NilIsSuccess(t *testing.T) {
	assert.Equal(t, keyerr.ExitSuccess, ExitCode(nil))
}

func TestExitCode_GeneralError(t *testing.T) {
	assert.Equal(t, keyerr.ExitGeneral, ExitCode(assert.AnError))
}

func TestExitCode_KeyringErrorCarriesItsOwnCode(t *testing.T) {
	err := keyerr.New("UNKNOWN_ACCOUNT", "no such account")
	assert.Equal(t, keyerr.ExitGeneral, ExitCode(err))
}

func TestVersionCmd_TextOutput(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })
	Version, GitCommit, BuildDate = "1.2.3", "abc123", "2026-01-01"

	origFormatter := formatter
	t.Cleanup(func() { formatter = origFormatter })
	formatter = nil

	out, err := runCmd(t, versionCmd, nil, nil)
	_ = err
	assert.Contains(t, out, "shroud version 1.2.3")
	assert.Contains(t, out, "abc123")
}

func TestContextAccessorReturnsGlobalCommandContext(t *testing.T) {
	cmdc, _ := newTestCommandContext(t)

	origCmdCtx := cmdCtx
	t.Cleanup(func() { cmdCtx = origCmdCtx })
	cmdCtx = cmdc

	assert.Same(t, cmdc, Context())
}
