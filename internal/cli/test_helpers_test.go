package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"

	"github.com/shroudhq/shroud-keyring/internal/chainquery"
	"github.com/shroudhq/shroud-keyring/internal/chainregistry"
	"github.com/shroudhq/shroud-keyring/internal/config"
	"github.com/shroudhq/shroud-keyring/internal/cryptobox"
	"github.com/shroudhq/shroud-keyring/internal/keystore"
	"github.com/shroudhq/shroud-keyring/internal/kvstore"
	"github.com/shroudhq/shroud-keyring/internal/output"
	"github.com/shroudhq/shroud-keyring/internal/txbuilder"
)

const testMnemonicPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// newTestCommandContext builds a CommandContext over a fresh in-memory
// keystore, with scrypt's work factor lowered so tests run fast.
func newTestCommandContext(t *testing.T) (*CommandContext, *bytes.Buffer) {
	t.Helper()

	cryptobox.SetWorkFactor(10)
	t.Cleanup(func() { cryptobox.SetWorkFactor(15) })

	ks, err := keystore.New(kvstore.NewMemory(), chainregistry.Default(), txbuilder.NewInMemory())
	if err != nil {
		t.Fatalf("keystore.New: %v", err)
	}

	buf := &bytes.Buffer{}
	cfg := config.Defaults()
	logger := config.NullLogger()
	formatter := output.NewFormatter(output.FormatText, buf)

	return NewCommandContext(cfg, logger, formatter, ks, chainquery.Default()), buf
}

// runCmd executes cmd with cmdc attached to its context, returning stdout.
// cobra's Execute always starts from the root command, so cmd's flags and
// args are parsed and validated here and its run function called directly.
func runCmd(t *testing.T, cmd *cobra.Command, cmdc *CommandContext, args []string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	SetCmdContext(cmd, cmdc)

	if err := cmd.ParseFlags(args); err != nil {
		return buf.String(), err
	}
	if err := cmd.ValidateRequiredFlags(); err != nil {
		return buf.String(), err
	}
	if err := cmd.ValidateArgs(cmd.Flags().Args()); err != nil {
		return buf.String(), err
	}
	if cmd.RunE == nil {
		cmd.Run(cmd, cmd.Flags().Args())
		return buf.String(), nil
	}
	err := cmd.RunE(cmd, cmd.Flags().Args())
	return buf.String(), err
}

// withPrompts swaps the package-level prompt indirection vars for the
// duration of a test and restores them afterward.
func withPrompts(t *testing.T, password func(string) ([]byte, error), newPassword func() ([]byte, error), confirm func(string) bool, mnemonicPrompt func() (string, error)) {
	t.Helper()

	origPassword, origNewPassword := promptPasswordFn, promptNewPasswordFn
	origConfirm, origMnemonic := promptConfirmationFn, promptMnemonicFn
	t.Cleanup(func() {
		promptPasswordFn = origPassword
		promptNewPasswordFn = origNewPassword
		promptConfirmationFn = origConfirm
		promptMnemonicFn = origMnemonic
	})

	if password != nil {
		promptPasswordFn = password
	}
	if newPassword != nil {
		promptNewPasswordFn = newPassword
	}
	if confirm != nil {
		promptConfirmationFn = confirm
	}
	if mnemonicPrompt != nil {
		promptMnemonicFn = mnemonicPrompt
	}
}

func fixedPassword(pw string) func(string) ([]byte, error) {
	return func(string) ([]byte, error) { return []byte(pw), nil }
}

func fixedNewPassword(pw string) func() ([]byte, error) {
	return func() ([]byte, error) { return []byte(pw), nil }
}

func alwaysConfirm(string) bool { return true }
func neverConfirm(string) bool  { return false }
