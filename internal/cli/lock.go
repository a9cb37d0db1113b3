package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shroudhq/shroud-keyring/internal/mnemonic"
	"github.com/shroudhq/shroud-keyring/internal/output"
)

// unlockCmd caches the keystore password in memory for subsequent derive
// operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the keystore for the active account",
	Long: `Verify the password against the active parent account and cache it
in memory so that 'account derive' can decrypt the mnemonic without
prompting again this process.`,
	RunE: runUnlock,
}

// lockCmd forgets the cached password.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the keystore, forgetting the cached password",
	Long: `Lock the keystore, discarding the cached password. Subsequent
'account derive' calls will fail until 'shroud unlock' runs again.

Example:
  shroud lock`,
	RunE: runLock,
}

// resetPasswordCmd rotates the password for an account and its children.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <id>",
	Short: "Rotate the password for an account and every one of its children",
	Long: `Re-encrypt the account identified by <id> and every child record
under the same new password, atomically: either every record rotates or
none do.`,
	Args: cobra.ExactArgs(1),
	RunE: runResetPassword,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(resetPasswordCmd)
}

func runUnlock(cmd *cobra.Command, _ []string) error {
	cmdc := GetCmdContext(cmd)

	password, err := promptPasswordFn("Enter account password: ")
	if err != nil {
		return err
	}
	defer mnemonic.Zero(password)

	if err := cmdc.Keys.Unlock(string(password)); err != nil {
		return err
	}

	return output.FormatSuccess(cmd.OutOrStdout(), "keystore unlocked", cmdc.Fmt.Format())
}

func runLock(cmd *cobra.Command, _ []string) error {
	cmdc := GetCmdContext(cmd)
	cmdc.Keys.Lock()
	return output.FormatSuccess(cmd.OutOrStdout(), "keystore locked", cmdc.Fmt.Format())
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	cmdc := GetCmdContext(cmd)

	oldPassword, err := promptPasswordFn("Enter current password: ")
	if err != nil {
		return err
	}
	defer mnemonic.Zero(oldPassword)

	newPassword, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer mnemonic.Zero(newPassword)

	if err := cmdc.Keys.ResetPassword(string(oldPassword), string(newPassword), args[0]); err != nil {
		return err
	}
	cmdc.Log.Debug("password rotated: account=%s", args[0])

	return output.FormatSuccess(cmd.OutOrStdout(), fmt.Sprintf("password rotated for %s and its children", args[0]), cmdc.Fmt.Format())
}
