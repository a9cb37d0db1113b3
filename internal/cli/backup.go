package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shroudhq/shroud-keyring/internal/backup"
	"github.com/shroudhq/shroud-keyring/internal/fileutil"
	"github.com/shroudhq/shroud-keyring/internal/mnemonic"
	"github.com/shroudhq/shroud-keyring/internal/output"
	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	backupOutput string
	backupInput  string
)

const backupFilePerm = 0o600

// backupCmd is the parent command for whole-keystore backup operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, inspect, and restore encrypted keystore backups",
	Long: `A backup snapshots every account record in the keystore — still
individually encrypted under each record's own password — inside one
age-encrypted, checksummed container (spec.md §4.7).`,
}

// backupCreateCmd snapshots the whole keystore to an encrypted file.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an encrypted backup of the entire keystore",
	Long: `Create an encrypted backup of the entire keystore.

Example:
  shroud backup create --output keyring.bak`,
	RunE: runBackupCreate,
}

// backupInspectCmd reads a backup's manifest without decrypting it.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show a backup's manifest without decrypting it",
	Long: `Verify a backup file's structure and print its manifest (record
count, chains, format version) without needing the backup password.

Example:
  shroud backup inspect --input keyring.bak`,
	RunE: runBackupInspect,
}

// backupRestoreCmd replaces the keystore's contents from a backup file.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the keystore from an encrypted backup",
	Long: `Restore the keystore's entire record set from a backup file. This
replaces the current keystore contents; any cached password is forgotten
and the keystore ends up Locked.

Example:
  shroud backup restore --input keyring.bak`,
	RunE: runBackupRestore,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupInspectCmd)
	backupCmd.AddCommand(backupRestoreCmd)

	backupCreateCmd.Flags().StringVar(&backupOutput, "output", "", "path to write the backup file (required)")
	_ = backupCreateCmd.MarkFlagRequired("output")

	backupInspectCmd.Flags().StringVar(&backupInput, "input", "", "path to the backup file (required)")
	_ = backupInspectCmd.MarkFlagRequired("input")

	backupRestoreCmd.Flags().StringVar(&backupInput, "input", "", "path to the backup file (required)")
	_ = backupRestoreCmd.MarkFlagRequired("input")
}

func runBackupCreate(cmd *cobra.Command, _ []string) error {
	cmdc := GetCmdContext(cmd)

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer mnemonic.Zero(password)

	container, err := backup.Create(cmdc.Keys, string(password))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(container, "", "  ")
	if err != nil {
		return keyerr.Wrap(err, "encoding backup container")
	}
	if err := fileutil.WriteAtomic(backupOutput, data, backupFilePerm); err != nil {
		return keyerr.Wrap(err, "writing backup file")
	}

	w := cmd.OutOrStdout()
	outln(w, "Backup created successfully!")
	outln(w)
	out(w, "  File:    %s\n", backupOutput)
	out(w, "  Records: %d\n", container.Manifest.RecordCount)
	out(w, "  Chains:  %v\n", container.Manifest.Chains)
	outln(w)
	outln(w, "Store this file securely. You will need the backup password to restore it.")
	return nil
}

func runBackupInspect(cmd *cobra.Command, _ []string) error {
	container, err := readBackupFile(backupInput)
	if err != nil {
		return err
	}

	manifest, err := backup.Inspect(container)
	if err != nil {
		return err
	}

	cmdc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()
	if cmdc.Fmt.Format() == output.FormatJSON {
		return writeJSON(w, manifest)
	}

	outln(w, "Backup manifest:")
	out(w, "  Format version: %d\n", manifest.FormatVersion)
	out(w, "  Created:        %s\n", manifest.CreatedAt.Format("2006-01-02 15:04:05"))
	out(w, "  Records:        %d\n", manifest.RecordCount)
	out(w, "  Chains:         %v\n", manifest.Chains)
	return nil
}

func runBackupRestore(cmd *cobra.Command, _ []string) error {
	cmdc := GetCmdContext(cmd)

	container, err := readBackupFile(backupInput)
	if err != nil {
		return err
	}

	if !promptConfirmationFn("This replaces the entire current keystore. Continue?") {
		return keyerr.New("ABORTED", "restore aborted by user")
	}

	password, err := promptPasswordFn("Enter backup password: ")
	if err != nil {
		return err
	}
	defer mnemonic.Zero(password)

	manifest, err := backup.Restore(cmdc.Keys, container, string(password))
	if err != nil {
		return err
	}
	cmdc.Log.Debug("keystore restored from backup: records=%d", manifest.RecordCount)

	return output.FormatSuccess(cmd.OutOrStdout(), fmt.Sprintf("keystore restored: %d records", manifest.RecordCount), cmdc.Fmt.Format())
}

func readBackupFile(path string) (*backup.Container, error) {
	data, err := fileutil.ReadFile(path)
	if err != nil {
		return nil, keyerr.Wrap(err, "reading backup file")
	}
	if len(data) == 0 {
		return nil, keyerr.New("INVALID_BACKUP", "backup file is empty or missing")
	}

	var container backup.Container
	if err := json.Unmarshal(data, &container); err != nil {
		return nil, keyerr.Wrap(err, "decoding backup file")
	}
	return &container, nil
}
