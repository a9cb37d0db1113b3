package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shroudhq/shroud-keyring/internal/backup"
)

func init() {
	backup.SetScryptWorkFactor(10)
}

func TestBackupCreateInspectRestore_RoundTrip(t *testing.T) {
	cmdc, _ := newTestCommandContext(t)
	setupUnlockedAccount(t, cmdc, "hunter2hunter2")

	backupPath := filepath.Join(t.TempDir(), "keyring.bak")

	withPrompts(t, nil, fixedNewPassword("backup-password"), nil, nil)
	out, err := runCmd(t, backupCreateCmd, cmdc, []string{"--output", backupPath})
	require.NoError(t, err)
	assert.Contains(t, out, "Backup created successfully!")

	out, err = runCmd(t, backupInspectCmd, cmdc, []string{"--input", backupPath})
	require.NoError(t, err)
	assert.Contains(t, out, "Backup manifest:")
	assert.Contains(t, out, "Records:        1")

	target, _ := newTestCommandContext(t)
	withPrompts(t, fixedPassword("backup-password"), nil, alwaysConfirm, nil)
	out, err = runCmd(t, backupRestoreCmd, target, []string{"--input", backupPath})
	require.NoError(t, err)
	assert.Contains(t, out, "keystore restored: 1 records")
	assert.Len(t, target.Keys.QueryAccounts(), 1)
}

func TestBackupRestore_AbortedWithoutConfirmation(t *testing.T) {
	cmdc, _ := newTestCommandContext(t)
	setupUnlockedAccount(t, cmdc, "hunter2hunter2")

	backupPath := filepath.Join(t.TempDir(), "keyring.bak")
	withPrompts(t, nil, fixedNewPassword("backup-password"), nil, nil)
	_, err := runCmd(t, backupCreateCmd, cmdc, []string{"--output", backupPath})
	require.NoError(t, err)

	withPrompts(t, fixedPassword("backup-password"), nil, neverConfirm, nil)
	_, err = runCmd(t, backupRestoreCmd, cmdc, []string{"--input", backupPath})
	require.Error(t, err)
}

func TestBackupInspect_MissingFile(t *testing.T) {
	cmdc, _ := newTestCommandContext(t)
	_, err := runCmd(t, backupInspectCmd, cmdc, []string{"--input", filepath.Join(t.TempDir(), "missing.bak")})
	require.Error(t, err)
}

func TestBackupRestore_WrongPassword(t *testing.T) {
	cmdc, _ := newTestCommandContext(t)
	setupUnlockedAccount(t, cmdc, "hunter2hunter2")

	backupPath := filepath.Join(t.TempDir(), "keyring.bak")
	withPrompts(t, nil, fixedNewPassword("backup-password"), nil, nil)
	_, err := runCmd(t, backupCreateCmd, cmdc, []string{"--output", backupPath})
	require.NoError(t, err)

	withPrompts(t, fixedPassword("totally-wrong"), nil, alwaysConfirm, nil)
	_, err = runCmd(t, backupRestoreCmd, cmdc, []string{"--input", backupPath})
	require.Error(t, err)
}
