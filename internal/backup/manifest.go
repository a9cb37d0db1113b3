// Package backup provides whole-keystore encrypted export and restore,
// independent of the per-record cryptobox wrapping each secret already
// carries (spec.md §4.7).
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/shroudhq/shroud-keyring/internal/keystore"
)

var (
	// ErrBackupCorrupted indicates the plaintext checksum did not match.
	ErrBackupCorrupted = errors.New("backup corrupted - checksum mismatch")

	// ErrDecryptionFailed indicates the age passphrase was wrong.
	ErrDecryptionFailed = errors.New("backup decryption failed")

	// ErrInvalidFormat indicates the container failed structural validation.
	ErrInvalidFormat = errors.New("invalid backup format")
)

// FormatVersion is the current backup container version.
const FormatVersion = 1

// Manifest describes a backup without requiring decryption.
type Manifest struct {
	FormatVersion    int       `json:"formatVersion"`
	CreatedAt        time.Time `json:"createdAt"`
	RecordCount      int       `json:"recordCount"`
	Chains           []string  `json:"chains"`
	EncryptionMethod string    `json:"encryptionMethod"`
}

// Payload is the plaintext JSON structure encrypted inside a backup: the
// full record set plus whichever parent was active at export time.
type Payload struct {
	Records  []keystore.Record `json:"records"`
	ActiveID string            `json:"activeId"`
}

// Container is the on-disk/transport shape of a backup: a plaintext
// manifest alongside the age-encrypted payload and a checksum of the
// plaintext payload. Restore checks the checksum after decrypting with the
// passphrase and before parsing the payload.
type Container struct {
	Version       int      `json:"version"`
	Manifest      Manifest `json:"manifest"`
	EncryptedData []byte   `json:"encryptedData"`
	Checksum      string   `json:"checksum"`
}

func newManifest(recordCount int, chains []string) Manifest {
	return Manifest{
		FormatVersion:    FormatVersion,
		CreatedAt:        time.Now().UTC(),
		RecordCount:      recordCount,
		Chains:           chains,
		EncryptionMethod: "age-scrypt",
	}
}

// checksum computes the SHA-256 hex digest of plaintext.
func checksum(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

// verifyChecksum reports whether plaintext matches expected, wrapping
// ErrBackupCorrupted with both digests on mismatch.
func verifyChecksum(plaintext []byte, expected string) error {
	actual := checksum(plaintext)
	if actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrBackupCorrupted, expected, actual)
	}
	return nil
}

func chainList(records []keystore.Record) []string {
	seen := make(map[string]bool)
	var chains []string
	for _, r := range records {
		if !seen[r.ChainID] {
			seen[r.ChainID] = true
			chains = append(chains, r.ChainID)
		}
	}
	return chains
}

// Validate checks the container for internal consistency before decryption
// is even attempted.
func (c *Container) Validate() error {
	if c.Version != FormatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, c.Version)
	}
	if len(c.EncryptedData) == 0 {
		return fmt.Errorf("%w: no encrypted data", ErrInvalidFormat)
	}
	if c.Checksum == "" {
		return fmt.Errorf("%w: missing checksum", ErrInvalidFormat)
	}
	return nil
}
