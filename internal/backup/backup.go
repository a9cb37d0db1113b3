package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"filippo.io/age"

	"github.com/shroudhq/shroud-keyring/internal/keystore"
)

// scryptWorkFactor controls the age scrypt work factor used to wrap a
// backup's passphrase. Default matches age's own secure default; tests
// lower it for speed.
var scryptWorkFactor atomic.Int32

func init() {
	scryptWorkFactor.Store(18)
}

// SetScryptWorkFactor overrides the work factor, clamped to [10, 22].
func SetScryptWorkFactor(factor int) {
	if factor < 10 {
		factor = 10
	} else if factor > 22 {
		factor = 22
	}
	scryptWorkFactor.Store(int32(factor))
}

// Create snapshots every record in ks (via Keystore.Export) and returns an
// age-encrypted, checksummed Container. The keystore need not be unlocked —
// a backup captures the still-encrypted per-record cryptobox blobs as-is,
// so the export password only protects the container, not the records
// themselves.
func Create(ks *keystore.Keystore, password string) (*Container, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty backup password", ErrInvalidFormat)
	}

	records, activeID := ks.Export()
	payload := Payload{Records: records, ActiveID: activeID}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializing backup payload: %w", err)
	}

	encrypted, err := encrypt(plaintext, password)
	if err != nil {
		return nil, fmt.Errorf("encrypting backup: %w", err)
	}

	return &Container{
		Version:       FormatVersion,
		Manifest:      newManifest(len(records), chainList(records)),
		EncryptedData: encrypted,
		Checksum:      checksum(plaintext),
	}, nil
}

// Restore decrypts container with password, verifies the plaintext
// checksum, and replaces ks's entire record set via Keystore.Import. The
// keystore is left Locked (or Empty, if the backup held no records)
// afterward — callers must Unlock with the restored parent's own password.
func Restore(ks *keystore.Keystore, container *Container, password string) (*Manifest, error) {
	if err := container.Validate(); err != nil {
		return nil, err
	}

	plaintext, err := decrypt(container.EncryptedData, password)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	if err := verifyChecksum(plaintext, container.Checksum); err != nil {
		return nil, err
	}

	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	if err := ks.Import(payload.Records, payload.ActiveID); err != nil {
		return nil, fmt.Errorf("restoring keystore: %w", err)
	}

	manifest := container.Manifest
	return &manifest, nil
}

// Inspect decrypts nothing — it validates and returns container's manifest,
// for callers who want to show backup metadata before asking for a
// passphrase.
func Inspect(container *Container) (*Manifest, error) {
	if err := container.Validate(); err != nil {
		return nil, err
	}
	manifest := container.Manifest
	return &manifest, nil
}

func encrypt(plaintext []byte, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(int(scryptWorkFactor.Load()))

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func decrypt(ciphertext []byte, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	identity.SetMaxWorkFactor(int(scryptWorkFactor.Load()))

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("initializing decryption: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted data: %w", err)
	}
	return plaintext, nil
}
