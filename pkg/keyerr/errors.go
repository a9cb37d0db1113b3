// Package keyerr provides the structured error taxonomy used across the
// keyring: sentinel values, exit codes, and helpers for adding context
// without ever interpolating secret material into a message.
package keyerr

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes for CLI callers.
const (
	ExitSuccess    = 0
	ExitGeneral    = 1
	ExitInput      = 2
	ExitAuth       = 3
	ExitNotFound   = 4
	ExitPermission = 5
)

// KeyringError is the structured error type returned across package boundaries.
type KeyringError struct {
	Code       string
	Message    string
	Details    map[string]string
	Suggestion string
	Cause      error
	ExitCode   int
}

func (e *KeyringError) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *KeyringError) Unwrap() error {
	return e.Cause
}

// Is compares by error code, matching the taxonomy rather than identity.
func (e *KeyringError) Is(target error) bool {
	var t *KeyringError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors — the taxonomy from the spec.
var (
	// ErrNoPassword indicates an operation requires an unlocked keystore.
	ErrNoPassword = &KeyringError{
		Code:     "NO_PASSWORD",
		Message:  "keystore is locked or no password is set",
		ExitCode: ExitAuth,
	}

	// ErrBadPassword indicates AEAD authentication failed.
	ErrBadPassword = &KeyringError{
		Code:     "BAD_PASSWORD",
		Message:  "incorrect password",
		ExitCode: ExitAuth,
	}

	// ErrUnknownAccount indicates an id or address was not found.
	ErrUnknownAccount = &KeyringError{
		Code:     "UNKNOWN_ACCOUNT",
		Message:  "account not found",
		ExitCode: ExitNotFound,
	}

	// ErrUnknownChain indicates a chain registry miss.
	ErrUnknownChain = &KeyringError{
		Code:     "UNKNOWN_CHAIN",
		Message:  "unknown chain",
		ExitCode: ExitInput,
	}

	// ErrInvalidMnemonic indicates a checksum or vocabulary failure.
	ErrInvalidMnemonic = &KeyringError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	// ErrKeyStore indicates a storage I/O failure or an invariant violation
	// during batch rotation.
	ErrKeyStore = &KeyringError{
		Code:     "KEYSTORE_ERROR",
		Message:  "keystore operation failed",
		ExitCode: ExitGeneral,
	}

	// ErrDuplicate indicates a record id already exists.
	ErrDuplicate = &KeyringError{
		Code:     "DUPLICATE",
		Message:  "record already exists",
		ExitCode: ExitInput,
	}

	// ErrBackupCorrupted indicates a backup checksum mismatch.
	ErrBackupCorrupted = &KeyringError{
		Code:     "BACKUP_CORRUPTED",
		Message:  "backup is corrupted - checksum mismatch",
		ExitCode: ExitInput,
	}
)

// New creates a KeyringError with a fresh code and message.
func New(code, message string) *KeyringError {
	return &KeyringError{Code: code, Message: message, ExitCode: ExitGeneral}
}

// Wrap attaches additional context to err while preserving its code/exit.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ke *KeyringError
	if errors.As(err, &ke) {
		return &KeyringError{
			Code:       ke.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ke.Message),
			Details:    ke.Details,
			Suggestion: ke.Suggestion,
			Cause:      err,
			ExitCode:   ke.ExitCode,
		}
	}

	return &KeyringError{Code: "GENERAL_ERROR", Message: msg, Cause: err, ExitCode: ExitGeneral}
}

// WithDetails attaches key/value context to err.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ke *KeyringError
	if errors.As(err, &ke) {
		return &KeyringError{
			Code:       ke.Code,
			Message:    ke.Message,
			Details:    details,
			Suggestion: ke.Suggestion,
			Cause:      ke.Cause,
			ExitCode:   ke.ExitCode,
		}
	}

	return &KeyringError{Code: "GENERAL_ERROR", Message: err.Error(), Details: details, Cause: err, ExitCode: ExitGeneral}
}

// WithSuggestion attaches an actionable suggestion to err.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ke *KeyringError
	if errors.As(err, &ke) {
		return &KeyringError{
			Code:       ke.Code,
			Message:    ke.Message,
			Details:    ke.Details,
			Suggestion: suggestion,
			Cause:      ke.Cause,
			ExitCode:   ke.ExitCode,
		}
	}

	return &KeyringError{Code: "GENERAL_ERROR", Message: err.Error(), Suggestion: suggestion, Cause: err, ExitCode: ExitGeneral}
}

// ExitCode maps err to a CLI exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ke *KeyringError
	if errors.As(err, &ke) {
		return ke.ExitCode
	}
	return ExitGeneral
}

// Code returns the machine-readable error code for err.
func Code(err error) string {
	var ke *KeyringError
	if errors.As(err, &ke) {
		return ke.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool { return errors.Is(err, target) }

// As wraps errors.As for convenience.
func As(err error, target any) bool { return errors.As(err, target) }
