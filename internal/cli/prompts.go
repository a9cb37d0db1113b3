package cli

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/shroudhq/shroud-keyring/internal/mnemonic"
	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

// Indirection vars so command RunE functions can be exercised in tests
// without a real terminal attached to stdin.
//
//nolint:gochecknoglobals // test seam for prompt functions
var (
	promptPasswordFn     = promptPassword
	promptNewPasswordFn  = promptNewPassword
	promptConfirmationFn = promptConfirmation
	promptMnemonicFn     = promptMnemonic
)

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(syscall.Stdin)
	outln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPassword("Enter encryption password: ")
	if err != nil {
		return nil, err
	}

	if len(password) < 8 {
		mnemonic.Zero(password)
		return nil, keyerr.WithSuggestion(
			keyerr.New("INVALID_INPUT", "password too short"),
			"password must be at least 8 characters",
		)
	}

	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		mnemonic.Zero(password)
		return nil, err
	}
	defer mnemonic.Zero(confirm)

	if string(password) != string(confirm) {
		mnemonic.Zero(password)
		return nil, keyerr.WithSuggestion(
			keyerr.New("INVALID_INPUT", "passwords do not match"),
			"re-enter the same password twice",
		)
	}

	return password, nil
}

// promptConfirmation asks the user to confirm a destructive action.
func promptConfirmation(question string) bool {
	out(os.Stderr, "\n%s [y/N]: ", question)

	var response string
	_, err := fmt.Scanln(&response)
	if err != nil {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// promptMnemonic prompts for a multi-word mnemonic phrase, pasted as one line.
func promptMnemonic() (string, error) {
	out(os.Stderr, "Enter mnemonic phrase (12 or 24 words, all on one line): ")

	var words []string
	for i := 0; i < 24; i++ {
		var word string
		if _, err := fmt.Scan(&word); err != nil {
			break
		}
		words = append(words, word)

		phrase := strings.Join(words, " ")
		if (len(words) == 12 || len(words) == 24) && mnemonic.Validate(phrase) == nil {
			return phrase, nil
		}
	}

	if len(words) > 0 {
		return strings.Join(words, " "), nil
	}
	return "", keyerr.WithSuggestion(keyerr.New("INVALID_INPUT", "no mnemonic entered"), "paste the full 12 or 24 word phrase")
}
