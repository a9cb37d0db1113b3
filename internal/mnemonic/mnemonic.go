// Package mnemonic implements BIP39 phrase generation, validation, and
// phrase-to-seed expansion for the keyring's transparent and shielded
// hierarchies.
package mnemonic

import (
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/cosmos/go-bip39"

	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

// SeedLength is the length in bytes of a BIP39-derived seed.
const SeedLength = 64

var (
	whitespaceRegex    = regexp.MustCompile(`\s+`)
	numberedListRegex  = regexp.MustCompile(`(?m)^\s*\d+[.):]\s*`)
	bulletListRegex    = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// Generate creates a fresh BIP39 mnemonic of the given word count.
// size must be 12 (128 bits of entropy) or 24 (256 bits).
func Generate(size int) (string, error) {
	bitSize, err := bitSizeFor(size)
	if err != nil {
		return "", err
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", keyerr.Wrap(err, "generating entropy")
	}
	defer zero(entropy)

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", keyerr.Wrap(err, "encoding mnemonic")
	}
	return phrase, nil
}

func bitSizeFor(size int) (int, error) {
	switch size {
	case 12:
		return 128, nil
	case 24:
		return 256, nil
	default:
		return 0, keyerr.WithDetails(keyerr.ErrInvalidMnemonic, map[string]string{"wordCount": itoa(size)})
	}
}

// Validate checks a phrase's word count, vocabulary, and checksum.
func Validate(phrase string) error {
	normalized := Normalize(phrase)
	words := strings.Fields(normalized)
	if len(words) != 12 && len(words) != 24 {
		return keyerr.ErrInvalidMnemonic
	}
	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return keyerr.ErrInvalidMnemonic
	}
	return nil
}

// Normalize cleans user-pasted mnemonic input: lowercases, strips numbered
// or bulleted list markers, collapses whitespace.
func Normalize(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// ToSeed expands a validated mnemonic phrase into its 64-byte seed via
// PBKDF2-HMAC-SHA512 with salt "mnemonic"||passphrase, 2048 iterations.
// The caller owns the returned slice and must Zero it after use.
func ToSeed(phrase, passphrase string) ([]byte, error) {
	normalized := Normalize(phrase)
	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return nil, keyerr.ErrInvalidMnemonic
	}
	return bip39.NewSeed(normalized, passphrase), nil
}

// Zero overwrites sensitive byte material in place. Safe to call on nil or
// empty slices.
func Zero(b []byte) { zero(b) }

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// IsValidWord reports whether word is in the BIP39 English wordlist.
func IsValidWord(word string) bool {
	word = strings.ToLower(word)
	for _, w := range bip39.WordList {
		if w == word {
			return true
		}
	}
	return false
}

// maxTypoDistance bounds how different a suggestion may be from the input
// before it's considered unhelpful noise.
const maxTypoDistance = 2

// TypoInfo describes a single detected typo and its closest BIP39 match.
type TypoInfo struct {
	Index      int
	Word       string
	Suggestion string
	Distance   int
}

// DetectTypos scans phrase for words not in the BIP39 list and suggests the
// closest valid word by Levenshtein distance. It has no bearing on Validate
// or ToSeed, and the CLI's mnemonic prompt does not call it.
func DetectTypos(phrase string) []TypoInfo {
	if phrase == "" {
		return nil
	}

	words := strings.Fields(Normalize(phrase))
	var typos []TypoInfo
	for i, word := range words {
		if IsValidWord(word) {
			continue
		}
		suggestion, dist := suggestWord(word)
		typos = append(typos, TypoInfo{Index: i, Word: word, Suggestion: suggestion, Distance: dist})
	}
	return typos
}

func suggestWord(input string) (string, int) {
	minDist := math.MaxInt
	var best string
	for _, word := range bip39.WordList {
		dist := levenshtein.ComputeDistance(input, word)
		if dist < minDist {
			minDist, best = dist, word
		}
		if dist == 0 {
			return word, 0
		}
	}
	if minDist <= maxTypoDistance {
		return best, minDist
	}
	return "", 0
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
