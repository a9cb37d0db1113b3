package mnemonic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateWordCounts(t *testing.T) {
	for _, size := range []int{12, 24} {
		phrase, err := Generate(size)
		require.NoError(t, err)
		require.NoError(t, Validate(phrase))
	}
}

func TestGenerateInvalidSize(t *testing.T) {
	_, err := Generate(15)
	require.Error(t, err)
}

func TestValidateChecksumFailure(t *testing.T) {
	bad := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon"
	require.Error(t, Validate(bad))
}

func TestValidateWordCountBoundary(t *testing.T) {
	require.Error(t, Validate("abandon abandon abandon"))
}

func TestToSeedDeterministic(t *testing.T) {
	seed1, err := ToSeed(testPhrase, "")
	require.NoError(t, err)
	seed2, err := ToSeed(testPhrase, "")
	require.NoError(t, err)
	require.Equal(t, seed1, seed2)
	require.Len(t, seed1, SeedLength)
}

func TestToSeedPassphraseChangesOutput(t *testing.T) {
	seed1, err := ToSeed(testPhrase, "")
	require.NoError(t, err)
	seed2, err := ToSeed(testPhrase, "extra")
	require.NoError(t, err)
	require.NotEqual(t, seed1, seed2)
}

func TestNormalizeStripsListMarkers(t *testing.T) {
	input := "1. abandon\n2) abandon\n- abandon"
	require.Equal(t, "abandon abandon abandon", Normalize(input))
}

func TestDetectTyposSuggestsClosestWord(t *testing.T) {
	typos := DetectTypos("abandom abandon")
	require.Len(t, typos, 1)
	require.Equal(t, "abandon", typos[0].Suggestion)
}

func TestZeroOverwritesBytes(t *testing.T) {
	b := []byte{1, 2, 3}
	Zero(b)
	require.Equal(t, []byte{0, 0, 0}, b)
}
