package transparent

import (
	"testing"

	"github.com/decred/dcrd/hdkeychain/v3"
	"github.com/stretchr/testify/require"

	"github.com/shroudhq/shroud-keyring/internal/chainregistry"
	"github.com/shroudhq/shroud-keyring/internal/mnemonic"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := mnemonic.ToSeed(testPhrase, "")
	require.NoError(t, err)
	return seed
}

func TestDeriveDeterministic(t *testing.T) {
	seed := testSeed(t)
	registry := chainregistry.Default()

	path := Path{Account: 0, Change: 0, Index: 0, HasIndex: true}
	acct1, err := Derive(seed, path, "gaia", registry)
	require.NoError(t, err)
	acct2, err := Derive(seed, path, "gaia", registry)
	require.NoError(t, err)

	require.Equal(t, acct1.PrivateKey, acct2.PrivateKey)
	require.Equal(t, acct1.Address, acct2.Address)
	require.Equal(t, "m/44'/118'/0'/0/0", acct1.Path)
}

func TestDeriveDifferentIndicesDiffer(t *testing.T) {
	seed := testSeed(t)
	registry := chainregistry.Default()

	a0, err := Derive(seed, Path{Account: 0, Change: 0, Index: 0, HasIndex: true}, "gaia", registry)
	require.NoError(t, err)
	a1, err := Derive(seed, Path{Account: 0, Change: 0, Index: 1, HasIndex: true}, "gaia", registry)
	require.NoError(t, err)

	require.NotEqual(t, a0.Address, a1.Address)
	require.NotEqual(t, a0.PrivateKey, a1.PrivateKey)
}

func TestDeriveUnknownChain(t *testing.T) {
	seed := testSeed(t)
	registry := chainregistry.Default()

	_, err := Derive(seed, Path{HasIndex: true}, "does-not-exist", registry)
	require.Error(t, err)
}

func TestViewKeyRoundTrip(t *testing.T) {
	seed := testSeed(t)
	registry := chainregistry.Default()

	direct, err := Derive(seed, Path{Account: 0, Change: 0, Index: 3, HasIndex: true}, "gaia", registry)
	require.NoError(t, err)

	xpub, err := DeriveAccountViewKey(seed, "gaia", 0, registry)
	require.NoError(t, err)
	require.NotEmpty(t, xpub)

	watchOnly, err := DeriveAddressFromViewKey(xpub, 0, 3, "gaia", registry)
	require.NoError(t, err)

	require.Equal(t, direct.Address, watchOnly)
}

func TestDeriveAddressFromViewKeyRejectsPrivateKey(t *testing.T) {
	seed := testSeed(t)
	registry := chainregistry.Default()

	master, err := hdkeychain.NewMaster(seed, hdNetParams{})
	require.NoError(t, err)

	_, err = DeriveAddressFromViewKey(master.String(), 0, 0, "gaia", registry)
	require.Error(t, err)
}
