// Package transparent implements BIP32/BIP44 secp256k1-style derivation of
// implicit on-chain addresses from a BIP39 seed (spec.md §4.2).
package transparent

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/hdkeychain/v3"

	"github.com/shroudhq/shroud-keyring/internal/chainregistry"
	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

// Path is a BIP44 (account, change, index) tuple. Index is optional: when
// HasIndex is false the path ends at m/44'/coinType'/account'/change, per
// spec.md §3's derivation-path tuple.
type Path struct {
	Account  uint32
	Change   uint32
	Index    uint32
	HasIndex bool
}

// String renders the BIP44 path, hardening the account segment (per
// spec.md §4.5's root path "m/44'/coinType'/0'/0").
func (p Path) String(coinType uint32) string {
	if p.HasIndex {
		return fmt.Sprintf("m/44'/%d'/%d'/%d/%d", coinType, p.Account, p.Change, p.Index)
	}
	return fmt.Sprintf("m/44'/%d'/%d'/%d", coinType, p.Account, p.Change)
}

// Account is the result of deriving one transparent account: its raw
// private key and its chain-formatted implicit address.
type Account struct {
	PrivateKey [32]byte
	Address    string
	PublicKey  []byte // compressed, 33 bytes
	Path       string
}

// hdNetParams satisfies hdkeychain.NetworkParams with the standard BIP32
// mainnet xprv/xpub version bytes; the xpub strings DeriveAccountViewKey
// returns carry them.
type hdNetParams struct{}

func (hdNetParams) HDPrivKeyVersion() [4]byte { return [4]byte{0x04, 0x88, 0xAD, 0xE4} }
func (hdNetParams) HDPubKeyVersion() [4]byte  { return [4]byte{0x04, 0x88, 0xB2, 0x1E} }

// Derive descends seed along m/44'/coinType'/account'/change[/index] and
// encodes the resulting implicit address. All intermediate extended keys
// are discarded after use; the caller owns the returned private key and
// must zero it.
func Derive(seed []byte, path Path, chainID string, registry chainregistry.Registry) (*Account, error) {
	params, err := registry.Lookup(chainID)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.ErrUnknownChain, "looking up chain %q", chainID)
	}

	key, err := deriveKey(seed, params.CoinType, path)
	if err != nil {
		return nil, err
	}

	privBytes, err := key.SerializedPrivKey()
	if err != nil {
		return nil, keyerr.Wrap(err, "serializing private key")
	}
	var priv [32]byte
	copy(priv[:], privBytes)

	pubKey := key.SerializedPubKey()
	address, err := encodeImplicitAddress(pubKey, params)
	if err != nil {
		return nil, err
	}

	return &Account{
		PrivateKey: priv,
		Address:    address,
		PublicKey:  pubKey,
		Path:       path.String(params.CoinType),
	}, nil
}

// deriveKey walks the hardened purpose/coin/account segments and the
// unhardened change/index segments, mirroring BIP44 exactly.
func deriveKey(seed []byte, coinType uint32, path Path) (*hdkeychain.ExtendedKey, error) {
	master, err := hdkeychain.NewMaster(seed, hdNetParams{})
	if err != nil {
		return nil, keyerr.Wrap(err, "deriving master key")
	}

	purpose, err := master.ChildBIP32Std(hdkeychain.HardenedKeyStart + 44)
	if err != nil {
		return nil, keyerr.Wrap(err, "deriving purpose segment")
	}
	coin, err := purpose.ChildBIP32Std(hdkeychain.HardenedKeyStart + coinType)
	if err != nil {
		return nil, keyerr.Wrap(err, "deriving coin type segment")
	}
	account, err := coin.ChildBIP32Std(hdkeychain.HardenedKeyStart + path.Account)
	if err != nil {
		return nil, keyerr.Wrap(err, "deriving account segment")
	}
	change, err := account.ChildBIP32Std(path.Change)
	if err != nil {
		return nil, keyerr.Wrap(err, "deriving change segment")
	}
	if !path.HasIndex {
		return change, nil
	}
	index, err := change.ChildBIP32Std(path.Index)
	if err != nil {
		return nil, keyerr.Wrap(err, "deriving index segment")
	}
	return index, nil
}

// encodeImplicitAddress hashes a compressed public key through the chain's
// address-hash function and bech32m-encodes it with the implicit prefix.
func encodeImplicitAddress(pubKey []byte, params chainregistry.Params) (string, error) {
	hashed := params.Hash(pubKey)
	converted, err := bech32.ConvertBits(hashed, 8, 5, true)
	if err != nil {
		return "", keyerr.Wrap(err, "converting address bits")
	}
	encoded, err := bech32.EncodeM(params.AddressHRP, converted)
	if err != nil {
		return "", keyerr.Wrap(err, "bech32m encoding address")
	}
	return encoded, nil
}

// DeriveAccountViewKey derives the extended public key (xpub) for a BIP44
// account (m/44'/coinType'/account') without exposing any private key,
// enabling read-only address derivation downstream.
func DeriveAccountViewKey(seed []byte, chainID string, account uint32, registry chainregistry.Registry) (string, error) {
	params, err := registry.Lookup(chainID)
	if err != nil {
		return "", keyerr.Wrap(keyerr.ErrUnknownChain, "looking up chain %q", chainID)
	}

	master, err := hdkeychain.NewMaster(seed, hdNetParams{})
	if err != nil {
		return "", keyerr.Wrap(err, "deriving master key")
	}
	purpose, err := master.ChildBIP32Std(hdkeychain.HardenedKeyStart + 44)
	if err != nil {
		return "", keyerr.Wrap(err, "deriving purpose segment")
	}
	coin, err := purpose.ChildBIP32Std(hdkeychain.HardenedKeyStart + params.CoinType)
	if err != nil {
		return "", keyerr.Wrap(err, "deriving coin type segment")
	}
	accountKey, err := coin.ChildBIP32Std(hdkeychain.HardenedKeyStart + account)
	if err != nil {
		return "", keyerr.Wrap(err, "deriving account segment")
	}

	return accountKey.Neuter().String(), nil
}

// DeriveAddressFromViewKey derives a receive address at change/index from a
// previously exported xpub string, never touching the seed.
func DeriveAddressFromViewKey(xpubStr string, change, index uint32, chainID string, registry chainregistry.Registry) (string, error) {
	params, err := registry.Lookup(chainID)
	if err != nil {
		return "", keyerr.Wrap(keyerr.ErrUnknownChain, "looking up chain %q", chainID)
	}

	xpub, err := hdkeychain.NewKeyFromString(xpubStr, hdNetParams{})
	if err != nil {
		return "", keyerr.Wrap(err, "parsing view key")
	}
	if xpub.IsPrivate() {
		return "", keyerr.New("INVALID_VIEW_KEY", "expected an extended public key but got a private key")
	}

	changeKey, err := xpub.ChildBIP32Std(change)
	if err != nil {
		return "", keyerr.Wrap(err, "deriving change segment")
	}
	indexKey, err := changeKey.ChildBIP32Std(index)
	if err != nil {
		return "", keyerr.Wrap(err, "deriving index segment")
	}

	return encodeImplicitAddress(indexKey.SerializedPubKey(), params)
}
