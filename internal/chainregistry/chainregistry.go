// Package chainregistry defines the chain-registry collaborator contract
// (spec.md §6): mapping a chain identifier to its BIP44 coin type, its
// address/key bech32m human-readable parts, and the hash function used to
// turn a public key into an implicit address. The registry itself is an
// external collaborator — this package ships one in-memory reference table
// so the rest of the keyring is runnable without a real chain-metadata
// service.
package chainregistry

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD-160 is required by the Hash160 address scheme, not a security choice
)

// AddressHash turns a compressed public key into the bytes an implicit
// address is built from.
type AddressHash func(pubKey []byte) []byte

// Params describes everything transparent and shielded derivation need to
// know about one chain.
type Params struct {
	// CoinType is the BIP44 coin type used in m/44'/coinType'/...
	CoinType uint32

	// AddressHRP is the bech32m human-readable part for implicit addresses.
	AddressHRP string

	// SpendingKeyHRP is the bech32m human-readable part for shielded
	// extended spending keys. Empty for chains with no shielded pool.
	SpendingKeyHRP string

	// ViewingKeyHRP is the bech32m human-readable part for shielded
	// extended full viewing keys. Empty for chains with no shielded pool.
	ViewingKeyHRP string

	// PaymentAddressHRP is the bech32m human-readable part for shielded
	// payment addresses. Empty for chains with no shielded pool.
	PaymentAddressHRP string

	// Hash is the address-hash function applied to a compressed public key
	// before bech32m encoding (spec.md §4.2 step 4).
	Hash AddressHash

	// Shielded reports whether this chain has a Sapling-style shielded pool.
	Shielded bool
}

// ErrUnknownChain indicates a chain registry miss (spec.md §7: UnknownChain).
var ErrUnknownChain = fmt.Errorf("unknown chain")

// Registry resolves a chain identifier to its derivation parameters.
type Registry interface {
	Lookup(chainID string) (Params, error)
}

// Static is an in-memory Registry backed by a fixed table.
type Static struct {
	chains map[string]Params
}

// NewStatic builds a Static registry seeded with the given table.
func NewStatic(chains map[string]Params) *Static {
	table := make(map[string]Params, len(chains))
	for id, params := range chains {
		table[id] = params
	}
	return &Static{chains: table}
}

// Lookup implements Registry.
func (s *Static) Lookup(chainID string) (Params, error) {
	params, ok := s.chains[chainID]
	if !ok {
		return Params{}, fmt.Errorf("%w: %s", ErrUnknownChain, chainID)
	}
	return params, nil
}

// Hash160 is sha256-then-ripemd160, the classic Bitcoin-style
// public-key-to-address hash, reused here as the default AddressHash for
// transparent chains in the reference table.
func Hash160(pubKey []byte) []byte {
	sum := sha256.Sum256(pubKey)
	h := ripemd160.New() //nolint:gosec // RIPEMD-160 required by the address scheme, not used for integrity
	h.Write(sum[:])
	return h.Sum(nil)
}

// Default returns the reference chain table used by the CLI and tests: one
// transparent-only chain and one chain with a shielded pool, echoing the
// teacher's ETH/BSV table generalized to bech32m addressing.
func Default() *Static {
	return NewStatic(map[string]Params{
		"gaia": {
			CoinType:   118,
			AddressHRP: "gaia",
			Hash:       Hash160,
		},
		"nam": {
			CoinType:          877,
			AddressHRP:        "nam",
			SpendingKeyHRP:    "zxsknam",
			ViewingKeyHRP:     "zxfvknam",
			PaymentAddressHRP: "znam",
			Hash:              Hash160,
			Shielded:          true,
		},
	})
}
