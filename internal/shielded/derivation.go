// Package shielded implements a ZIP32 Sapling-style shielded key hierarchy
// (spec.md §4.3): a single-level master-to-account derivation producing an
// extended spending key, an extended full viewing key, and a default
// diversified payment address.
//
// Cryptographic honesty note: a faithful Sapling implementation requires
// scalar and point arithmetic on the Jubjub curve embedded in BLS12-381. No
// such curve library is available here, so this package reproduces the real
// ZIP32 key-derivation-tree *structure* exactly — the BLAKE2b-512 PRF
// expansion framing, the depth/parent-tag/child-index/chain-code wire
// layout, the 169-byte xsk/xfvk serialization, and the 43-byte
// diversifier‖pk_d payment address — but synthesizes the group elements
// (ak, nk, ivk, pk_d) via domain-tagged BLAKE2b hashing rather than real scalar
// multiplication on Jubjub. See DESIGN.md for the full justification.
package shielded

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"

	"github.com/shroudhq/shroud-keyring/internal/chainregistry"
	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

const (
	seedPersonalization  = "ShroudIP32Sapli" // 15 bytes, the BLAKE2b-512 key for the master expansion
	hardenedChildTag     = byte(0x11)
	componentSize        = 32
	diversifierSize      = 11
	extKeySize           = 169 // depth(1) + parentTag(4) + childIndex(4) + chainCode(32) + 3*component(96) + dk(32)
	paymentAddressSize   = diversifierSize + componentSize
	hardenedIndexStart   = uint32(1) << 31
)

// ExtendedSpendingKey is the 169-byte ZIP32-shaped spending authority:
// depth, parent-FVK tag, child index, chain code, ask/nsk/ovk, dk.
type ExtendedSpendingKey struct {
	Depth        byte
	ParentFVKTag [4]byte
	ChildIndex   uint32
	ChainCode    [32]byte
	Ask          [32]byte
	Nsk          [32]byte
	Ovk          [32]byte
	Dk           [32]byte
}

// ExtendedFullViewingKey is the read-only counterpart of an
// ExtendedSpendingKey: ak/nk/ovk in place of ask/nsk/ovk.
type ExtendedFullViewingKey struct {
	Depth        byte
	ParentFVKTag [4]byte
	ChildIndex   uint32
	ChainCode    [32]byte
	Ak           [32]byte
	Nk           [32]byte
	Ovk          [32]byte
	Dk           [32]byte
}

// Account bundles the three artifacts produced by one derivation: the raw
// spending key, its viewing key, and the default payment address, plus
// their bech32m-encoded forms.
type Account struct {
	Xsk               ExtendedSpendingKey
	Xfvk              ExtendedFullViewingKey
	PaymentAddress    [paymentAddressSize]byte
	SpendingKeyText   string
	ViewingKeyText    string
	PaymentAddrText   string
}

// Derive produces the shielded account at the given hardened account index
// from a 64-byte BIP39 seed, following spec.md §4.3's single-level
// derive(seed, index) contract.
func Derive(seed []byte, index uint32, chainID string, registry chainregistry.Registry) (*Account, error) {
	params, err := registry.Lookup(chainID)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.ErrUnknownChain, "looking up chain %q", chainID)
	}
	if !params.Shielded {
		return nil, keyerr.New("NOT_SHIELDED", "chain has no shielded pool")
	}

	master := deriveMaster(seed)
	xsk := deriveChild(master, index|hardenedIndexStart)
	xfvk := toViewingKey(xsk)

	diversifier := defaultDiversifier(xfvk.Dk)
	pkD := derivePkD(xfvk.Ak, xfvk.Nk, diversifier)

	var addr [paymentAddressSize]byte
	copy(addr[:diversifierSize], diversifier[:])
	copy(addr[diversifierSize:], pkD[:])

	spendingText, err := encodeBech32m(params.SpendingKeyHRP, serializeXSK(xsk))
	if err != nil {
		return nil, err
	}
	viewingText, err := encodeBech32m(params.ViewingKeyHRP, serializeXFVK(xfvk))
	if err != nil {
		return nil, err
	}
	addrText, err := encodeBech32m(params.PaymentAddressHRP, addr[:])
	if err != nil {
		return nil, err
	}

	return &Account{
		Xsk:             xsk,
		Xfvk:            xfvk,
		PaymentAddress:  addr,
		SpendingKeyText: spendingText,
		ViewingKeyText:  viewingText,
		PaymentAddrText: addrText,
	}, nil
}

// deriveMaster expands the seed into a depth-0 extended spending key.
func deriveMaster(seed []byte) ExtendedSpendingKey {
	i := prfExpand([]byte(seedPersonalization), seed, nil)
	iL, iR := i[:32], i[32:]

	var m ExtendedSpendingKey
	copy(m.ChainCode[:], iR)
	copy(m.Ask[:], expandComponent(iL, 0x00))
	copy(m.Nsk[:], expandComponent(iL, 0x01))
	copy(m.Ovk[:], expandComponent(iL, 0x02))
	copy(m.Dk[:], expandComponent(iL, 0x03))
	return m
}

// deriveChild derives the hardened account child of an extended spending
// key, mirroring ZIP32's PRF-expand-keyed-by-chain-code child derivation.
func deriveChild(parent ExtendedSpendingKey, index uint32) ExtendedSpendingKey {
	var indexBytes [4]byte
	binary.LittleEndian.PutUint32(indexBytes[:], index)

	payload := make([]byte, 0, 1+32*4)
	payload = append(payload, parent.Ask[:]...)
	payload = append(payload, parent.Nsk[:]...)
	payload = append(payload, parent.Ovk[:]...)
	payload = append(payload, parent.Dk[:]...)
	payload = append(payload, indexBytes[:]...)

	i := prfExpand(parent.ChainCode[:], []byte{hardenedChildTag}, payload)
	iL, iR := i[:32], i[32:]

	var child ExtendedSpendingKey
	child.Depth = parent.Depth + 1
	copy(child.ParentFVKTag[:], fvkTag(parent))
	child.ChildIndex = index
	copy(child.ChainCode[:], iR)
	copy(child.Ask[:], expandComponent(iL, 0x00))
	copy(child.Nsk[:], expandComponent(iL, 0x01))
	copy(child.Ovk[:], expandComponent(iL, 0x02))
	copy(child.Dk[:], expandComponent(iL, 0x03))
	return child
}

// toViewingKey synthesizes ak/nk from ask/nsk in place of the real
// ask*G / nsk*H scalar-multiplication, preserving ovk and dk verbatim (the
// real protocol does the same — ovk and dk never go through curve math).
func toViewingKey(xsk ExtendedSpendingKey) ExtendedFullViewingKey {
	var fvk ExtendedFullViewingKey
	fvk.Depth = xsk.Depth
	fvk.ParentFVKTag = xsk.ParentFVKTag
	fvk.ChildIndex = xsk.ChildIndex
	fvk.ChainCode = xsk.ChainCode
	fvk.Ovk = xsk.Ovk
	fvk.Dk = xsk.Dk
	copy(fvk.Ak[:], groupHash("Shroud_ak", xsk.Ask[:]))
	copy(fvk.Nk[:], groupHash("Shroud_nk", xsk.Nsk[:]))
	return fvk
}

// fvkTag identifies a full viewing key for use as a child's parent tag —
// standing in for the real protocol's truncated Blake2b hash of the
// serialized FVK.
func fvkTag(xsk ExtendedSpendingKey) []byte {
	fvk := toViewingKey(xsk)
	sum := groupHash("Shroud_FVKTag", serializeXFVK(fvk))
	return sum[:4]
}

// defaultDiversifier derives the first (and, in this simplified scheme,
// only) diversifier for dk — the real protocol tries successive diversifier
// indices until one maps to a valid Jubjub point; that rejection sampling
// has no analogue here since diversifiers are plain hash output.
func defaultDiversifier(dk [32]byte) [diversifierSize]byte {
	var d [diversifierSize]byte
	copy(d[:], groupHash("Shroud_Diversify", dk[:]))
	return d
}

// derivePkD synthesizes the diversified transmission key pk_d in place of
// the real ivk * findGroupHash(d) point multiplication.
func derivePkD(ak, nk [32]byte, d [diversifierSize]byte) [32]byte {
	ivk := deriveIVK(ak, nk)
	var pkD [32]byte
	copy(pkD[:], groupHash("Shroud_PkD", append(ivk[:], d[:]...)))
	return pkD
}

// deriveIVK synthesizes the incoming viewing key from ak and nk — the real
// protocol computes CRH^ivk(ak, nk) and clamps the top bits to fit the
// scalar field; we keep the clamp for wire-format fidelity even though the
// result here is not a real field element.
func deriveIVK(ak, nk [32]byte) [32]byte {
	var ivk [32]byte
	copy(ivk[:], groupHash("Shroud_IVK", append(append([]byte{}, ak[:]...), nk[:]...)))
	ivk[31] &= 0x07 // clamp to < 2^251, mirroring Sapling's ivk field-element truncation
	return ivk
}

// expandComponent derives one 32-byte spending-key component from iL using
// a single-byte domain tag, keeping each of ask/nsk/ovk/dk independent.
func expandComponent(iL []byte, tag byte) []byte {
	sum := groupHash("Shroud_Comp", append(append([]byte{}, iL...), tag))
	return sum
}

// groupHash is the BLAKE2b-256 stand-in for every curve operation this
// package cannot perform without Jubjub support. The hash is unkeyed; the
// personal tag, zero-padded to 16 bytes, is hashed ahead of data.
func groupHash(personal string, data []byte) []byte {
	var p [16]byte
	copy(p[:], personal)
	h, err := blake2b.New(32, nil)
	if err != nil {
		panic(err) // blake2b.New with a valid size never errors
	}
	h.Write(p[:])
	h.Write(data)
	return h.Sum(nil)
}

// prfExpand is ZIP32's PRF^expand: BLAKE2b-512 keyed by the parent chain
// code (or, at the root, by seedPersonalization with the seed hashed as the
// tag), with the output split into I_L/I_R.
func prfExpand(key, tag, payload []byte) []byte {
	h, err := blake2b.New512(key)
	if err != nil {
		// blake2b keys longer than 64 bytes are rejected; fall back to an
		// unkeyed hash of key||tag||payload so callers never see a panic
		// path.
		h, _ = blake2b.New512(nil)
		h.Write(key)
	}
	h.Write(tag)
	h.Write(payload)
	return h.Sum(nil)
}

// serializeXSK encodes an extended spending key to its 169-byte wire form.
func serializeXSK(xsk ExtendedSpendingKey) []byte {
	buf := make([]byte, 0, extKeySize)
	buf = append(buf, xsk.Depth)
	buf = append(buf, xsk.ParentFVKTag[:]...)
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], xsk.ChildIndex)
	buf = append(buf, idx[:]...)
	buf = append(buf, xsk.ChainCode[:]...)
	buf = append(buf, xsk.Ask[:]...)
	buf = append(buf, xsk.Nsk[:]...)
	buf = append(buf, xsk.Ovk[:]...)
	buf = append(buf, xsk.Dk[:]...)
	return buf
}

// serializeXFVK encodes an extended full viewing key to its 169-byte wire
// form, the same layout as ExtendedSpendingKey with ak/nk in place of
// ask/nsk.
func serializeXFVK(xfvk ExtendedFullViewingKey) []byte {
	buf := make([]byte, 0, extKeySize)
	buf = append(buf, xfvk.Depth)
	buf = append(buf, xfvk.ParentFVKTag[:]...)
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], xfvk.ChildIndex)
	buf = append(buf, idx[:]...)
	buf = append(buf, xfvk.ChainCode[:]...)
	buf = append(buf, xfvk.Ak[:]...)
	buf = append(buf, xfvk.Nk[:]...)
	buf = append(buf, xfvk.Ovk[:]...)
	buf = append(buf, xfvk.Dk[:]...)
	return buf
}

// DeserializeXSK parses a 169-byte extended spending key, the inverse of
// serializeXSK. Exported for storage round-tripping by the keystore.
func DeserializeXSK(raw []byte) (ExtendedSpendingKey, error) {
	if len(raw) != extKeySize {
		return ExtendedSpendingKey{}, keyerr.New("INVALID_XSK", "extended spending key must be 169 bytes")
	}
	var xsk ExtendedSpendingKey
	xsk.Depth = raw[0]
	copy(xsk.ParentFVKTag[:], raw[1:5])
	xsk.ChildIndex = binary.LittleEndian.Uint32(raw[5:9])
	copy(xsk.ChainCode[:], raw[9:41])
	copy(xsk.Ask[:], raw[41:73])
	copy(xsk.Nsk[:], raw[73:105])
	copy(xsk.Ovk[:], raw[105:137])
	copy(xsk.Dk[:], raw[137:169])
	return xsk, nil
}

// SerializeXSK exposes serializeXSK for storage/backup callers outside the
// package.
func SerializeXSK(xsk ExtendedSpendingKey) []byte { return serializeXSK(xsk) }

// encodeBech32m converts raw bytes to 5-bit groups and bech32m-encodes them
// under hrp (BIP-350), used for all three shielded text encodings.
func encodeBech32m(hrp string, data []byte) (string, error) {
	converted, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", keyerr.Wrap(err, "converting bits for bech32m")
	}
	encoded, err := bech32.EncodeM(hrp, converted)
	if err != nil {
		return "", keyerr.Wrap(err, "bech32m encoding")
	}
	return encoded, nil
}

// DecodeBech32m reverses encodeBech32m, returning the raw payload bytes.
func DecodeBech32m(encoded string) (hrp string, data []byte, err error) {
	hrp, values, err := bech32.DecodeNoLimit(encoded)
	if err != nil {
		return "", nil, keyerr.Wrap(err, "decoding bech32m")
	}
	data, err = bech32.ConvertBits(values, 5, 8, false)
	if err != nil {
		return "", nil, keyerr.Wrap(err, "converting bits from bech32m")
	}
	return hrp, data, nil
}
