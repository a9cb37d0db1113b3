// Package cryptobox turns (password, plaintext) into a self-describing
// encrypted blob and back (spec.md §4.4), using scrypt for key derivation
// and XChaCha20-Poly1305 for authenticated encryption, serialized to the
// exact byte layout mandated by spec.md §6.
package cryptobox

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

const (
	versionByte = 1
	kdfScrypt   = 1
	aeadXChaCha = 1

	saltSize  = 32
	nonceSize = 24
	keySize   = 32
	tagSize   = 16

	defaultLogN = 15
	defaultR    = 8
	defaultP    = 1

	minLogN = 10
	maxLogN = 22
)

// workFactor is the package-wide scrypt logN, adjustable for fast tests
// while defaulting to spec.md's production value of 15.
var workFactor atomic.Int32

func init() {
	workFactor.Store(defaultLogN)
}

// SetWorkFactor overrides the scrypt logN used by future Encrypt calls,
// clamped to [10, 22]. Existing blobs are unaffected — their own logN
// travels with them.
func SetWorkFactor(logN int) {
	if logN < minLogN {
		logN = minLogN
	} else if logN > maxLogN {
		logN = maxLogN
	}
	workFactor.Store(int32(logN))
}

// Params captures the KDF and AEAD parameters used to wrap one blob.
type Params struct {
	LogN uint8
	R    uint8
	P    uint8
	Salt [saltSize]byte
}

// Blob is a parsed encrypted-blob: its KDF parameters, nonce, ciphertext,
// and authentication tag, matching spec.md §6's wire layout field for field.
type Blob struct {
	Params     Params
	Nonce      [nonceSize]byte
	Ciphertext []byte
	Tag        [tagSize]byte
}

// Encrypt draws fresh salt and nonce, derives a key via scrypt, seals
// plaintext with XChaCha20-Poly1305, and serializes the result. The
// derived key is zeroed before returning.
func Encrypt(plaintext []byte, password string) ([]byte, error) {
	var params Params
	params.LogN = uint8(workFactor.Load())
	params.R = defaultR
	params.P = defaultP
	if _, err := rand.Read(params.Salt[:]); err != nil {
		return nil, keyerr.Wrap(err, "drawing salt")
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, keyerr.Wrap(err, "drawing nonce")
	}

	key, err := deriveKey(password, params)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, keyerr.Wrap(err, "initializing aead")
	}

	sealed := aead.Seal(nil, nonce[:], plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	var tag [tagSize]byte
	copy(tag[:], sealed[len(sealed)-tagSize:])

	blob := Blob{Params: params, Nonce: nonce, Ciphertext: ciphertext, Tag: tag}
	return serialize(blob), nil
}

// Decrypt parses blob, re-derives the key from its embedded params, and
// opens the AEAD. Authentication failure is reported as ErrBadPassword
// exactly (spec.md §4.4's checkPassword contract relies on this).
func Decrypt(blob []byte, password string) ([]byte, error) {
	parsed, err := deserialize(blob)
	if err != nil {
		return nil, err
	}

	key, err := deriveKey(password, parsed.Params)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, keyerr.Wrap(err, "initializing aead")
	}

	sealed := append(append([]byte{}, parsed.Ciphertext...), parsed.Tag[:]...)
	plaintext, err := aead.Open(nil, parsed.Nonce[:], sealed, nil)
	if err != nil {
		return nil, keyerr.ErrBadPassword
	}
	return plaintext, nil
}

// CheckPassword reports whether password successfully decrypts blob,
// discarding the plaintext (spec.md §4.4's checkPassword contract).
func CheckPassword(blob []byte, password string) bool {
	plaintext, err := Decrypt(blob, password)
	if err != nil {
		return false
	}
	zero(plaintext)
	return true
}

func deriveKey(password string, params Params) ([]byte, error) {
	n := 1 << params.LogN
	key, err := scrypt.Key([]byte(password), params.Salt[:], n, int(params.R), int(params.P), keySize)
	if err != nil {
		return nil, keyerr.Wrap(err, "deriving key")
	}
	return key, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// serialize writes a Blob to spec.md §6's exact byte layout.
func serialize(b Blob) []byte {
	out := make([]byte, 0, 8+saltSize+nonceSize+4+len(b.Ciphertext)+2+tagSize)
	out = append(out, versionByte, kdfScrypt, b.Params.LogN, b.Params.R, b.Params.P)
	out = append(out, b.Params.Salt[:]...)
	out = append(out, aeadXChaCha)
	out = append(out, b.Nonce[:]...)

	var ctLen [4]byte
	binary.LittleEndian.PutUint32(ctLen[:], uint32(len(b.Ciphertext)))
	out = append(out, ctLen[:]...)
	out = append(out, b.Ciphertext...)

	var tagLen [2]byte
	binary.LittleEndian.PutUint16(tagLen[:], tagSize)
	out = append(out, tagLen[:]...)
	out = append(out, b.Tag[:]...)
	return out
}

// deserialize parses spec.md §6's exact byte layout back into a Blob.
func deserialize(raw []byte) (Blob, error) {
	const headerSize = 1 + 1 + 1 + 1 + 1 + saltSize + 1 + nonceSize + 4
	if len(raw) < headerSize {
		return Blob{}, keyerr.New("INVALID_BLOB", "blob shorter than fixed header")
	}

	pos := 0
	readByte := func() byte {
		b := raw[pos]
		pos++
		return b
	}

	version := readByte()
	if version != versionByte {
		return Blob{}, keyerr.New("INVALID_BLOB", fmt.Sprintf("unsupported blob version %d", version))
	}
	kdfID := readByte()
	if kdfID != kdfScrypt {
		return Blob{}, keyerr.New("INVALID_BLOB", fmt.Sprintf("unsupported kdf id %d", kdfID))
	}

	var params Params
	params.LogN = readByte()
	params.R = readByte()
	params.P = readByte()
	copy(params.Salt[:], raw[pos:pos+saltSize])
	pos += saltSize

	aeadID := readByte()
	if aeadID != aeadXChaCha {
		return Blob{}, keyerr.New("INVALID_BLOB", fmt.Sprintf("unsupported aead id %d", aeadID))
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[pos:pos+nonceSize])
	pos += nonceSize

	ctLen := binary.LittleEndian.Uint32(raw[pos : pos+4])
	pos += 4

	if len(raw) < pos+int(ctLen)+2+tagSize {
		return Blob{}, keyerr.New("INVALID_BLOB", "blob shorter than declared ciphertext/tag length")
	}
	ciphertext := append([]byte{}, raw[pos:pos+int(ctLen)]...)
	pos += int(ctLen)

	tagLen := binary.LittleEndian.Uint16(raw[pos : pos+2])
	pos += 2
	if int(tagLen) != tagSize {
		return Blob{}, keyerr.New("INVALID_BLOB", fmt.Sprintf("unexpected tag length %d", tagLen))
	}

	var tag [tagSize]byte
	copy(tag[:], raw[pos:pos+tagSize])

	return Blob{Params: params, Nonce: nonce, Ciphertext: ciphertext, Tag: tag}, nil
}
