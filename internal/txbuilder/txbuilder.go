// Package txbuilder defines the transaction-builder collaborator contract
// named in spec.md §6: an external component that learns private keys and
// spending keys as the keystore derives them, and exposes an opaque
// per-parent byte blob the keystore can snapshot and restore. This package
// ships one in-memory reference implementation good enough to exercise the
// keystore end to end; a real deployment wires in its own Builder.
package txbuilder

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/shroudhq/shroud-keyring/internal/cryptobox"
	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

// Builder is the external transaction-builder contract (spec.md §6):
// "add_key(privHex, password, alias)", "add_spending_key(xskBytes,
// password, alias)", and encode()/decode() to snapshot per-parent state.
type Builder interface {
	// AddKey registers a transparent private key under alias, scoped to
	// parentID, so the builder can later sign with it.
	AddKey(ctx context.Context, parentID, privHex, password, alias string) error

	// AddSpendingKey registers a shielded extended spending key under
	// alias, scoped to parentID.
	AddSpendingKey(ctx context.Context, parentID string, xskBytes []byte, password, alias string) error

	// Snapshot serializes parentID's opaque per-parent secret cache.
	Snapshot(parentID string) ([]byte, error)

	// Restore replaces parentID's secret cache from a prior Snapshot.
	Restore(parentID string, data []byte) error

	// Forget discards parentID's entire secret cache, used on account
	// deletion cascades.
	Forget(parentID string) error
}

// keyEntry is one registered secret, keyed by alias within a parent. The
// secret itself (privHex or xskBytes) never appears in plain form here: it
// is sealed with cryptobox under the same password the keystore used to
// derive it, so a Snapshot blob is safe to persist via kvstore.Store.Put
// (spec.md §8 Testable Property 9 — no plaintext secret ever reaches the
// persisted store).
type keyEntry struct {
	Alias  string `json:"alias"`
	Kind   string `json:"kind"` // "transparent" or "shielded"
	Sealed []byte `json:"sealed"`
}

// InMemory is a map-backed reference Builder. Every parent's cache is a
// list of keyEntry values; Snapshot/Restore round-trip it as JSON, standing
// in for whatever binary format a real signing backend would use.
type InMemory struct {
	mu    sync.Mutex
	cache map[string][]keyEntry
}

// NewInMemory creates an empty InMemory builder.
func NewInMemory() *InMemory {
	return &InMemory{cache: make(map[string][]keyEntry)}
}

// AddKey implements Builder.
func (b *InMemory) AddKey(_ context.Context, parentID, privHex, password, alias string) error {
	sealed, err := cryptobox.Encrypt([]byte(privHex), password)
	if err != nil {
		return keyerr.Wrap(err, "sealing transparent key")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache[parentID] = append(b.cache[parentID], keyEntry{
		Alias:  alias,
		Kind:   "transparent",
		Sealed: sealed,
	})
	return nil
}

// AddSpendingKey implements Builder.
func (b *InMemory) AddSpendingKey(_ context.Context, parentID string, xskBytes []byte, password, alias string) error {
	sealed, err := cryptobox.Encrypt(xskBytes, password)
	if err != nil {
		return keyerr.Wrap(err, "sealing spending key")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache[parentID] = append(b.cache[parentID], keyEntry{
		Alias:  alias,
		Kind:   "shielded",
		Sealed: sealed,
	})
	return nil
}

// Snapshot implements Builder.
func (b *InMemory) Snapshot(parentID string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.cache[parentID]
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, keyerr.Wrap(err, "encoding builder snapshot")
	}
	return data, nil
}

// Restore implements Builder.
func (b *InMemory) Restore(parentID string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(data) == 0 {
		b.cache[parentID] = nil
		return nil
	}

	var entries []keyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return keyerr.Wrap(err, "decoding builder snapshot")
	}
	b.cache[parentID] = entries
	return nil
}

// Forget implements Builder.
func (b *InMemory) Forget(parentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cache, parentID)
	return nil
}
