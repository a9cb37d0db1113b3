// Package keystore implements the persisted collection of account records
// described in spec.md §4.5: a parent/child record store with an
// Empty/Locked/Unlocked lifecycle, atomic password rotation, and cascading
// delete.
package keystore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shroudhq/shroud-keyring/internal/chainregistry"
	"github.com/shroudhq/shroud-keyring/internal/cryptobox"
	"github.com/shroudhq/shroud-keyring/internal/kvstore"
	"github.com/shroudhq/shroud-keyring/internal/mnemonic"
	"github.com/shroudhq/shroud-keyring/internal/shielded"
	"github.com/shroudhq/shroud-keyring/internal/transparent"
	"github.com/shroudhq/shroud-keyring/internal/txbuilder"
	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

// State is the keystore's lifecycle state (spec.md §4.5, §9).
type State int

const (
	Empty State = iota
	Locked
	Unlocked
)

// Keystore holds the keystore's mutable state behind one mutex — spec.md
// §9's "model it as an explicit field of the keystore value, not a
// module-level variable" — rather than package globals.
type Keystore struct {
	mu sync.Mutex

	store    kvstore.Store
	registry chainregistry.Registry
	builder  txbuilder.Builder

	records  map[string]Record
	children map[string][]string // parentID -> child ids, in insertion order

	activeID string
	password string
	state    State
}

// New constructs a Keystore over store, loading any previously persisted
// records and active-id marker.
func New(store kvstore.Store, registry chainregistry.Registry, builder txbuilder.Builder) (*Keystore, error) {
	ks := &Keystore{
		store:    store,
		registry: registry,
		builder:  builder,
		records:  make(map[string]Record),
		children: make(map[string][]string),
	}
	if err := ks.load(); err != nil {
		return nil, err
	}
	return ks, nil
}

func (ks *Keystore) load() error {
	raw, err := ks.store.Get(kvstore.KeyKeyStore)
	if err != nil {
		return keyerr.Wrap(err, "reading key-store")
	}
	if len(raw) > 0 {
		var records []Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return keyerr.Wrap(err, "decoding key-store")
		}
		for _, r := range records {
			ks.insertRecord(r)
		}
	}

	activeRaw, err := ks.store.Get(kvstore.KeyActiveID)
	if err != nil {
		return keyerr.Wrap(err, "reading active account id")
	}
	ks.activeID = string(activeRaw)

	if len(ks.records) == 0 {
		ks.state = Empty
	} else {
		ks.state = Locked
	}
	return nil
}

func (ks *Keystore) insertRecord(r Record) {
	ks.records[r.ID] = r
	if r.ParentID != "" {
		ks.children[r.ParentID] = append(ks.children[r.ParentID], r.ID)
	}
}

func (ks *Keystore) persistRecords() error {
	ordered := make([]Record, 0, len(ks.records))
	for _, r := range ks.records {
		ordered = append(ordered, r)
	}
	data, err := json.Marshal(ordered)
	if err != nil {
		return keyerr.Wrap(err, "encoding key-store")
	}
	if err := ks.store.Put(kvstore.KeyKeyStore, data); err != nil {
		return keyerr.Wrap(err, "writing key-store")
	}
	return nil
}

func (ks *Keystore) persistActiveID() error {
	if ks.activeID == "" {
		return ks.store.Delete(kvstore.KeyActiveID)
	}
	return ks.store.Put(kvstore.KeyActiveID, []byte(ks.activeID))
}

// GenerateMnemonic returns a fresh phrase; it is never persisted
// (spec.md §4.5).
func (*Keystore) GenerateMnemonic(size int) (string, error) {
	return mnemonic.Generate(size)
}

// StoreMnemonic validates phrase, derives the root transparent account,
// persists the encrypted phrase as a new parent record, and marks it
// active (spec.md §4.5).
func (ks *Keystore) StoreMnemonic(ctx context.Context, phrase, password, alias, chainID string) (Public, error) {
	if password == "" {
		return Public{}, keyerr.ErrNoPassword
	}
	if err := mnemonic.Validate(phrase); err != nil {
		return Public{}, err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	seed, err := mnemonic.ToSeed(phrase, "")
	if err != nil {
		return Public{}, err
	}
	defer mnemonic.Zero(seed)

	rootPath := transparent.Path{Account: 0, Change: 0, HasIndex: false}
	rootAccount, err := transparent.Derive(seed, rootPath, chainID, ks.registry)
	if err != nil {
		return Public{}, err
	}
	defer zero(rootAccount.PrivateKey[:])

	id := parentID(phrase, len(ks.records))
	if _, exists := ks.records[id]; exists {
		return Public{}, keyerr.ErrDuplicate
	}

	crypto, err := cryptobox.Encrypt([]byte(phrase), password)
	if err != nil {
		return Public{}, err
	}

	record := Record{
		ID:      id,
		Alias:   alias,
		ChainID: chainID,
		Path:    Path{Account: 0, Change: 0},
		Type:    TypeMnemonic,
		Address: rootAccount.Address,
		Owner:   rootAccount.Address,
		Crypto:  crypto,
	}
	ks.insertRecord(record)

	privHex := hex.EncodeToString(rootAccount.PrivateKey[:])
	if err := ks.builder.AddKey(ctx, id, privHex, password, alias); err != nil {
		delete(ks.records, id)
		return Public{}, keyerr.Wrap(err, "registering root key with transaction builder")
	}

	ks.activeID = id
	ks.password = password
	ks.state = Unlocked

	if err := ks.persistRecords(); err != nil {
		return Public{}, err
	}
	if err := ks.persistActiveID(); err != nil {
		return Public{}, err
	}
	return record.toPublic(), nil
}

// Unlock succeeds iff password decrypts the active parent's record,
// caching the password and transitioning to Unlocked (spec.md §4.5).
func (ks *Keystore) Unlock(password string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	active, ok := ks.records[ks.activeID]
	if !ok {
		return keyerr.ErrUnknownAccount
	}
	if !cryptobox.CheckPassword(active.Crypto, password) {
		return keyerr.ErrBadPassword
	}
	ks.password = password
	ks.state = Unlocked
	return nil
}

// Lock forgets the cached password and transitions to Locked. Idempotent;
// a no-op while Empty.
func (ks *Keystore) Lock() {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.password = ""
	if ks.state != Empty {
		ks.state = Locked
	}
}

// State reports the keystore's current lifecycle state.
func (ks *Keystore) State() State {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.state
}

// DeriveAccount requires Unlocked; it decrypts the active parent's phrase,
// dispatches to transparent or shielded derivation based on recordType,
// and appends the resulting child record (spec.md §4.5).
func (ks *Keystore) DeriveAccount(ctx context.Context, path Path, recordType Type, alias, chainID string) (Public, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.state != Unlocked {
		return Public{}, keyerr.ErrNoPassword
	}

	parent, ok := ks.records[ks.activeID]
	if !ok {
		return Public{}, keyerr.ErrUnknownAccount
	}

	phraseBytes, err := cryptobox.Decrypt(parent.Crypto, ks.password)
	if err != nil {
		return Public{}, err
	}
	phrase := string(phraseBytes)
	defer zero(phraseBytes)

	seed, err := mnemonic.ToSeed(phrase, "")
	if err != nil {
		return Public{}, err
	}
	defer mnemonic.Zero(seed)

	switch recordType {
	case TypePrivateKey:
		return ks.deriveTransparentChild(ctx, seed, parent.ID, path, alias, chainID)
	case TypeShieldedKeys:
		return ks.deriveShieldedChild(ctx, seed, parent.ID, path.Index, alias, chainID)
	default:
		return Public{}, keyerr.New("INVALID_RECORD_TYPE", fmt.Sprintf("cannot derive a %s account", recordType))
	}
}

func (ks *Keystore) deriveTransparentChild(ctx context.Context, seed []byte, parentID string, path Path, alias, chainID string) (Public, error) {
	tpath := transparent.Path{Account: path.Account, Change: path.Change, Index: path.Index, HasIndex: true}
	account, err := transparent.Derive(seed, tpath, chainID, ks.registry)
	if err != nil {
		return Public{}, err
	}
	defer zero(account.PrivateKey[:])

	id := transparentChildID(parentID, path)
	if _, exists := ks.records[id]; exists {
		return Public{}, keyerr.ErrDuplicate
	}

	crypto, err := cryptobox.Encrypt([]byte(hex.EncodeToString(account.PrivateKey[:])), ks.password)
	if err != nil {
		return Public{}, err
	}

	record := Record{
		ID:       id,
		ParentID: parentID,
		Alias:    alias,
		ChainID:  chainID,
		Path:     Path{Account: path.Account, Change: path.Change, Index: path.Index, HasIndex: true},
		Type:     TypePrivateKey,
		Address:  account.Address,
		Owner:    account.Address,
		Crypto:   crypto,
	}
	ks.insertRecord(record)

	privHex := hex.EncodeToString(account.PrivateKey[:])
	if err := ks.builder.AddKey(ctx, parentID, privHex, ks.password, alias); err != nil {
		ks.removeRecord(id)
		return Public{}, keyerr.Wrap(err, "registering key with transaction builder")
	}

	if err := ks.persistRecords(); err != nil {
		return Public{}, err
	}
	return record.toPublic(), nil
}

func (ks *Keystore) deriveShieldedChild(ctx context.Context, seed []byte, parentID string, index uint32, alias, chainID string) (Public, error) {
	account, err := shielded.Derive(seed, index, chainID, ks.registry)
	if err != nil {
		return Public{}, err
	}

	id := shieldedChildID(parentID, index)
	if _, exists := ks.records[id]; exists {
		return Public{}, keyerr.ErrDuplicate
	}

	secret := ShieldedSecret{SpendingKey: account.SpendingKeyText, ViewingKey: account.ViewingKeyText}
	secretBytes, err := json.Marshal(secret)
	if err != nil {
		return Public{}, keyerr.Wrap(err, "encoding shielded secret")
	}

	crypto, err := cryptobox.Encrypt(secretBytes, ks.password)
	if err != nil {
		return Public{}, err
	}

	record := Record{
		ID:       id,
		ParentID: parentID,
		Alias:    alias,
		ChainID:  chainID,
		Path:     Path{Index: index, HasIndex: true},
		Type:     TypeShieldedKeys,
		Address:  account.PaymentAddrText,
		Owner:    account.ViewingKeyText,
		Crypto:   crypto,
	}
	ks.insertRecord(record)

	xskBytes := shielded.SerializeXSK(account.Xsk)
	if err := ks.builder.AddSpendingKey(ctx, parentID, xskBytes, ks.password, alias); err != nil {
		ks.removeRecord(id)
		return Public{}, keyerr.Wrap(err, "registering spending key with transaction builder")
	}

	if err := ks.persistRecords(); err != nil {
		return Public{}, err
	}
	return record.toPublic(), nil
}

// ResetPassword verifies old against accountId's record, then re-encrypts
// every record with id = accountId or parentId = accountId under new,
// atomically: all records are staged before any are applied, so a mid-batch
// failure leaves the keystore untouched (spec.md §4.5, resolving spec.md
// §9's open question about rollback).
func (ks *Keystore) ResetPassword(old, newPassword, accountID string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	target, ok := ks.records[accountID]
	if !ok {
		return keyerr.ErrUnknownAccount
	}
	if !cryptobox.CheckPassword(target.Crypto, old) {
		return keyerr.ErrBadPassword
	}

	affected := []string{accountID}
	affected = append(affected, ks.children[accountID]...)

	staged := make(map[string][]byte, len(affected))
	for _, id := range affected {
		record := ks.records[id]
		plaintext, err := cryptobox.Decrypt(record.Crypto, old)
		if err != nil {
			return keyerr.Wrap(keyerr.ErrKeyStore, "decrypting record %s during rotation", id)
		}
		newBlob, err := cryptobox.Encrypt(plaintext, newPassword)
		zero(plaintext)
		if err != nil {
			return keyerr.Wrap(keyerr.ErrKeyStore, "re-encrypting record %s during rotation", id)
		}
		staged[id] = newBlob
	}

	for id, blob := range staged {
		record := ks.records[id]
		record.Crypto = blob
		ks.records[id] = record
	}

	if accountID == ks.activeID {
		ks.password = newPassword
	}

	return ks.persistRecords()
}

// DeleteAccount verifies password, then removes accountId and every record
// with parentId = accountId (spec.md §4.5).
func (ks *Keystore) DeleteAccount(accountID, password string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	target, ok := ks.records[accountID]
	if !ok {
		return keyerr.ErrUnknownAccount
	}
	if !cryptobox.CheckPassword(target.Crypto, password) {
		return keyerr.ErrBadPassword
	}

	if err := ks.builder.Forget(accountID); err != nil {
		return keyerr.Wrap(err, "forgetting builder state for %s", accountID)
	}

	for _, childID := range ks.children[accountID] {
		ks.removeRecord(childID)
	}
	ks.removeRecord(accountID)

	if accountID == ks.activeID {
		ks.activeID = ""
		ks.password = ""
		if len(ks.records) == 0 {
			ks.state = Empty
		} else {
			ks.state = Locked
		}
	}

	if err := ks.persistRecords(); err != nil {
		return err
	}
	return ks.persistActiveID()
}

func (ks *Keystore) removeRecord(id string) {
	record, ok := ks.records[id]
	if !ok {
		return
	}
	delete(ks.records, id)
	if record.ParentID != "" {
		siblings := ks.children[record.ParentID]
		for i, sibID := range siblings {
			if sibID == id {
				ks.children[record.ParentID] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	delete(ks.children, id)
}

// QueryAccounts returns the active parent plus its children, stripped of
// crypto (spec.md §4.5).
func (ks *Keystore) QueryAccounts() []Public {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.activeID == "" {
		return nil
	}
	parent, ok := ks.records[ks.activeID]
	if !ok {
		return nil
	}

	out := make([]Public, 0, 1+len(ks.children[ks.activeID]))
	out = append(out, parent.toPublic())
	for _, childID := range ks.children[ks.activeID] {
		out = append(out, ks.records[childID].toPublic())
	}
	return out
}

// QueryParentAccounts returns all Mnemonic-type records, stripped of
// crypto (spec.md §4.5).
func (ks *Keystore) QueryParentAccounts() []Public {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	var out []Public
	for _, r := range ks.records {
		if r.Type == TypeMnemonic {
			out = append(out, r.toPublic())
		}
	}
	return out
}

// SetActiveAccountId persists id as the active parent and rehydrates the
// transaction builder's per-parent view from the sdk-store side-store
// (spec.md §4.5, §6).
func (ks *Keystore) SetActiveAccountId(id string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	record, ok := ks.records[id]
	if !ok || record.Type != TypeMnemonic {
		return keyerr.ErrUnknownAccount
	}

	if ks.activeID != "" {
		if err := ks.snapshotActiveBuilderState(ks.activeID); err != nil {
			return err
		}
	}

	ks.activeID = id
	ks.password = ""
	ks.state = Locked

	if err := ks.restoreBuilderState(id); err != nil {
		return err
	}
	return ks.persistActiveID()
}

func (ks *Keystore) sdkStore() (map[string][]byte, error) {
	raw, err := ks.store.Get(kvstore.KeySDKStore)
	if err != nil {
		return nil, keyerr.Wrap(err, "reading sdk-store")
	}
	table := make(map[string][]byte)
	if len(raw) == 0 {
		return table, nil
	}
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, keyerr.Wrap(err, "decoding sdk-store")
	}
	return table, nil
}

func (ks *Keystore) snapshotActiveBuilderState(parentID string) error {
	snap, err := ks.builder.Snapshot(parentID)
	if err != nil {
		return keyerr.Wrap(err, "snapshotting builder state for %s", parentID)
	}

	table, err := ks.sdkStore()
	if err != nil {
		return err
	}
	table[parentID] = snap

	data, err := json.Marshal(table)
	if err != nil {
		return keyerr.Wrap(err, "encoding sdk-store")
	}
	return ks.store.Put(kvstore.KeySDKStore, data)
}

func (ks *Keystore) restoreBuilderState(parentID string) error {
	table, err := ks.sdkStore()
	if err != nil {
		return err
	}
	return ks.builder.Restore(parentID, table[parentID])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Export returns every record (still individually encrypted under their own
// cryptobox blobs) plus the active parent id, for the backup package to
// snapshot independently of the per-record AEAD scheme (spec.md §4.7).
func (ks *Keystore) Export() ([]Record, string) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	records := make([]Record, 0, len(ks.records))
	for _, r := range ks.records {
		records = append(records, r)
	}
	return records, ks.activeID
}

// Import replaces the keystore's entire record set and active id, used by
// the backup package's restore path. Any cached password is discarded;
// callers must Unlock again afterward.
func (ks *Keystore) Import(records []Record, activeID string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.records = make(map[string]Record)
	ks.children = make(map[string][]string)
	for _, r := range records {
		ks.insertRecord(r)
	}
	ks.activeID = activeID
	ks.password = ""
	if len(ks.records) == 0 {
		ks.state = Empty
	} else {
		ks.state = Locked
	}

	if err := ks.persistRecords(); err != nil {
		return err
	}
	return ks.persistActiveID()
}
