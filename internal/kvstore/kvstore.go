// Package kvstore defines the abstract KV persistence driver named in
// spec.md §6 ("bytes in, bytes out") and ships a file-backed reference
// implementation so the keystore is runnable without a real external
// store. Production deployments swap in their own Store.
package kvstore

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/shroudhq/shroud-keyring/internal/fileutil"
)

// Key names for the three persisted stores spec.md §6 names.
const (
	KeyKeyStore  = "key-store"
	KeySDKStore  = "sdk-store"
	KeyActiveID  = "parent-account-id"
)

const (
	storeDirPerm  = 0o750
	storeFilePerm = 0o600
)

// Store is the abstract KV persistence contract: bytes in, bytes out, one
// slot per key. A nil value with a nil error means the key is unset.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// FileStore implements Store with one file per key under a base directory,
// each written via fileutil.WriteAtomic — the teacher's temp-file-then-
// rename pattern, generalized from one wallet file to an arbitrary key
// namespace.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileStore creates a FileStore rooted at baseDir. The directory is
// created lazily on first write.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.baseDir, key+".kv")
}

// Get reads the value for key, returning (nil, nil) if unset.
func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fileutil.ReadFile(s.path(key))
}

// Put writes value for key atomically, creating the base directory if
// needed.
func (s *FileStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fileutil.EnsureDir(s.baseDir, storeDirPerm); err != nil {
		return err
	}
	return fileutil.WriteAtomic(s.path(key), value, storeFilePerm)
}

// Delete removes key's value, succeeding if it is already absent.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return removeIfExists(s.path(key))
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
