package keystore

import (
	"fmt"

	"github.com/google/uuid"
)

// namespace is the fixed UUIDv5 namespace constant from spec.md §6.
var namespace = uuid.MustParse("9bfceade-37fe-11ed-acc0-a3da3461b38c")

// parentID computes a parent record's id from its phrase and rank (the
// record count at the time of import), per spec.md §4.5's storeMnemonic
// contract.
func parentID(phrase string, rank int) string {
	name := fmt.Sprintf("%s::%d", phrase, rank)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// transparentChildID computes a transparent child id from its parent and
// derivation path, per spec.md §8 scenario S1.
func transparentChildID(parent string, path Path) string {
	name := fmt.Sprintf("account::%s::%d::%d::%d", parent, path.Account, path.Change, path.Index)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// shieldedChildID computes a shielded child id from its parent and index.
func shieldedChildID(parent string, index uint32) string {
	name := fmt.Sprintf("shielded-account::%s::%d", parent, index)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}
