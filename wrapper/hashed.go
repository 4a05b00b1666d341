// Package wrapper provides the two outer trie variants described in §4.8:
// HashedTrie, which content-addresses every key by its own hash before
// touching the core trie, and FatTrie, which does the same but also
// records a hash->plaintext-key preimage so its contents can still be
// iterated in the caller's own key space.
package wrapper

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/coretrie/mpt/trie"
)

func hashKey(key []byte) []byte {
	return crypto.Keccak256(key)
}

// HashedTrie hashes every key before it ever reaches the core Trie. This
// keeps the tree's shape independent of the caller's key distribution
// (no adversary can choose keys that skew it into a long chain of
// single-child branches), at the cost of giving up iteration: once a key
// is hashed, there is nothing here to recover it from.
type HashedTrie struct {
	trie *trie.Trie
}

// NewHashedTrie returns an empty HashedTrie backed by db.
func NewHashedTrie(db *trie.Database) *HashedTrie {
	return &HashedTrie{trie: trie.NewEmpty(db)}
}

// OpenHashedTrie resolves an existing HashedTrie rooted at id out of db.
func OpenHashedTrie(id *trie.ID, db *trie.Database) (*HashedTrie, error) {
	t, err := trie.New(id, db)
	if err != nil {
		return nil, err
	}
	return &HashedTrie{trie: t}, nil
}

// Get returns the value stored for key.
func (h *HashedTrie) Get(key []byte) ([]byte, error) {
	return h.trie.Get(hashKey(key))
}

// Update associates value with key.
func (h *HashedTrie) Update(key, value []byte) error {
	return h.trie.Update(hashKey(key), value)
}

// Delete removes key.
func (h *HashedTrie) Delete(key []byte) error {
	return h.trie.Delete(hashKey(key))
}

// Hash returns the current root hash.
func (h *HashedTrie) Hash() common.Hash {
	return h.trie.Hash()
}

// Commit finalizes pending mutations; see trie.Trie.Commit.
func (h *HashedTrie) Commit(collectLeaf bool) (common.Hash, *trie.NodeSet) {
	return h.trie.Commit(collectLeaf)
}

// Copy returns an independent HashedTrie sharing the underlying tree.
func (h *HashedTrie) Copy() *HashedTrie {
	return &HashedTrie{trie: h.trie.Copy()}
}
