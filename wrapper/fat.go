package wrapper

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"

	"github.com/coretrie/mpt/trie"
)

// FatTrie is a HashedTrie that additionally records, for every key it has
// ever seen written, the mapping from that key's hash back to the
// original bytes. That preimage store is what lets FatIterator recover
// plaintext keys while walking a tree that is otherwise indexed purely by
// hash.
type FatTrie struct {
	trie      *trie.Trie
	preimages ethdb.KeyValueStore
}

// NewFatTrie returns an empty FatTrie backed by db, recording preimages
// into preimages.
func NewFatTrie(db *trie.Database, preimages ethdb.KeyValueStore) *FatTrie {
	return &FatTrie{trie: trie.NewEmpty(db), preimages: preimages}
}

// OpenFatTrie resolves an existing FatTrie rooted at id out of db.
func OpenFatTrie(id *trie.ID, db *trie.Database, preimages ethdb.KeyValueStore) (*FatTrie, error) {
	t, err := trie.New(id, db)
	if err != nil {
		return nil, err
	}
	return &FatTrie{trie: t, preimages: preimages}, nil
}

// Get returns the value stored for key.
func (f *FatTrie) Get(key []byte) ([]byte, error) {
	return f.trie.Get(hashKey(key))
}

// Update associates value with key, recording key's preimage so it can
// later be recovered by iteration.
func (f *FatTrie) Update(key, value []byte) error {
	hk := hashKey(key)
	if err := f.preimages.Put(hk, key); err != nil {
		return err
	}
	return f.trie.Update(hk, value)
}

// Delete removes key. Its preimage is left in place: a later iteration
// simply won't find the corresponding value anymore.
func (f *FatTrie) Delete(key []byte) error {
	return f.trie.Delete(hashKey(key))
}

// Hash returns the current root hash.
func (f *FatTrie) Hash() common.Hash {
	return f.trie.Hash()
}

// Commit finalizes pending mutations; see trie.Trie.Commit.
func (f *FatTrie) Commit(collectLeaf bool) (common.Hash, *trie.NodeSet) {
	return f.trie.Commit(collectLeaf)
}

// Preimage returns the plaintext key that hashes to hashedKey, if one was
// ever recorded by Update.
func (f *FatTrie) Preimage(hashedKey []byte) ([]byte, error) {
	return f.preimages.Get(hashedKey)
}

// NewIterator returns a FatIterator over every (plaintext key, value) pair
// currently in the trie.
func (f *FatTrie) NewIterator() *FatIterator {
	return &FatIterator{nodeIt: f.trie.NodeIterator(nil), trie: f}
}

// FatIterator walks a FatTrie's contents in the caller's own key space,
// resolving each leaf's hashed key back to plaintext via the preimage
// store as it goes.
type FatIterator struct {
	nodeIt trie.NodeIterator
	trie   *FatTrie
	Key    []byte
	Value  []byte
	Err    error
}

// Next advances to the next recoverable key/value pair.
func (it *FatIterator) Next() bool {
	for it.nodeIt.Next(true) {
		if !it.nodeIt.Leaf() {
			continue
		}
		key, err := it.trie.Preimage(it.nodeIt.LeafKey())
		if err != nil || key == nil {
			continue // no recorded preimage for this hash; skip it
		}
		it.Key = key
		it.Value = it.nodeIt.LeafBlob()
		return true
	}
	it.Key, it.Value = nil, nil
	it.Err = it.nodeIt.Error()
	return false
}
