package trie

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
)

// cachedNode is one entry of the in-memory dirty set: a node that has been
// hashed and committed by a Trie but not yet flushed to disk.
type cachedNode struct {
	node node
	blob []byte
	size uint16
}

// Database is the store adapter described in §4.6: a two-layer cache (an
// in-memory dirty set keyed by node hash and filled by Database.Update, in
// front of a fastcache-backed clean cache) over any ethdb.KeyValueStore.
// Entries carry no reference counts. It is the
// concrete realization of the abstract "store" collaborator spec.md treats
// as external.
type Database struct {
	diskdb  ethdb.KeyValueStore
	cleans  *fastcache.Cache
	dirties map[common.Hash]*cachedNode
	mu      sync.RWMutex
}

// NewDatabase wraps diskdb with no clean-node cache.
func NewDatabase(diskdb ethdb.KeyValueStore) *Database {
	return NewDatabaseWithCache(diskdb, 0)
}

// NewDatabaseWithCache wraps diskdb with a cleanCacheMB megabyte clean-node
// cache. A size of 0 disables the clean cache entirely.
func NewDatabaseWithCache(diskdb ethdb.KeyValueStore, cleanCacheMB int) *Database {
	var cleans *fastcache.Cache
	if cleanCacheMB > 0 {
		cleans = fastcache.New(cleanCacheMB * 1024 * 1024)
	}
	return &Database{
		diskdb:  diskdb,
		cleans:  cleans,
		dirties: make(map[common.Hash]*cachedNode),
	}
}

// Node returns the RLP blob for hash, checking the dirty set, then the
// clean cache, then the disk store, in that order. The zero hash is never
// a valid node reference and always errors.
func (db *Database) Node(hash common.Hash) ([]byte, error) {
	if hash == (common.Hash{}) {
		return nil, errors.New("trie: not found: zero hash is not a valid node reference")
	}
	db.mu.RLock()
	if n, ok := db.dirties[hash]; ok {
		db.mu.RUnlock()
		return n.blob, nil
	}
	db.mu.RUnlock()

	if db.cleans != nil {
		if blob := db.cleans.Get(nil, hash[:]); len(blob) > 0 {
			return blob, nil
		}
	}
	blob, err := db.diskdb.Get(hash[:])
	if err != nil || len(blob) == 0 {
		return nil, &MissingNodeError{NodeHash: hash, err: err}
	}
	if db.cleans != nil {
		db.cleans.Set(hash[:], blob)
	}
	return blob, nil
}

// Update merges the contents of a NodeSet (as produced by Trie.Commit) into
// the dirty set. Deleted paths are not tracked further: this is a
// hash-addressed store with no on-disk compaction (§11), so a node that
// becomes unreferenced simply stops being looked up.
func (db *Database) Update(nodes *NodeSet) error {
	if nodes == nil {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	nodes.forEachWithOrder(func(path string, n *memoryNode) {
		if n.isDeleted() {
			return
		}
		db.dirties[n.hash] = &cachedNode{node: n.node, blob: n.rlp(), size: n.size}
	})
	return nil
}

// Commit flushes every dirty node to the backing disk store in one batch,
// in ascending hash order.
// root is accepted for symmetry with a pruning-capable database but is not
// otherwise used, since this Database keeps no generation bookkeeping.
func (db *Database) Commit(root common.Hash) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	hashes := make([]common.Hash, 0, len(db.dirties))
	for hash := range db.dirties {
		hashes = append(hashes, hash)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	batch := db.diskdb.NewBatch()
	for _, hash := range hashes {
		n := db.dirties[hash]
		if err := batch.Put(hash[:], n.blob); err != nil {
			return err
		}
		if db.cleans != nil {
			db.cleans.Set(hash[:], n.blob)
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	db.dirties = make(map[common.Hash]*cachedNode)
	return nil
}

// Scheme reports the node-addressing scheme this Database implements. Only
// the hash scheme is supported.
func (db *Database) Scheme() string { return "hash" }

// DirtyNodes reports how many nodes are currently held in the dirty set,
// awaiting Commit.
func (db *Database) DirtyNodes() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.dirties)
}
