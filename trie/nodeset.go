package trie

import "github.com/ethereum/go-ethereum/common"

// leaf is a value node reached during a Commit, recorded so a caller that
// asked for leaf collection (e.g. a state trie layered on top) can see
// which values were touched without re-walking the tree.
type leaf struct {
	Blob   []byte      // raw value bytes
	Parent common.Hash // hash of the short node that held this leaf
}

// memoryNode is one entry of a NodeSet: either a freshly hashed node ready
// to be written to the store, or a tombstone (hash is the zero hash)
// recording that the path was deleted by this commit.
type memoryNode struct {
	hash common.Hash
	size uint16
	node node
}

func (n *memoryNode) isDeleted() bool { return n.node == nil }

// rlp returns the canonical encoding of the held node, or nil for a
// tombstone.
func (n *memoryNode) rlp() []byte {
	if n.node == nil {
		return nil
	}
	enc, err := nodeToRaw(n.node)
	if err != nil {
		panic("trie: encode error: " + err.Error())
	}
	return enc
}

// NodeSet accumulates the effect of a single Trie.Commit: every node
// written or deleted, keyed by its hex-nibble path from the root, plus the
// path-level access list recorded during the mutations that produced it.
// It is the unit of atomicity a Database.Update call applies.
type NodeSet struct {
	owner      common.Hash
	nodes      map[string]*memoryNode
	accessList map[string][]byte
	leaves     []*leaf
	updates    int
	deletes    int
}

// NewNodeSet returns an empty set owned by owner (the zero hash for a bare,
// non-state trie).
func NewNodeSet(owner common.Hash, accessList map[string][]byte) *NodeSet {
	if accessList == nil {
		accessList = make(map[string][]byte)
	}
	return &NodeSet{
		owner:      owner,
		nodes:      make(map[string]*memoryNode),
		accessList: accessList,
	}
}

func (set *NodeSet) markUpdated(path []byte, node *memoryNode) {
	set.nodes[string(path)] = node
	set.updates++
}

func (set *NodeSet) markDeleted(path []byte) {
	set.nodes[string(path)] = &memoryNode{}
	set.deletes++
}

func (set *NodeSet) addLeaf(l *leaf) {
	set.leaves = append(set.leaves, l)
}

// Size reports the number of updated and deleted nodes in the set.
func (set *NodeSet) Size() (int, int) { return set.updates, set.deletes }

// forEachWithOrder iterates the set's nodes, tombstones included, shallowest
// path first. Database.Update applies the whole set under one lock, so the
// order does not affect what a reader of the Database sees.
func (set *NodeSet) forEachWithOrder(callback func(path string, n *memoryNode)) {
	paths := make([]string, 0, len(set.nodes))
	for path := range set.nodes {
		paths = append(paths, path)
	}
	// Shorter paths are closer to the root; insertion-sort by length is
	// sufficient since per-commit node sets are small.
	for i := 1; i < len(paths); i++ {
		for j := i; j > 0 && len(paths[j-1]) > len(paths[j]); j-- {
			paths[j-1], paths[j] = paths[j], paths[j-1]
		}
	}
	for _, path := range paths {
		callback(path, set.nodes[path])
	}
}
