package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// committer is the tool used for the trie Commit operation. It captures
// every dirty node touched along the way and hands them back as a
// NodeSet, in the order a caller can safely apply them to a store.
type committer struct {
	nodes       *NodeSet
	collectLeaf bool
}

// newCommitter creates a new committer.
func newCommitter(nodeset *NodeSet, collectLeaf bool) *committer {
	return &committer{
		nodes:       nodeset,
		collectLeaf: collectLeaf,
	}
}

// commit collapses a node down into its reference form (a hashNode, or the
// node itself if it stayed small enough to be inlined by the hasher pass
// that must have already run over this tree).
func (c *committer) commit(path []byte, n node) node {
	// If this path is clean, use the cached hash without walking further.
	hash, dirty := n.cache()
	if hash != nil && !dirty {
		return hash
	}
	switch cn := n.(type) {
	case *shortNode:
		collapsed := cn.copy()
		// An extension's child can only be a *fullNode at this point; a
		// leaf's Val is a valueNode and is embedded, never committed.
		if _, ok := cn.Val.(*fullNode); ok {
			collapsed.Val = c.commit(append(path, cn.Key...), cn.Val)
		}
		collapsed.Key = hexToCompact(cn.Key)
		hashedNode := c.store(path, collapsed)
		if hn, ok := hashedNode.(hashNode); ok {
			return hn
		}
		return collapsed
	case *fullNode:
		hashedKids := c.commitChildren(path, cn)
		collapsed := cn.copy()
		collapsed.Children = hashedKids
		hashedNode := c.store(path, collapsed)
		if hn, ok := hashedNode.(hashNode); ok {
			return hn
		}
		return collapsed
	case hashNode:
		return cn
	default:
		// nil and valueNode are embedded by their parent, never committed
		// as a standalone path.
		panic(fmt.Sprintf("%T: invalid node for commit: %v", n, n))
	}
}

// commitChildren commits the children of the given full node.
func (c *committer) commitChildren(path []byte, n *fullNode) [17]node {
	var children [17]node
	for i := 0; i < 16; i++ {
		child := n.Children[i]
		if child == nil {
			continue
		}
		if hn, ok := child.(hashNode); ok {
			children[i] = hn
			continue
		}
		children[i] = c.commit(append(path, byte(i)), child)
	}
	if n.Children[16] != nil {
		children[16] = n.Children[16]
	}
	return children
}

// store hashes the node n (already computed by a prior hasher pass) and
// adds it to the modified NodeSet. If leaf collection is enabled, leaf
// nodes are additionally recorded for the caller.
func (c *committer) store(path []byte, n node) node {
	hash, _ := n.cache()

	// This node was not hashed: it's small enough to stay embedded in its
	// parent rather than be stored independently. If a node used to live
	// at this path before this round of mutation, mark it deleted.
	if hash == nil {
		if _, ok := c.nodes.accessList[string(path)]; ok {
			c.nodes.markDeleted(path)
		}
		return n
	}
	var (
		size  = estimateSize(n)
		nhash = common.BytesToHash(hash)
		mnode = &memoryNode{
			hash: nhash,
			node: simplifyNode(n),
			size: uint16(size),
		}
	)
	cp := make([]byte, len(path))
	copy(cp, path)
	c.nodes.markUpdated(cp, mnode)

	if c.collectLeaf {
		if sn, ok := n.(*shortNode); ok {
			if val, ok := sn.Val.(valueNode); ok {
				c.nodes.addLeaf(&leaf{Blob: []byte(val), Parent: nhash})
			}
		}
	}
	return hash
}

// simplifyNode drops a node's cached-hash bookkeeping before it is frozen
// into a NodeSet entry; that bookkeeping has already served its purpose.
func simplifyNode(n node) node {
	switch n := n.(type) {
	case *shortNode:
		cp := n.copy()
		cp.flags = nodeFlag{}
		return cp
	case *fullNode:
		cp := n.copy()
		cp.flags = nodeFlag{}
		return cp
	default:
		return n
	}
}

// estimateSize estimates the size of an RLP-encoded node without actually
// encoding it. Used only for cache-size accounting.
func estimateSize(n node) int {
	switch n := n.(type) {
	case *shortNode:
		return 3 + len(n.Key) + estimateSize(n.Val)
	case *fullNode:
		s := 3
		for i := 0; i < 16; i++ {
			if child := n.Children[i]; child != nil {
				s += estimateSize(child)
			} else {
				s++
			}
		}
		return s
	case valueNode:
		return 1 + len(n)
	case hashNode:
		return 1 + len(n)
	default:
		return 0
	}
}
