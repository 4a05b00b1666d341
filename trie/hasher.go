package trie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// emptyRoot is the root hash of a trie with no entries: keccak256 of the
// RLP encoding of the empty byte string.
var emptyRoot = common.BytesToHash(crypto.Keccak256(rlp.EmptyString))

// hasher computes the canonical hash of a node tree, inlining any node
// whose encoding is under hashLen bytes (§4.2) instead of hashing it, and
// stamping each visited node's flags with the result so an unchanged
// subtree is never re-hashed.
type hasher struct{}

func newHasher() *hasher { return &hasher{} }

// hash returns n's reference form — a hashNode once its encoding reaches
// hashLen bytes, or n itself (to be inlined by the parent) otherwise — plus
// a copy of n with its flags updated to cache that result. force bypasses
// the inlining threshold; only the trie root is ever hashed with force set,
// since the root must always be addressable by hash regardless of size.
func (h *hasher) hash(n node, force bool) (node, node) {
	if hash, _ := n.cache(); hash != nil {
		return hash, n
	}
	switch n := n.(type) {
	case *shortNode:
		collapsed, cached := h.hashShortNodeChildren(n)
		hashed := h.shortnodeToHash(collapsed, force)
		if hn, ok := hashed.(hashNode); ok {
			cached.flags.hash = hn
		} else {
			cached.flags.hash = nil
		}
		return hashed, cached
	case *fullNode:
		collapsed, cached := h.hashFullNodeChildren(n)
		hashed := h.fullnodeToHash(collapsed, force)
		if hn, ok := hashed.(hashNode); ok {
			cached.flags.hash = hn
		} else {
			cached.flags.hash = nil
		}
		return hashed, cached
	default:
		// hashNode and valueNode are already in their reference form.
		return n, n
	}
}

func (h *hasher) hashShortNodeChildren(n *shortNode) (collapsed, cached *shortNode) {
	collapsed, cached = n.copy(), n.copy()
	collapsed.Key = hexToCompact(n.Key)
	switch n.Val.(type) {
	case *fullNode, *shortNode:
		collapsed.Val, cached.Val = h.hash(n.Val, false)
	}
	return collapsed, cached
}

func (h *hasher) hashFullNodeChildren(n *fullNode) (collapsed, cached *fullNode) {
	collapsed, cached = n.copy(), n.copy()
	for i := 0; i < 16; i++ {
		if child := n.Children[i]; child != nil {
			collapsed.Children[i], cached.Children[i] = h.hash(child, false)
		}
	}
	return collapsed, cached
}

func (h *hasher) shortnodeToHash(n *shortNode, force bool) node {
	enc, err := encodeShortNode(n)
	if err != nil {
		panic("trie: encode error: " + err.Error())
	}
	if len(enc) < hashLen && !force {
		return n // inline: too small to bother hashing
	}
	return h.hashData(enc)
}

func (h *hasher) fullnodeToHash(n *fullNode, force bool) node {
	enc, err := encodeFullNode(n)
	if err != nil {
		panic("trie: encode error: " + err.Error())
	}
	if len(enc) < hashLen && !force {
		return n
	}
	return h.hashData(enc)
}

func (h *hasher) hashData(data []byte) hashNode {
	return hashNode(crypto.Keccak256(data))
}
