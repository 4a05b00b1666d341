package trie

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// node is the interface implemented by every trie node variant: *fullNode
// (branch), *shortNode (extension or leaf, distinguished by whether Key
// carries the HP terminator), hashNode (a 32-byte reference to a node
// stored elsewhere) and valueNode (raw leaf/branch value bytes).
type node interface {
	cache() (hashNode, bool)
}

type (
	// fullNode is a branch with 16 nibble-indexed children plus a value
	// slot at index 16.
	fullNode struct {
		Children [17]node
		flags    nodeFlag
	}
	// shortNode is an extension (Val is a *fullNode, or a hashNode
	// referring to one) or a leaf (Val is valueNode), distinguished by
	// hasTerm(Key).
	shortNode struct {
		Key   []byte
		Val   node
		flags nodeFlag
	}
	hashNode  []byte
	valueNode []byte
)

// nodeFlag holds the cached hash and dirty bit used by hasher/committer to
// avoid re-hashing unchanged subtrees.
type nodeFlag struct {
	hash  hashNode
	dirty bool
}

func (n *fullNode) cache() (hashNode, bool)  { return n.flags.hash, n.flags.dirty }
func (n *shortNode) cache() (hashNode, bool) { return n.flags.hash, n.flags.dirty }
func (n hashNode) cache() (hashNode, bool)   { return nil, true }
func (n valueNode) cache() (hashNode, bool)  { return nil, true }

func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}

func (n *shortNode) copy() *shortNode {
	cp := *n
	return &cp
}

// nodeToRaw returns the canonical RLP encoding of n, suitable either for
// hashing (if >= 32 bytes) or for inlining into a parent's own encoding.
func nodeToRaw(n node) (rlp.RawValue, error) {
	switch n := n.(type) {
	case nil:
		return rlp.EncodeToBytes([]byte(nil))
	case valueNode:
		return rlp.EncodeToBytes([]byte(n))
	case hashNode:
		return rlp.EncodeToBytes([]byte(n))
	case *shortNode:
		return encodeShortNode(n)
	case *fullNode:
		return encodeFullNode(n)
	default:
		return nil, fmt.Errorf("trie: cannot encode node of type %T", n)
	}
}

// encodeShortNode RLP-encodes a short node as the 2-element list [HP(key), val].
// n.Key must already be compact (HP) encoded; callers pass a "collapsed" copy
// produced by the hasher/committer for this purpose.
func encodeShortNode(n *shortNode) (rlp.RawValue, error) {
	keyEnc, err := rlp.EncodeToBytes(n.Key)
	if err != nil {
		return nil, err
	}
	valEnc, err := nodeToRaw(n.Val)
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes([]rlp.RawValue{keyEnc, valEnc})
}

// encodeFullNode RLP-encodes a branch as the 17-element list [c0..c15, v].
func encodeFullNode(n *fullNode) (rlp.RawValue, error) {
	items := make([]rlp.RawValue, 17)
	for i := 0; i < 17; i++ {
		enc, err := nodeToRaw(n.Children[i])
		if err != nil {
			return nil, err
		}
		items[i] = enc
	}
	return rlp.EncodeToBytes(items)
}

const hashLen = len(common.Hash{})

// mustDecodeNode is decodeNode, panicking on malformed input. Used where the
// caller already trusts the bytes (e.g. they were just read back from a hash
// the trie itself computed).
func mustDecodeNode(hash, buf []byte) node {
	n, err := decodeNode(hash, buf)
	if err != nil {
		panic(fmt.Sprintf("trie: node %x is undecodable: %v", hash, err))
	}
	return n
}

// decodeNode parses the RLP encoding of a stored node. hash, if non-nil, is
// cached on the resulting node's flags.
func decodeNode(hash, buf []byte) (node, error) {
	if len(buf) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	elems, _, err := rlp.SplitList(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNode, err)
	}
	switch c, _ := rlp.CountValues(elems); c {
	case 2:
		n, err := decodeShort(hash, elems)
		return n, wrapNodeErr(err, "short")
	case 17:
		n, err := decodeFull(hash, elems)
		return n, wrapNodeErr(err, "full")
	default:
		return nil, fmt.Errorf("%w: invalid number of list elements: %d", ErrMalformedNode, c)
	}
}

func decodeShort(hash, elems []byte) (node, error) {
	kbuf, rest, err := rlp.SplitString(elems)
	if err != nil {
		return nil, err
	}
	flag := nodeFlag{hash: hashNode(hash)}
	key := compactToHex(kbuf)
	if hasTerm(key) {
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid value node: %v", ErrMalformedNode, err)
		}
		return &shortNode{key, valueNode(val), flag}, nil
	}
	r, _, err := decodeRef(rest)
	if err != nil {
		return nil, wrapNodeErr(err, "val")
	}
	return &shortNode{key, r, flag}, nil
}

func decodeFull(hash, elems []byte) (*fullNode, error) {
	n := &fullNode{flags: nodeFlag{hash: hashNode(hash)}}
	for i := 0; i < 16; i++ {
		cld, rest, err := decodeRef(elems)
		if err != nil {
			return n, wrapNodeErr(err, fmt.Sprintf("[%d]", i))
		}
		n.Children[i], elems = cld, rest
	}
	val, _, err := rlp.SplitString(elems)
	if err != nil {
		return n, err
	}
	if len(val) > 0 {
		n.Children[16] = valueNode(val)
	}
	if err := checkFullNodeShape(n); err != nil {
		return n, err
	}
	return n, nil
}

// checkFullNodeShape enforces §3.3's branch shape invariant on a node just
// decoded from storage: a branch with at most one live child and no value
// of its own should never have been persisted, since insert/remove always
// collapse that configuration into a shortNode. A blob violating this can
// only come from a corrupted or hand-crafted store.
func checkFullNodeShape(n *fullNode) error {
	live := 0
	for i := 0; i < 16; i++ {
		if n.Children[i] != nil {
			live++
		}
	}
	if live <= 1 && n.Children[16] == nil {
		return fmt.Errorf("%w: branch with %d live child(ren) and no value", ErrInvalidTrie, live)
	}
	return nil
}

// decodeRef decodes a single child slot: an empty string is an empty
// reference, a 32-byte string is a hash reference, and a list shorter than
// a hash is an inline (embedded) node, per §4.2's raw-append rule.
func decodeRef(buf []byte) (node, []byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return nil, buf, err
	}
	switch {
	case kind == rlp.List:
		if size := len(buf) - len(rest); size >= hashLen {
			return nil, buf, fmt.Errorf("%w: oversized embedded node (%d bytes, want < %d)", ErrMalformedNode, size, hashLen)
		}
		n, err := decodeNode(nil, buf[:len(buf)-len(rest)])
		return n, rest, err
	case kind == rlp.String && len(val) == 0:
		return nil, rest, nil
	case kind == rlp.String && len(val) == hashLen:
		return hashNode(val), rest, nil
	default:
		return nil, nil, fmt.Errorf("%w: invalid reference string size %d (want 0 or %d)", ErrMalformedNode, len(val), hashLen)
	}
}

func wrapNodeErr(err error, ctx string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", ctx, err)
}
