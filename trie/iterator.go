package trie

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// NodeIterator walks every node of a trie in key order, per §4.7: a
// branch is entered, then its own value (if it carries one) is visited
// first, then each of its 16 children's subtrees in turn, then the walk
// exits back to the parent frame. The value comes first because a key
// terminating at a branch is a lexicographic prefix of every key reachable
// through its children. An extension/leaf is entered, then its single
// child. Resolution of a database-backed child only happens the moment
// the walk actually descends into it, so iterating a small prefix of a
// huge trie never touches the rest of it.
type NodeIterator interface {
	// Next advances to the next position. If descend is false, the
	// children of the node last reported are skipped instead of visited.
	Next(descend bool) bool
	Error() error
	Hash() common.Hash
	Path() []byte
	Leaf() bool
	LeafKey() []byte
	LeafBlob() []byte
}

// frame is one stack entry of the walk: the node sitting at this level,
// the hex path leading to it, and how far the walk has progressed through
// its children (-1 = not yet reported to the caller).
type frame struct {
	n     node
	path  []byte
	child int
	skip  bool
}

type nodeIterator struct {
	trie  *Trie
	stack []*frame
	path  []byte
	err   error
}

func newNodeIterator(trie *Trie, start []byte) NodeIterator {
	it := &nodeIterator{trie: trie}
	if trie.root == nil {
		return it
	}
	it.stack = append(it.stack, &frame{n: trie.root, child: -1})
	if len(start) > 0 {
		// Compare without the terminator: a value held in a branch sits at
		// the branch's own path, which carries no terminator.
		target := keybytesToHex(start)
		target = target[:len(target)-1]
		for it.Next(true) {
			if bytes.Compare(it.path, target) >= 0 {
				// Leave this node unreported so the caller's first Next
				// returns it.
				it.stack[len(it.stack)-1].child = -1
				break
			}
		}
	}
	return it
}

func (it *nodeIterator) Path() []byte { return it.path }
func (it *nodeIterator) Error() error { return it.err }

func (it *nodeIterator) Hash() common.Hash {
	if len(it.stack) == 0 {
		return common.Hash{}
	}
	hash, _ := it.stack[len(it.stack)-1].n.cache()
	return common.BytesToHash(hash)
}

func (it *nodeIterator) Leaf() bool {
	if len(it.stack) == 0 {
		return false
	}
	_, ok := it.stack[len(it.stack)-1].n.(valueNode)
	return ok
}

func (it *nodeIterator) LeafBlob() []byte {
	if len(it.stack) > 0 {
		if v, ok := it.stack[len(it.stack)-1].n.(valueNode); ok {
			return []byte(v)
		}
	}
	panic("trie: LeafBlob called off a leaf")
}

func (it *nodeIterator) LeafKey() []byte {
	if len(it.stack) > 0 {
		if _, ok := it.stack[len(it.stack)-1].n.(valueNode); ok {
			return hexToKeybytes(it.path)
		}
	}
	panic("trie: LeafKey called off a leaf")
}

func (it *nodeIterator) Next(descend bool) bool {
	// The node last reported is the top frame, not yet advanced past.
	if !descend && len(it.stack) > 0 {
		if top := it.stack[len(it.stack)-1]; top.child == 0 {
			top.skip = true
		}
	}
	for it.err == nil && len(it.stack) > 0 {
		top := it.stack[len(it.stack)-1]

		if top.child == -1 {
			top.child = 0
			it.path = top.path
			return true
		}

		switch n := top.n.(type) {
		case *shortNode:
			if top.skip || top.child > 0 {
				it.stack = it.stack[:len(it.stack)-1]
				continue
			}
			top.child = 1
			child, path, err := it.resolveChild(n.Val, concat(top.path, n.Key...))
			if err != nil {
				it.err = err
				return false
			}
			it.stack = append(it.stack, &frame{n: child, path: path, child: -1})

		case *fullNode:
			if top.skip {
				it.stack = it.stack[:len(it.stack)-1]
				continue
			}
			// The value slot (Children[16]) is visited before any of the
			// 16 indexed children: a key that terminates at this branch is
			// a lexicographic prefix of every key reachable through them,
			// so it must be reported first.
			if top.child == 0 {
				top.child = 1
				if v, ok := n.Children[16].(valueNode); ok {
					it.stack = append(it.stack, &frame{n: v, path: top.path, child: -1})
				}
				continue
			}
			if top.child <= 16 {
				i := top.child - 1
				top.child++
				if n.Children[i] == nil {
					continue
				}
				child, path, err := it.resolveChild(n.Children[i], concat(top.path, byte(i)))
				if err != nil {
					it.err = err
					return false
				}
				it.stack = append(it.stack, &frame{n: child, path: path, child: -1})
				continue
			}
			it.stack = it.stack[:len(it.stack)-1]

		default:
			// valueNode has no children; its frame is exhausted as soon as
			// it's been reported once.
			it.stack = it.stack[:len(it.stack)-1]
		}
	}
	return false
}

func (it *nodeIterator) resolveChild(n node, path []byte) (node, []byte, error) {
	if hn, ok := n.(hashNode); ok {
		resolved, err := it.trie.resolveHash(hn, path)
		if err != nil {
			return nil, nil, err
		}
		return resolved, path, nil
	}
	return n, path, nil
}

// Iterator walks the key/value pairs of a trie in key order, skipping the
// internal branch/extension structure Next on a NodeIterator also visits.
type Iterator struct {
	nodeIt NodeIterator
	Key    []byte
	Value  []byte
	Err    error
}

// NewIterator wraps a NodeIterator as a key/value Iterator.
func NewIterator(it NodeIterator) *Iterator {
	return &Iterator{nodeIt: it}
}

// Next advances to the next key/value pair, returning false once the trie
// is exhausted or an error occurred (check Err).
func (it *Iterator) Next() bool {
	for it.nodeIt.Next(true) {
		if it.nodeIt.Leaf() {
			it.Key = it.nodeIt.LeafKey()
			it.Value = it.nodeIt.LeafBlob()
			return true
		}
	}
	it.Key = nil
	it.Value = nil
	it.Err = it.nodeIt.Error()
	return false
}
