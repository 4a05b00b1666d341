package trie

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// maxValueSize caps a leaf value's length at the largest value a uint16 can
// hold. memoryNode.size records the estimated size of the whole node as a
// uint16, so for values near this cap that size wraps.
const maxValueSize = 0xffff

// ID names the trie a caller wants to open: its root hash, and whether to
// tolerate an unresolvable root (SkipVerify) instead of failing New.
type ID struct {
	Root       common.Hash
	SkipVerify bool
}

// TrieID builds an ID for root with normal (non-skipping) verification.
func TrieID(root common.Hash) *ID {
	return &ID{Root: root}
}

// Trie implements the Merkle Patricia Trie described in §3–§4: an ordered
// key/value map whose root hash commits to every (key, value) pair and
// nothing else, using radix-16 branches, 2-byte-economy extensions and
// content-addressed node storage.
type Trie struct {
	root   node
	owner  common.Hash
	db     *Database
	tracer *tracer
}

// NewEmpty returns a Trie with no entries, backed by db.
func NewEmpty(db *Database) *Trie {
	tr, _ := New(TrieID(emptyRoot), db)
	return tr
}

// New opens the trie rooted at id.Root, resolving it out of db. A root of
// the zero hash or the canonical empty root (§3.1) opens an empty trie
// without touching db. Any other root that db cannot resolve yields a
// *MissingNodeError unless id.SkipVerify is set, in which case New instead
// returns a usable-but-empty trie (callers that intend to overwrite rather
// than read from it).
func New(id *ID, db *Database) (*Trie, error) {
	if db == nil {
		panic("trie.New called with nil Database")
	}
	tr := &Trie{db: db, tracer: newTracer()}
	if id.Root != (common.Hash{}) && id.Root != emptyRoot {
		rootnode, err := tr.resolveHash(hashNode(id.Root[:]), nil)
		if err != nil {
			if id.SkipVerify {
				return tr, nil
			}
			return nil, err
		}
		tr.root = rootnode
	}
	return tr, nil
}

func (t *Trie) newFlag() nodeFlag {
	return nodeFlag{dirty: true}
}

// Copy returns an independent Trie sharing the current tree and database,
// with its own tracer so subsequent mutations don't bleed between copies.
func (t *Trie) Copy() *Trie {
	return &Trie{
		root:   t.root,
		owner:  t.owner,
		db:     t.db,
		tracer: t.tracer.copy(),
	}
}

// Get returns the value stored for key, or nil if key is absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	value, newroot, didResolve, err := t.get(t.root, keybytesToHex(key), 0)
	if err == nil && didResolve {
		t.root = newroot
	}
	return value, err
}

// MustGet is like Get but panics on error.
func (t *Trie) MustGet(key []byte) []byte {
	v, err := t.Get(key)
	if err != nil {
		panic(err)
	}
	return v
}

func (t *Trie) get(origNode node, key []byte, pos int) (value []byte, newnode node, didResolve bool, err error) {
	switch n := origNode.(type) {
	case nil:
		return nil, nil, false, nil
	case valueNode:
		return n, n, false, nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !bytes.Equal(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, n, false, nil
		}
		value, newnode, didResolve, err = t.get(n.Val, key, pos+len(n.Key))
		if err == nil && didResolve {
			n = n.copy()
			n.Val = newnode
		}
		return value, n, didResolve, err
	case *fullNode:
		value, newnode, didResolve, err = t.get(n.Children[key[pos]], key, pos+1)
		if err == nil && didResolve {
			n = n.copy()
			n.Children[key[pos]] = newnode
		}
		return value, n, didResolve, err
	case hashNode:
		child, err := t.resolveHash(n, key[:pos])
		if err != nil {
			return nil, n, true, err
		}
		value, newnode, _, err := t.get(child, key, pos)
		return value, newnode, true, err
	default:
		panic(fmt.Sprintf("trie: invalid node: %v", origNode))
	}
}

// Update associates value with key. An empty value deletes key instead, to
// keep a trie's encoding from ever distinguishing "absent" from "present
// with a zero-length value" (§4.3's edge case).
func (t *Trie) Update(key, value []byte) error {
	if len(value) == 0 {
		return t.Delete(key)
	}
	if len(value) > maxValueSize {
		return ErrValueTooLarge
	}
	k := keybytesToHex(key)
	_, n, err := t.insert(t.root, nil, k, valueNode(value))
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

// MustUpdate is like Update but panics on error.
func (t *Trie) MustUpdate(key, value []byte) {
	if err := t.Update(key, value); err != nil {
		panic(err)
	}
}

func (t *Trie) insert(n node, prefix, key []byte, value node) (bool, node, error) {
	if len(key) == 0 {
		if v, ok := n.(valueNode); ok {
			return !bytes.Equal(v, value.(valueNode)), value, nil
		}
		return true, value, nil
	}
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		// The whole key matches: recurse into the existing subtree.
		if matchlen == len(n.Key) {
			dirty, nn, err := t.insert(n.Val, append(prefix, key[:matchlen]...), key[matchlen:], value)
			if !dirty || err != nil {
				return false, n, err
			}
			return true, &shortNode{n.Key, nn, t.newFlag()}, nil
		}
		// Otherwise the keys diverge partway through: split into a branch
		// holding both the old and new subtrees, with a shared extension
		// in front of it if they agreed on anything at all.
		branch := &fullNode{flags: t.newFlag()}
		var err error
		_, branch.Children[n.Key[matchlen]], err = t.insert(nil, append(prefix, n.Key[:matchlen+1]...), n.Key[matchlen+1:], n.Val)
		if err != nil {
			return false, nil, err
		}
		_, branch.Children[key[matchlen]], err = t.insert(nil, append(prefix, key[:matchlen+1]...), key[matchlen+1:], value)
		if err != nil {
			return false, nil, err
		}
		if matchlen == 0 {
			return true, branch, nil
		}
		t.tracer.onInsert(append(prefix, key[:matchlen]...))
		return true, &shortNode{key[:matchlen], branch, t.newFlag()}, nil

	case *fullNode:
		dirty, nn, err := t.insert(n.Children[key[0]], append(prefix, key[0]), key[1:], value)
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.flags = t.newFlag()
		n.Children[key[0]] = nn
		return true, n, nil

	case nil:
		t.tracer.onInsert(prefix)
		return true, &shortNode{key, value, t.newFlag()}, nil

	case hashNode:
		rn, err := t.resolveHash(n, prefix)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.insert(rn, prefix, key, value)
		if !dirty || err != nil {
			return false, rn, err
		}
		return true, nn, nil

	default:
		panic(fmt.Sprintf("trie: invalid node: %v", n))
	}
}

// Delete removes key from the trie. Deleting an absent key is a no-op.
func (t *Trie) Delete(key []byte) error {
	k := keybytesToHex(key)
	_, n, err := t.remove(t.root, nil, k)
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

// MustDelete is like Delete but panics on error.
func (t *Trie) MustDelete(key []byte) {
	if err := t.Delete(key); err != nil {
		panic(err)
	}
}

func (t *Trie) remove(n node, prefix, key []byte) (bool, node, error) {
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return false, n, nil // key not present, nothing to do
		}
		if matchlen == len(key) {
			t.tracer.onDelete(append(prefix, n.Key...))
			return true, nil, nil // exact match: the whole subtree goes
		}
		// The key goes deeper than this node's prefix: recurse, then
		// decide whether the resulting child lets this node collapse.
		dirty, child, err := t.remove(n.Val, append(prefix, n.Key...), key[len(n.Key):])
		if !dirty || err != nil {
			return false, n, err
		}
		switch child := child.(type) {
		case *shortNode:
			// Two extensions in a row collapse into one.
			t.tracer.onDelete(append(prefix, n.Key...))
			return true, &shortNode{concat(n.Key, child.Key...), child.Val, t.newFlag()}, nil
		default:
			return true, &shortNode{n.Key, child, t.newFlag()}, nil
		}

	case *fullNode:
		dirty, nn, err := t.remove(n.Children[key[0]], append(prefix, key[0]), key[1:])
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.flags = t.newFlag()
		n.Children[key[0]] = nn

		// If exactly one child remains, this branch must collapse into a
		// short node per §3.3's shape invariant.
		pos := -1
		for i, cld := range &n.Children {
			if cld != nil {
				if pos == -1 {
					pos = i
				} else {
					pos = -2
					break
				}
			}
		}
		if pos >= 0 {
			if pos != 16 {
				cnode, err := t.resolve(n.Children[pos], append(prefix, byte(pos)))
				if err != nil {
					return false, nil, err
				}
				if cnode, ok := cnode.(*shortNode); ok {
					t.tracer.onDelete(append(prefix, byte(pos)))
					k := append([]byte{byte(pos)}, cnode.Key...)
					return true, &shortNode{k, cnode.Val, t.newFlag()}, nil
				}
			}
			return true, &shortNode{[]byte{byte(pos)}, n.Children[pos], t.newFlag()}, nil
		}
		return true, n, nil

	case valueNode:
		return true, nil, nil

	case nil:
		return false, nil, nil

	case hashNode:
		rn, err := t.resolveHash(n, prefix)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.remove(rn, prefix, key)
		if !dirty || err != nil {
			return false, rn, err
		}
		return true, nn, nil

	default:
		panic(fmt.Sprintf("trie: invalid node: %v (%v)", n, key))
	}
}

// Hash returns the trie's root hash, recomputing it from any dirty nodes
// and caching the result so a repeated call (or a following Commit) is
// free. The empty trie's hash is the canonical constant from §3.1.
func (t *Trie) Hash() common.Hash {
	if t.root == nil {
		return emptyRoot
	}
	hash, cached := newHasher().hash(t.root, true)
	t.root = cached
	return common.BytesToHash(hash.(hashNode))
}

// Commit finalizes all pending mutations, returning the resulting root
// hash and a NodeSet describing every node this round touched. collectLeaf
// additionally records every leaf value reached, for callers layering a
// higher-level object (e.g. an account trie) on top. The NodeSet must be
// handed to a Database.Update before the changes exist anywhere durable.
func (t *Trie) Commit(collectLeaf bool) (common.Hash, *NodeSet) {
	defer t.tracer.reset()

	nodes := NewNodeSet(t.owner, t.tracer.accessList)
	t.tracer.markDeletions(nodes)

	if t.root == nil {
		return emptyRoot, nodes
	}
	rootHash := t.Hash()
	c := newCommitter(nodes, collectLeaf)
	t.root = c.commit(nil, t.root)
	return rootHash, nodes
}

// NodeIterator returns an iterator over every node in the trie, starting
// at (or just before) start in key order. A nil start walks from the
// beginning.
func (t *Trie) NodeIterator(start []byte) NodeIterator {
	return newNodeIterator(t, start)
}

// resolve dereferences n if it is a hashNode, otherwise returns it as-is.
func (t *Trie) resolve(n node, prefix []byte) (node, error) {
	if n, ok := n.(hashNode); ok {
		return t.resolveHash(n, prefix)
	}
	return n, nil
}

// resolveHash fetches and decodes the node referenced by n from the
// backing database, recording its pre-mutation encoding in the tracer's
// access list the first time this round touches the path.
func (t *Trie) resolveHash(n hashNode, prefix []byte) (node, error) {
	hash := common.BytesToHash(n)
	blob, err := t.db.Node(hash)
	if err != nil || len(blob) == 0 {
		return nil, &MissingNodeError{NodeHash: hash, Path: prefix, err: err}
	}
	t.tracer.onRead(prefix, blob)
	return decodeNode(n, blob)
}

// concat returns a fresh slice holding s1 followed by s2.
func concat(s1 []byte, s2 ...byte) []byte {
	r := make([]byte, len(s1)+len(s2))
	copy(r, s1)
	copy(r[len(s1):], s2)
	return r
}
