package trie

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
)

// Prove writes to proofDB the RLP encoding, keyed by its own hash, of
// every node on the path from the root down to key — or down to the point
// where the walk establishes key cannot be present. A verifier holding
// only the root hash and these nodes can then confirm (or refute) key's
// value via VerifyProof without the rest of the trie.
func (t *Trie) Prove(key []byte, proofDB ethdb.KeyValueWriter) error {
	var nodes []node
	tn := t.root
	k := keybytesToHex(key)
	for len(k) > 0 && tn != nil {
		switch n := tn.(type) {
		case *shortNode:
			if len(k) < len(n.Key) || !bytes.Equal(n.Key, k[:len(n.Key)]) {
				tn = nil
			} else {
				tn = n.Val
				k = k[len(n.Key):]
			}
			nodes = append(nodes, n)
		case *fullNode:
			tn = n.Children[k[0]]
			k = k[1:]
			nodes = append(nodes, n)
		case hashNode:
			var err error
			tn, err = t.resolveHash(n, nil)
			if err != nil {
				return err
			}
		default:
			panic(fmt.Sprintf("trie: invalid node in proof path: %T", tn))
		}
	}
	h := newHasher()
	for _, n := range nodes {
		hash, enc, err := hashAndEncode(h, n)
		if err != nil {
			return err
		}
		if err := proofDB.Put(hash[:], enc); err != nil {
			return err
		}
	}
	return nil
}

// hashAndEncode forces n's canonical encoding regardless of the inline
// threshold, since a proof node must always be addressable by hash in the
// proof database.
func hashAndEncode(h *hasher, n node) (common.Hash, []byte, error) {
	switch n := n.(type) {
	case *shortNode:
		collapsed, _ := h.hashShortNodeChildren(n)
		enc, err := encodeShortNode(collapsed)
		if err != nil {
			return common.Hash{}, nil, err
		}
		return common.BytesToHash(crypto.Keccak256(enc)), enc, nil
	case *fullNode:
		collapsed, _ := h.hashFullNodeChildren(n)
		enc, err := encodeFullNode(collapsed)
		if err != nil {
			return common.Hash{}, nil, err
		}
		return common.BytesToHash(crypto.Keccak256(enc)), enc, nil
	default:
		return common.Hash{}, nil, fmt.Errorf("trie: cannot prove node of type %T", n)
	}
}

// VerifyProof checks key's membership (or provable absence) against
// rootHash using only the nodes available in proofDB, returning the value
// found (nil if the proof establishes key is absent).
func VerifyProof(rootHash common.Hash, key []byte, proofDB ethdb.KeyValueReader) ([]byte, error) {
	k := keybytesToHex(key)
	wantHash := rootHash[:]
	for {
		buf, err := proofDB.Get(wantHash)
		if err != nil || buf == nil {
			return nil, fmt.Errorf("%w: proof node %x not supplied", ErrMalformedNode, wantHash)
		}
		n, err := decodeNode(wantHash, buf)
		if err != nil {
			return nil, err
		}
		keyrest, cld := proofStep(n, k)
		switch cld := cld.(type) {
		case nil:
			return nil, nil
		case hashNode:
			k = keyrest
			wantHash = cld
		case valueNode:
			return cld, nil
		}
	}
}

// proofStep walks as far as it can through a single decoded node (following
// any inlined children along the way) and reports either a hashNode that
// needs another proofDB lookup, a valueNode holding the answer, or nil if
// the structure itself proves key is absent.
func proofStep(tn node, key []byte) ([]byte, node) {
	for {
		switch n := tn.(type) {
		case *shortNode:
			if len(key) < len(n.Key) || !bytes.Equal(n.Key, key[:len(n.Key)]) {
				return nil, nil
			}
			tn = n.Val
			key = key[len(n.Key):]
		case *fullNode:
			if len(key) == 0 {
				return nil, n.Children[16]
			}
			tn = n.Children[key[0]]
			key = key[1:]
		case hashNode:
			return key, n
		case valueNode:
			return nil, n
		default:
			return nil, nil
		}
	}
}
