package wrapper

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"

	"github.com/coretrie/mpt/trie"
)

func newTestDatabase() *trie.Database {
	return trie.NewDatabase(memorydb.New())
}

// TestHashedTrieFourPairs is the §8 scenario 2 end-to-end vector: inserting
// the same four pairs as the plain-trie scenario, but through a HashedTrie
// (so every key is hashed before it reaches the core trie), must produce
// the documented root.
func TestHashedTrieFourPairs(t *testing.T) {
	ht := NewHashedTrie(newTestDatabase())
	if err := ht.Update([]byte("dog"), []byte("puppy")); err != nil {
		t.Fatal(err)
	}
	if err := ht.Update([]byte("horse"), []byte("stallion")); err != nil {
		t.Fatal(err)
	}
	if err := ht.Update([]byte("do"), []byte("verb")); err != nil {
		t.Fatal(err)
	}
	if err := ht.Update([]byte("doge"), []byte("coin")); err != nil {
		t.Fatal(err)
	}

	want := common.HexToHash("0x29b235a58c3c25ab83010c327d5932bcf05324b7d6b1185e650798034783ca9d")
	if got := ht.Hash(); got != want {
		t.Errorf("root %x, want %x", got, want)
	}
}

func TestHashedTrieGetUpdateDelete(t *testing.T) {
	ht := NewHashedTrie(newTestDatabase())
	if err := ht.Update([]byte("alpha"), []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := ht.Update([]byte("beta"), []byte("two")); err != nil {
		t.Fatal(err)
	}

	got, err := ht.Get([]byte("alpha"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "one" {
		t.Errorf("get(alpha) = %q, want %q", got, "one")
	}

	if err := ht.Delete([]byte("alpha")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = ht.Get([]byte("alpha"))
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Errorf("get(alpha) after delete = %q, want nil", got)
	}
}

func TestHashedTrieOpenRoundTrip(t *testing.T) {
	db := newTestDatabase()
	ht := NewHashedTrie(db)
	if err := ht.Update([]byte("key"), []byte("value")); err != nil {
		t.Fatal(err)
	}
	root, nodes := ht.Commit(false)
	if err := db.Update(nodes); err != nil {
		t.Fatalf("db update: %v", err)
	}
	if err := db.Commit(root); err != nil {
		t.Fatalf("db commit: %v", err)
	}

	reopened, err := OpenHashedTrie(trie.TrieID(root), db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("get(key) = %q, want %q", got, "value")
	}
}

func TestHashedTrieCopyIsIndependent(t *testing.T) {
	ht := NewHashedTrie(newTestDatabase())
	if err := ht.Update([]byte("k"), []byte("v1")); err != nil {
		t.Fatal(err)
	}
	cp := ht.Copy()
	if err := cp.Update([]byte("k"), []byte("v2")); err != nil {
		t.Fatal(err)
	}

	got, err := ht.Get([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v1" {
		t.Errorf("original trie get(k) = %q, want %q (mutating the copy must not affect it)", got, "v1")
	}
}
