package wrapper

import (
	"testing"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"

	"github.com/coretrie/mpt/trie"
)

func TestFatTrieIterationRecoversPlaintextKeys(t *testing.T) {
	ft := NewFatTrie(newTestDatabase(), memorydb.New())
	want := map[string]string{
		"do":    "verb",
		"dog":   "puppy",
		"doge":  "coin",
		"horse": "stallion",
	}
	for k, v := range want {
		if err := ft.Update([]byte(k), []byte(v)); err != nil {
			t.Fatal(err)
		}
	}

	got := make(map[string]string)
	it := ft.NewIterator()
	for it.Next() {
		got[string(it.Key)] = string(it.Value)
	}
	if it.Err != nil {
		t.Fatalf("iteration error: %v", it.Err)
	}
	if len(got) != len(want) {
		t.Fatalf("recovered %d pairs, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("recovered (%q, %q), want (%q, %q)", k, got[k], k, v)
		}
	}
}

func TestFatTrieDeleteKeepsPreimageButDropsValue(t *testing.T) {
	ft := NewFatTrie(newTestDatabase(), memorydb.New())
	if err := ft.Update([]byte("key"), []byte("value")); err != nil {
		t.Fatal(err)
	}
	if err := ft.Delete([]byte("key")); err != nil {
		t.Fatal(err)
	}
	if pre, err := ft.Preimage(hashKey([]byte("key"))); err != nil || string(pre) != "key" {
		t.Fatalf("preimage after delete = %q (err %v), want %q", pre, err, "key")
	}

	it := ft.NewIterator()
	if it.Next() {
		t.Fatalf("iterator returned (%q, %q) for a deleted key", it.Key, it.Value)
	}
	if it.Err != nil {
		t.Fatalf("iteration error: %v", it.Err)
	}
}

func TestFatTrieOpenRoundTrip(t *testing.T) {
	db := newTestDatabase()
	preimages := memorydb.New()
	ft := NewFatTrie(db, preimages)
	if err := ft.Update([]byte("key"), []byte("value")); err != nil {
		t.Fatal(err)
	}
	root, nodes := ft.Commit(false)
	if err := db.Update(nodes); err != nil {
		t.Fatalf("db update: %v", err)
	}
	if err := db.Commit(root); err != nil {
		t.Fatalf("db commit: %v", err)
	}

	reopened, err := OpenFatTrie(trie.TrieID(root), db, preimages)
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
