package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// Tests that the trie database returns an error if attempting to retrieve the
// meta root (the zero hash).
func TestDatabaseMetarootFetch(t *testing.T) {
	db := NewDatabase(memorydb.New())
	if _, err := db.Node(common.Hash{}); err == nil {
		t.Fatalf("metaroot retrieval succeeded")
	}
}

func TestDatabaseUpdateAndCommit(t *testing.T) {
	diskdb := memorydb.New()
	db := NewDatabase(diskdb)

	tr := NewEmpty(db)
	tr.MustUpdate([]byte("doe"), []byte("reindeer"))
	root, nodes := tr.Commit(false)
	if err := db.Update(nodes); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := db.Node(root); err != nil {
		t.Fatalf("root should be resolvable from the dirty set: %v", err)
	}
	if err := db.Commit(root); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if db.DirtyNodes() != 0 {
		t.Fatalf("dirty set should be empty after Commit, got %d entries", db.DirtyNodes())
	}
	if _, err := diskdb.Get(root[:]); err != nil {
		t.Fatalf("root should be on disk after Commit: %v", err)
	}
}
