package trie

// tracer records the paths touched by a sequence of Update/Delete calls on
// a Trie, so Commit can produce an exact access list: which paths were
// newly inserted, which were deleted, and what each touched path's node
// blob looked like before this round of mutation began. This is what
// backs the access-list testable property (§8).
type tracer struct {
	inserts    map[string]struct{}
	deletes    map[string]struct{}
	accessList map[string][]byte
}

func newTracer() *tracer {
	return &tracer{
		inserts:    make(map[string]struct{}),
		deletes:    make(map[string]struct{}),
		accessList: make(map[string][]byte),
	}
}

// onRead records the first-seen encoding of the node at path, before any
// mutation in this round touches it.
func (t *tracer) onRead(path []byte, val []byte) {
	if _, present := t.accessList[string(path)]; present {
		return
	}
	if val == nil {
		t.accessList[string(path)] = nil
		return
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	t.accessList[string(path)] = cp
}

// onInsert records that path now holds a node it didn't hold at the start
// of this round. A path that was deleted and then reinserted cancels out.
func (t *tracer) onInsert(path []byte) {
	if _, present := t.deletes[string(path)]; present {
		delete(t.deletes, string(path))
		return
	}
	t.inserts[string(path)] = struct{}{}
}

// onDelete is the mirror of onInsert.
func (t *tracer) onDelete(path []byte) {
	if _, present := t.inserts[string(path)]; present {
		delete(t.inserts, string(path))
		return
	}
	t.deletes[string(path)] = struct{}{}
}

func (t *tracer) reset() {
	t.inserts = make(map[string]struct{})
	t.deletes = make(map[string]struct{})
	t.accessList = make(map[string][]byte)
}

func (t *tracer) copy() *tracer {
	cp := newTracer()
	for k := range t.inserts {
		cp.inserts[k] = struct{}{}
	}
	for k := range t.deletes {
		cp.deletes[k] = struct{}{}
	}
	for k, v := range t.accessList {
		cp.accessList[k] = v
	}
	return cp
}

// markDeletions copies every still-pending deletion into set as a
// tombstone. Paths that were deleted and then reinserted within the same
// round never reach t.deletes (onInsert cancels them), so nothing extra
// needs excluding here.
func (t *tracer) markDeletions(set *NodeSet) {
	for path := range t.deletes {
		set.markDeleted([]byte(path))
	}
}
