package feeds

// aliasTable maps retired feed identifiers to their replacements and keeps
// an enumerable list of every identifier with an active alias. The list and
// the 1-based index stored on each entry move in lockstep through a single
// mutation path so removal can use swap-and-pop without losing
// addressability.
type aliasTable struct {
	entries map[FeedID]aliasEntry
	changed []FeedID
}

type aliasEntry struct {
	newID FeedID
	index uint64 // 1-based position in changed, 0 = absent
}

func newAliasTable() *aliasTable {
	return &aliasTable{entries: make(map[FeedID]aliasEntry)}
}

// clone deep-copies the table so mutations can be staged and discarded on
// failure.
func (t *aliasTable) clone() *aliasTable {
	cp := &aliasTable{
		entries: make(map[FeedID]aliasEntry, len(t.entries)),
		changed: append([]FeedID(nil), t.changed...),
	}
	for old, entry := range t.entries {
		cp.entries[old] = entry
	}
	return cp
}

// resolve applies at most one alias hop. Chained aliases are deliberately
// not followed; a chain would admit cycles.
func (t *aliasTable) resolve(id FeedID) FeedID {
	if entry, ok := t.entries[id]; ok {
		return entry.newID
	}
	return id
}

// get returns the alias target for old, or the zero identifier when none is
// set.
func (t *aliasTable) get(old FeedID) FeedID {
	return t.entries[old].newID
}

func (t *aliasTable) changedIDs() []FeedID {
	return append([]FeedID(nil), t.changed...)
}

// set adds, updates, or removes one alias pair. Setting newID to the zero
// identifier removes the entry and requires it to exist.
func (t *aliasTable) set(oldID, newID FeedID) error {
	if oldID == newID {
		return ErrSameIdentifier
	}
	if newID.IsZero() {
		return t.remove(oldID)
	}
	if entry, ok := t.entries[oldID]; ok {
		entry.newID = newID
		t.entries[oldID] = entry
		return nil
	}
	t.changed = append(t.changed, oldID)
	t.entries[oldID] = aliasEntry{newID: newID, index: uint64(len(t.changed))}
	return nil
}

func (t *aliasTable) remove(oldID FeedID) error {
	entry, ok := t.entries[oldID]
	if !ok {
		return ErrAliasNotFound
	}
	last := uint64(len(t.changed))
	if entry.index != last {
		moved := t.changed[last-1]
		t.changed[entry.index-1] = moved
		movedEntry := t.entries[moved]
		movedEntry.index = entry.index
		t.entries[moved] = movedEntry
	}
	t.changed = t.changed[:last-1]
	delete(t.entries, oldID)
	return nil
}
