package feeds

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Store is the key-value surface the registry persists its governed state
// through. feedregistry/storage.Database satisfies it.
type Store interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// RegistrySnapshotKey is the store key the registry snapshot lives under.
var RegistrySnapshotKey = []byte("feeds/registry")

// registrySnapshot is the JSON layout written after every successful
// mutation. List order is preserved so the 1-based reverse indices rebuild
// identically on restore.
type registrySnapshot struct {
	Aliases    []aliasRecord      `json:"aliases"`
	Calculated []calculatedRecord `json:"calculated"`
}

type aliasRecord struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type calculatedRecord struct {
	ID      string `json:"feedId"`
	Address string `json:"address"`
}

func persistSnapshot(store Store, aliases *aliasTable, calculated *calculatedSet) error {
	snapshot := registrySnapshot{
		Aliases:    make([]aliasRecord, 0, len(aliases.changed)),
		Calculated: make([]calculatedRecord, 0, len(calculated.list)),
	}
	for _, old := range aliases.changed {
		snapshot.Aliases = append(snapshot.Aliases, aliasRecord{
			Old: old.String(),
			New: aliases.entries[old].newID.String(),
		})
	}
	for _, id := range calculated.list {
		entry := calculated.entries[id]
		snapshot.Calculated = append(snapshot.Calculated, calculatedRecord{
			ID:      id.String(),
			Address: hex.EncodeToString(entry.address[:]),
		})
	}
	blob, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return store.Put(RegistrySnapshotKey, blob)
}

// SetStore attaches a persistence backend. Subsequent mutations write a
// snapshot before committing.
func (e *Engine) SetStore(store Store) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = store
}

// Restore rehydrates the registry from the attached store, dialing each
// persisted calculated-feed address back into a live handle. A missing
// snapshot is not an error; the registry simply starts empty.
func (e *Engine) Restore(dialer Dialer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store == nil {
		return fmt.Errorf("feeds: restore without store")
	}
	ok, err := e.store.Has(RegistrySnapshotKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	blob, err := e.store.Get(RegistrySnapshotKey)
	if err != nil {
		return err
	}
	var snapshot registrySnapshot
	if err := json.Unmarshal(blob, &snapshot); err != nil {
		return fmt.Errorf("feeds: decode registry snapshot: %w", err)
	}

	aliases := newAliasTable()
	for _, record := range snapshot.Aliases {
		oldID, err := ParseFeedID(record.Old)
		if err != nil {
			return err
		}
		newID, err := ParseFeedID(record.New)
		if err != nil {
			return err
		}
		if err := aliases.set(oldID, newID); err != nil {
			return fmt.Errorf("feeds: restore alias %s: %w", oldID, err)
		}
	}

	calculated := newCalculatedSet()
	for _, record := range snapshot.Calculated {
		id, err := ParseFeedID(record.ID)
		if err != nil {
			return err
		}
		rawAddr, err := hex.DecodeString(record.Address)
		if err != nil || len(rawAddr) != 20 {
			return fmt.Errorf("feeds: restore %s: bad address %q", id, record.Address)
		}
		if dialer == nil {
			return fmt.Errorf("feeds: restore %s: nil dialer", id)
		}
		var addr [20]byte
		copy(addr[:], rawAddr)
		feed, err := dialer.Dial(addr)
		if err != nil {
			return fmt.Errorf("feeds: dial %s: %w", id, err)
		}
		reported, err := calculated.add(feed)
		if err != nil {
			return fmt.Errorf("feeds: restore %s: %w", id, err)
		}
		if reported != id {
			return fmt.Errorf("feeds: restore %s: contract reports %s", id, reported)
		}
	}

	e.aliases = aliases
	e.calculated = calculated
	return nil
}
