// Package gov provides the role store gating registry mutation. The daemon
// runs with a static grant set loaded from configuration; an embedding chain
// would substitute its own governance-backed implementation.
package gov

import "sync"

// StaticAuthorizer is a fixed in-memory role store.
type StaticAuthorizer struct {
	mu     sync.RWMutex
	grants map[string]map[[20]byte]struct{}
}

func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{grants: make(map[string]map[[20]byte]struct{})}
}

// Grant assigns role to addr.
func (a *StaticAuthorizer) Grant(role string, addr [20]byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	holders, ok := a.grants[role]
	if !ok {
		holders = make(map[[20]byte]struct{})
		a.grants[role] = holders
	}
	holders[addr] = struct{}{}
}

// Revoke removes role from addr.
func (a *StaticAuthorizer) Revoke(role string, addr [20]byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.grants[role], addr)
}

// HasRole reports whether addr holds role.
func (a *StaticAuthorizer) HasRole(role string, addr []byte) bool {
	if len(addr) != 20 {
		return false
	}
	var key [20]byte
	copy(key[:], addr)
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.grants[role][key]
	return ok
}
