package feeds

import (
	"fmt"
	"sync"

	"feedregistry/core/events"
)

// RoleFeedAdmin is the governance role required for registry mutation.
const RoleFeedAdmin = "ROLE_FEED_ADMIN"

// Engine is the outward-facing feed registry: it unifies the
// index-addressed fast source and the calculated-feed registry under one
// identifier namespace, routes fetches and fees to the right collaborator,
// and gates mutation behind the governance role store.
//
// Every public operation is serialized through a single lock; batch
// mutations stage their changes on copies and swap them in only on full
// success, so a failing element leaves no partial state behind.
type Engine struct {
	mu sync.RWMutex

	fast       FastSource
	schedule   FeeSchedule
	relay      RootPublisher
	auth       Authorizer
	emitter    events.Emitter
	store      Store
	protocolID uint8

	aliases    *aliasTable
	calculated *calculatedSet
}

// EngineConfig carries the collaborators an engine is composed from.
type EngineConfig struct {
	Fast       FastSource
	Schedule   FeeSchedule
	Relay      RootPublisher
	Auth       Authorizer
	ProtocolID uint8
}

// NewEngine builds an engine over the supplied collaborators.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Fast == nil || cfg.Schedule == nil || cfg.Relay == nil {
		return nil, ErrNilCollaborator
	}
	return &Engine{
		fast:       cfg.Fast,
		schedule:   cfg.Schedule,
		relay:      cfg.Relay,
		auth:       cfg.Auth,
		emitter:    events.NoopEmitter{},
		protocolID: cfg.ProtocolID,
		aliases:    newAliasTable(),
		calculated: newCalculatedSet(),
	}, nil
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) authorize(caller [20]byte) error {
	if e.auth == nil || !e.auth.HasRole(RoleFeedAdmin, caller[:]) {
		return ErrUnauthorized
	}
	return nil
}

// commit persists the staged tables, swaps them in, and emits the collected
// events. Persistence failure aborts before any state becomes visible.
func (e *Engine) commit(aliases *aliasTable, calculated *calculatedSet, evts []events.Event) error {
	if e.store != nil {
		if err := persistSnapshot(e.store, aliases, calculated); err != nil {
			return fmt.Errorf("feeds: persist registry: %w", err)
		}
	}
	e.aliases = aliases
	e.calculated = calculated
	for _, evt := range evts {
		e.emitter.Emit(evt)
	}
	return nil
}

// ChangeAliases applies a batch of alias pairs. A zero new identifier
// removes the alias for the corresponding old identifier. The batch is
// all-or-nothing.
func (e *Engine) ChangeAliases(caller [20]byte, oldIDs, newIDs []FeedID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(caller); err != nil {
		return err
	}
	if len(oldIDs) != len(newIDs) {
		return ErrLengthMismatch
	}
	staged := e.aliases.clone()
	evts := make([]events.Event, 0, len(oldIDs))
	for i := range oldIDs {
		if err := staged.set(oldIDs[i], newIDs[i]); err != nil {
			return fmt.Errorf("alias %s: %w", oldIDs[i], err)
		}
		evts = append(evts, events.FeedAliasChanged{OldID: oldIDs[i], NewID: newIDs[i]})
	}
	return e.commit(staged, e.calculated, evts)
}

// AddCalculated registers new calculated feeds under their self-reported
// identifiers.
func (e *Engine) AddCalculated(caller [20]byte, feedContracts []CalculatedFeed) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(caller); err != nil {
		return err
	}
	staged := e.calculated.clone()
	evts := make([]events.Event, 0, len(feedContracts))
	for _, feed := range feedContracts {
		id, err := staged.add(feed)
		if err != nil {
			return err
		}
		evts = append(evts, events.CalculatedFeedAdded{ID: id, Address: feed.Address()})
	}
	return e.commit(e.aliases, staged, evts)
}

// ReplaceCalculated swaps the backing contracts of already registered
// calculated feeds, keeping their list positions.
func (e *Engine) ReplaceCalculated(caller [20]byte, feedContracts []CalculatedFeed) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(caller); err != nil {
		return err
	}
	staged := e.calculated.clone()
	evts := make([]events.Event, 0, len(feedContracts))
	for _, feed := range feedContracts {
		id, oldAddr, err := staged.replace(feed)
		if err != nil {
			return err
		}
		evts = append(evts, events.CalculatedFeedReplaced{ID: id, OldAddress: oldAddr, NewAddress: feed.Address()})
	}
	return e.commit(e.aliases, staged, evts)
}

// RemoveCalculated deregisters calculated feeds.
func (e *Engine) RemoveCalculated(caller [20]byte, ids []FeedID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(caller); err != nil {
		return err
	}
	staged := e.calculated.clone()
	evts := make([]events.Event, 0, len(ids))
	for _, id := range ids {
		addr, err := staged.remove(id)
		if err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
		evts = append(evts, events.CalculatedFeedRemoved{ID: id, Address: addr})
	}
	return e.commit(e.aliases, staged, evts)
}

// SupportedFeedIDs enumerates every fetchable identifier: the fast source's
// configured identifiers plus all registered calculated identifiers. The
// category byte keeps the two namespaces disjoint.
func (e *Engine) SupportedFeedIDs() ([]FeedID, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fastIDs, err := e.fast.IDs()
	if err != nil {
		return nil, err
	}
	out := make([]FeedID, 0, len(fastIDs)+e.calculated.len())
	for _, id := range fastIDs {
		if !id.IsZero() {
			out = append(out, id)
		}
	}
	return append(out, e.calculated.ids()...), nil
}

// CalculatedFeedIDs enumerates the registered calculated identifiers.
func (e *Engine) CalculatedFeedIDs() []FeedID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.calculated.ids()
}

// CalculatedFeedAddress returns the backing contract address for id.
func (e *Engine) CalculatedFeedAddress(id FeedID) ([20]byte, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.calculated.addressOf(id)
}

// ChangedFeedIDs enumerates every identifier with an active alias.
func (e *Engine) ChangedFeedIDs() []FeedID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.aliases.changedIDs()
}

// Alias returns the replacement identifier for old, or the zero identifier
// when no alias is set.
func (e *Engine) Alias(old FeedID) FeedID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.aliases.get(old)
}

// ResolveAlias applies one alias hop to id.
func (e *Engine) ResolveAlias(id FeedID) FeedID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.aliases.resolve(id)
}

// IndexOf resolves an identifier (after aliasing) to its fast-source index.
func (e *Engine) IndexOf(id FeedID) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fast.IndexOf(e.aliases.resolve(id))
}

// IDAt returns the identifier configured at a fast-source index.
func (e *Engine) IDAt(index uint64) (FeedID, error) {
	return e.fast.IDAt(index)
}

// VerifyFeedData checks a feed record and proof against the root published
// for the engine's protocol.
func (e *Engine) VerifyFeedData(data FeedDataWithProof) (bool, error) {
	return VerifyFeedData(data, e.protocolID, e.relay)
}
