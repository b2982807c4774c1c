package events

import "encoding/hex"

const (
	TypeFeedAliasChanged       = "feeds.alias.changed"
	TypeCalculatedFeedAdded    = "feeds.calculated.added"
	TypeCalculatedFeedReplaced = "feeds.calculated.replaced"
	TypeCalculatedFeedRemoved  = "feeds.calculated.removed"
)

// FeedAliasChanged is emitted once per alias pair processed by a change
// batch, including removals, where the new identifier is reported as the
// zero identifier.
type FeedAliasChanged struct {
	OldID [21]byte
	NewID [21]byte
}

func (FeedAliasChanged) EventType() string { return TypeFeedAliasChanged }

func (e FeedAliasChanged) Attributes() map[string]string {
	return map[string]string{
		"oldFeedId": hex.EncodeToString(e.OldID[:]),
		"newFeedId": hex.EncodeToString(e.NewID[:]),
	}
}

// CalculatedFeedAdded records a new calculated feed registration.
type CalculatedFeedAdded struct {
	ID      [21]byte
	Address [20]byte
}

func (CalculatedFeedAdded) EventType() string { return TypeCalculatedFeedAdded }

func (e CalculatedFeedAdded) Attributes() map[string]string {
	return map[string]string{
		"feedId":  hex.EncodeToString(e.ID[:]),
		"address": hex.EncodeToString(e.Address[:]),
	}
}

// CalculatedFeedReplaced records a backing-contract swap for an already
// registered calculated feed.
type CalculatedFeedReplaced struct {
	ID         [21]byte
	OldAddress [20]byte
	NewAddress [20]byte
}

func (CalculatedFeedReplaced) EventType() string { return TypeCalculatedFeedReplaced }

func (e CalculatedFeedReplaced) Attributes() map[string]string {
	return map[string]string{
		"feedId":     hex.EncodeToString(e.ID[:]),
		"oldAddress": hex.EncodeToString(e.OldAddress[:]),
		"newAddress": hex.EncodeToString(e.NewAddress[:]),
	}
}

// CalculatedFeedRemoved records a calculated feed deregistration.
type CalculatedFeedRemoved struct {
	ID      [21]byte
	Address [20]byte
}

func (CalculatedFeedRemoved) EventType() string { return TypeCalculatedFeedRemoved }

func (e CalculatedFeedRemoved) Attributes() map[string]string {
	return map[string]string{
		"feedId":  hex.EncodeToString(e.ID[:]),
		"address": hex.EncodeToString(e.Address[:]),
	}
}
