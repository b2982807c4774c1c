package feeds

import (
	"fmt"
	"math/big"
)

// FeeForOne quotes the fee owed for fetching a single feed.
func (e *Engine) FeeForOne(id FeedID) (*big.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	resolved := e.aliases.resolve(id)
	if resolved.Calculated() {
		feed := e.calculated.get(resolved)
		if feed == nil {
			return nil, fmt.Errorf("%w: %s", ErrCalculatedNotSupported, resolved)
		}
		return feed.CalculateFee()
	}
	if _, err := e.fast.IndexOf(resolved); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", resolved, err)
	}
	return e.schedule.FeeForIDs([]FeedID{resolved})
}

// FeeForMany quotes the total fee for a batch: the sum of each calculated
// feed's individual quote plus one aggregate fee-schedule call covering the
// whole index-addressed subset. The schedule is never consulted for an empty
// subset.
func (e *Engine) FeeForMany(ids []FeedID) (*big.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := new(big.Int)
	fastIDs := make([]FeedID, 0, len(ids))
	for _, id := range ids {
		resolved := e.aliases.resolve(id)
		if !resolved.Calculated() {
			fastIDs = append(fastIDs, resolved)
			continue
		}
		feed := e.calculated.get(resolved)
		if feed == nil {
			return nil, fmt.Errorf("%w: %s", ErrCalculatedNotSupported, resolved)
		}
		fee, err := feed.CalculateFee()
		if err != nil {
			return nil, fmt.Errorf("quote fee for %s: %w", resolved, err)
		}
		if fee != nil {
			total.Add(total, fee)
		}
	}
	if len(fastIDs) > 0 {
		fee, err := e.schedule.FeeForIDs(fastIDs)
		if err != nil {
			return nil, err
		}
		if fee != nil {
			total.Add(total, fee)
		}
	}
	return total, nil
}

// FeeForIndices quotes the fee for a batch addressed directly by index.
func (e *Engine) FeeForIndices(indices []uint64) (*big.Int, error) {
	return e.schedule.FeeForIndices(indices)
}
