package feeds

import (
	"fmt"
	"math/big"
)

// FetchByID fetches current values for a batch of identifiers, forwarding
// value as the total payment for the request. Results are returned in the
// order of the original request regardless of how the batch was partitioned
// internally.
//
// Calculated feeds are each charged their exact quoted fee; the
// index-addressed batch then receives the entire remaining value in a single
// call and is expected to reject or refund any excess itself.
func (e *Engine) FetchByID(ids []FeedID, value *big.Int) ([]*big.Int, []int8, uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fetchByID(ids, value)
}

func (e *Engine) fetchByID(ids []FeedID, value *big.Int) ([]*big.Int, []int8, uint64, error) {
	resolved := make([]FeedID, len(ids))
	isCalc := make([]bool, len(ids))
	calcCount := 0
	for i, id := range ids {
		resolved[i] = e.aliases.resolve(id)
		if resolved[i].Calculated() {
			isCalc[i] = true
			calcCount++
		}
	}

	fastIndices := make([]uint64, 0, len(ids)-calcCount)
	for i, id := range resolved {
		if isCalc[i] {
			continue
		}
		index, err := e.fast.IndexOf(id)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("resolve %s: %w", id, err)
		}
		fastIndices = append(fastIndices, index)
	}

	// Fast path: a purely index-addressed batch is delegated wholesale in
	// original order, with no merge step.
	if calcCount == 0 {
		return e.fast.FetchByIndex(fastIndices, value)
	}

	values := make([]*big.Int, len(ids))
	decimals := make([]int8, len(ids))
	var timestamp uint64
	remaining := new(big.Int)
	if value != nil {
		remaining.Set(value)
	}

	for i, id := range resolved {
		if !isCalc[i] {
			continue
		}
		feed := e.calculated.get(id)
		if feed == nil {
			return nil, nil, 0, fmt.Errorf("%w: %s", ErrCalculatedNotSupported, id)
		}
		fee, err := feed.CalculateFee()
		if err != nil {
			return nil, nil, 0, fmt.Errorf("quote fee for %s: %w", id, err)
		}
		if fee == nil {
			fee = new(big.Int)
		}
		if remaining.Cmp(fee) < 0 {
			return nil, nil, 0, fmt.Errorf("%w: feed %s needs %s, %s left", ErrInsufficientValue, id, fee, remaining)
		}
		v, d, ts, err := feed.Fetch(fee)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("fetch %s: %w", id, err)
		}
		remaining.Sub(remaining, fee)
		values[i] = v
		decimals[i] = d
		timestamp = ts
	}

	if len(fastIndices) > 0 {
		fastValues, fastDecimals, fastTS, err := e.fast.FetchByIndex(fastIndices, remaining)
		if err != nil {
			return nil, nil, 0, err
		}
		if len(fastValues) != len(fastIndices) || len(fastDecimals) != len(fastIndices) {
			return nil, nil, 0, ErrLengthMismatch
		}
		next := 0
		for i := range ids {
			if isCalc[i] {
				continue
			}
			values[i] = fastValues[next]
			decimals[i] = fastDecimals[next]
			next++
		}
		// Last writer wins: a mixed batch reports the index-addressed
		// source's timestamp without reconciling it against the
		// calculated feeds'.
		timestamp = fastTS
	}
	return values, decimals, timestamp, nil
}

// FetchOne fetches a single feed, forwarding the full value to whichever
// collaborator backs it.
func (e *Engine) FetchOne(id FeedID, value *big.Int) (*big.Int, int8, uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	resolved := e.aliases.resolve(id)
	if resolved.Calculated() {
		feed := e.calculated.get(resolved)
		if feed == nil {
			return nil, 0, 0, fmt.Errorf("%w: %s", ErrCalculatedNotSupported, resolved)
		}
		return feed.Fetch(value)
	}
	index, err := e.fast.IndexOf(resolved)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("resolve %s: %w", resolved, err)
	}
	values, decimals, timestamp, err := e.fast.FetchByIndex([]uint64{index}, value)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(values) != 1 || len(decimals) != 1 {
		return nil, 0, 0, ErrLengthMismatch
	}
	return values[0], decimals[0], timestamp, nil
}

// FetchByIndex bypasses the identifier namespace entirely and fetches
// directly from the index-addressed source.
func (e *Engine) FetchByIndex(indices []uint64, value *big.Int) ([]*big.Int, []int8, uint64, error) {
	return e.fast.FetchByIndex(indices, value)
}

// FetchByIDInWei is FetchByID with every value rescaled to 18 decimals.
func (e *Engine) FetchByIDInWei(ids []FeedID, value *big.Int) ([]*big.Int, uint64, error) {
	values, decimals, timestamp, err := e.FetchByID(ids, value)
	if err != nil {
		return nil, 0, err
	}
	scaled, err := ToWeiBatch(values, decimals)
	if err != nil {
		return nil, 0, err
	}
	return scaled, timestamp, nil
}

// FetchOneInWei is FetchOne with the value rescaled to 18 decimals.
func (e *Engine) FetchOneInWei(id FeedID, value *big.Int) (*big.Int, uint64, error) {
	v, d, timestamp, err := e.FetchOne(id, value)
	if err != nil {
		return nil, 0, err
	}
	scaled, err := ToWei(v, d)
	if err != nil {
		return nil, 0, err
	}
	return scaled, timestamp, nil
}
