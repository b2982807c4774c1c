package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"feedregistry/native/feeds"
)

type feedIDsParams struct {
	FeedIDs []string `json:"feedIds"`
}

type feedIDParams struct {
	FeedID string `json:"feedId"`
}

type indexParams struct {
	Index uint64 `json:"index"`
}

type fetchParams struct {
	FeedIDs []string `json:"feedIds"`
	Value   string   `json:"value"`
}

type fetchByIndexParams struct {
	Indices []uint64 `json:"indices"`
	Value   string   `json:"value"`
}

type indicesParams struct {
	Indices []uint64 `json:"indices"`
}

type changeAliasesParams struct {
	OldFeedIDs []string `json:"oldFeedIds"`
	NewFeedIDs []string `json:"newFeedIds"`
}

type addressesParams struct {
	Addresses []string `json:"addresses"`
}

type verifyParams struct {
	Proof []string       `json:"proof"`
	Body  feedDataParams `json:"body"`
}

type feedDataParams struct {
	VotingRoundID uint32 `json:"votingRoundId"`
	FeedID        string `json:"feedId"`
	Value         int32  `json:"value"`
	TurnoutBIPS   uint16 `json:"turnoutBIPS"`
	Decimals      int8   `json:"decimals"`
}

type fetchResult struct {
	Values    []string `json:"values"`
	Decimals  []int8   `json:"decimals"`
	Timestamp uint64   `json:"timestamp"`
}

type fetchWeiResult struct {
	Values    []string `json:"values"`
	Decimals  int8     `json:"decimals"`
	Timestamp uint64   `json:"timestamp"`
}

type feeResult struct {
	Fee string `json:"fee"`
}

type calculatedEntry struct {
	FeedID  string `json:"feedId"`
	Address string `json:"address"`
}

func parseFeedIDs(raw []string) ([]feeds.FeedID, error) {
	ids := make([]feeds.FeedID, len(raw))
	for i, s := range raw {
		id, err := feeds.ParseFeedID(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// parseAliasFeedIDs admits the zero identifier (alias removal) either as the
// full zero hex string or as an empty string.
func parseAliasFeedIDs(raw []string) ([]feeds.FeedID, error) {
	ids := make([]feeds.FeedID, len(raw))
	for i, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		id, err := feeds.ParseFeedID(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func parseValue(s string) (*big.Int, error) {
	if strings.TrimSpace(s) == "" {
		return new(big.Int), nil
	}
	value, ok := new(big.Int).SetString(s, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid value %q", s)
	}
	return value, nil
}

func parseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %v", s, err)
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("invalid address %q: want 20 bytes", s)
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseProof(raw []string) ([][32]byte, error) {
	proof := make([][32]byte, len(raw))
	for i, s := range raw {
		decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
		if err != nil || len(decoded) != 32 {
			return nil, fmt.Errorf("invalid proof element %q", s)
		}
		copy(proof[i][:], decoded)
	}
	return proof, nil
}

func encodeFeedIDs(ids []feeds.FeedID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func encodeValues(values []*big.Int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = "0"
			continue
		}
		out[i] = v.String()
	}
	return out
}
