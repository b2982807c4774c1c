package upstream

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"feedregistry/native/feeds"
)

// codeNotFound is the JSON-RPC code collaborators use for unregistered
// identifiers; it maps back onto feeds.ErrFeedNotFound so the engine's
// error taxonomy survives the network hop.
const codeNotFound = -32004

func mapError(err error) error {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == codeNotFound {
		return fmt.Errorf("%w: %s", feeds.ErrFeedNotFound, rpcErr.Message)
	}
	return err
}

func parseAmount(s string) (*big.Int, error) {
	if strings.TrimSpace(s) == "" {
		return new(big.Int), nil
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("upstream: invalid amount %q", s)
	}
	return amount, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type fetchResult struct {
	Values    []string `json:"values"`
	Decimals  []int8   `json:"decimals"`
	Timestamp uint64   `json:"timestamp"`
}

func (r fetchResult) decode() ([]*big.Int, []int8, uint64, error) {
	values := make([]*big.Int, len(r.Values))
	for i, s := range r.Values {
		v, err := parseAmount(s)
		if err != nil {
			return nil, nil, 0, err
		}
		values[i] = v
	}
	return values, r.Decimals, r.Timestamp, nil
}

// FastSource implements feeds.FastSource over a remote fast-update endpoint.
type FastSource struct {
	client *Client
}

func NewFastSource(client *Client) *FastSource {
	return &FastSource{client: client}
}

func (s *FastSource) IndexOf(id feeds.FeedID) (uint64, error) {
	var result struct {
		Index uint64 `json:"index"`
	}
	params := map[string]string{"feedId": id.String()}
	if err := s.client.Call(context.Background(), "fast_indexOf", params, &result); err != nil {
		return 0, mapError(err)
	}
	return result.Index, nil
}

func (s *FastSource) IDAt(index uint64) (feeds.FeedID, error) {
	var result struct {
		FeedID string `json:"feedId"`
	}
	params := map[string]uint64{"index": index}
	if err := s.client.Call(context.Background(), "fast_idAt", params, &result); err != nil {
		return feeds.ZeroFeedID, mapError(err)
	}
	if strings.TrimSpace(result.FeedID) == "" {
		return feeds.ZeroFeedID, nil
	}
	return feeds.ParseFeedID(result.FeedID)
}

func (s *FastSource) IDs() ([]feeds.FeedID, error) {
	var result struct {
		FeedIDs []string `json:"feedIds"`
	}
	if err := s.client.Call(context.Background(), "fast_feedIds", nil, &result); err != nil {
		return nil, mapError(err)
	}
	ids := make([]feeds.FeedID, 0, len(result.FeedIDs))
	for _, raw := range result.FeedIDs {
		id, err := feeds.ParseFeedID(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *FastSource) FetchByIndex(indices []uint64, value *big.Int) ([]*big.Int, []int8, uint64, error) {
	var result fetchResult
	params := map[string]interface{}{"indices": indices, "value": amountString(value)}
	if err := s.client.Call(context.Background(), "fast_fetchByIndex", params, &result); err != nil {
		return nil, nil, 0, mapError(err)
	}
	return result.decode()
}

// FeeSchedule implements feeds.FeeSchedule over a remote fee-configuration
// endpoint.
type FeeSchedule struct {
	client *Client
}

func NewFeeSchedule(client *Client) *FeeSchedule {
	return &FeeSchedule{client: client}
}

func (s *FeeSchedule) FeeForIDs(ids []feeds.FeedID) (*big.Int, error) {
	encoded := make([]string, len(ids))
	for i, id := range ids {
		encoded[i] = id.String()
	}
	var result struct {
		Fee string `json:"fee"`
	}
	params := map[string]interface{}{"feedIds": encoded}
	if err := s.client.Call(context.Background(), "fees_forIds", params, &result); err != nil {
		return nil, mapError(err)
	}
	return parseAmount(result.Fee)
}

func (s *FeeSchedule) FeeForIndices(indices []uint64) (*big.Int, error) {
	var result struct {
		Fee string `json:"fee"`
	}
	params := map[string]interface{}{"indices": indices}
	if err := s.client.Call(context.Background(), "fees_forIndices", params, &result); err != nil {
		return nil, mapError(err)
	}
	return parseAmount(result.Fee)
}

// Relay implements feeds.RootPublisher over the root-publishing endpoint.
type Relay struct {
	client *Client
}

func NewRelay(client *Client) *Relay {
	return &Relay{client: client}
}

func (r *Relay) Root(protocolID uint8, votingRoundID uint32) ([32]byte, error) {
	var root [32]byte
	var result struct {
		Root string `json:"root"`
	}
	params := map[string]interface{}{"protocolId": protocolID, "votingRoundId": votingRoundID}
	if err := r.client.Call(context.Background(), "relay_root", params, &result); err != nil {
		return root, mapError(err)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(result.Root, "0x"))
	if err != nil || len(raw) != 32 {
		return root, fmt.Errorf("upstream: invalid root %q", result.Root)
	}
	copy(root[:], raw)
	return root, nil
}

// CalculatedDialer implements feeds.Dialer: it binds a contract address to a
// remote calculated-feed handle served from one shared endpoint.
type CalculatedDialer struct {
	client *Client
}

func NewCalculatedDialer(client *Client) *CalculatedDialer {
	return &CalculatedDialer{client: client}
}

func (d *CalculatedDialer) Dial(addr [20]byte) (feeds.CalculatedFeed, error) {
	if d.client == nil {
		return nil, fmt.Errorf("upstream: calculated feed endpoint not configured")
	}
	return &calculatedFeed{client: d.client, addr: addr}, nil
}

type calculatedFeed struct {
	client *Client
	addr   [20]byte
}

func (f *calculatedFeed) Address() [20]byte { return f.addr }

func (f *calculatedFeed) addressHex() string {
	return "0x" + hex.EncodeToString(f.addr[:])
}

func (f *calculatedFeed) FeedID() (feeds.FeedID, error) {
	var result struct {
		FeedID string `json:"feedId"`
	}
	params := map[string]string{"address": f.addressHex()}
	if err := f.client.Call(context.Background(), "calc_feedId", params, &result); err != nil {
		return feeds.ZeroFeedID, mapError(err)
	}
	return feeds.ParseFeedID(result.FeedID)
}

func (f *calculatedFeed) CalculateFee() (*big.Int, error) {
	var result struct {
		Fee string `json:"fee"`
	}
	params := map[string]string{"address": f.addressHex()}
	if err := f.client.Call(context.Background(), "calc_calculateFee", params, &result); err != nil {
		return nil, mapError(err)
	}
	return parseAmount(result.Fee)
}

func (f *calculatedFeed) Fetch(value *big.Int) (*big.Int, int8, uint64, error) {
	var result struct {
		Value     string `json:"value"`
		Decimals  int8   `json:"decimals"`
		Timestamp uint64 `json:"timestamp"`
	}
	params := map[string]interface{}{"address": f.addressHex(), "value": amountString(value)}
	if err := f.client.Call(context.Background(), "calc_fetch", params, &result); err != nil {
		return nil, 0, 0, mapError(err)
	}
	v, err := parseAmount(result.Value)
	if err != nil {
		return nil, 0, 0, err
	}
	return v, result.Decimals, result.Timestamp, nil
}
