package feeds

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
)

func mustFeedID(t *testing.T, category byte, symbol string) FeedID {
	t.Helper()
	id, err := NewFeedID(category, symbol)
	if err != nil {
		t.Fatalf("new feed id: %v", err)
	}
	return id
}

func addr(index byte) [20]byte {
	var out [20]byte
	out[19] = index
	return out
}

// stubFast is an in-memory index-addressed source recording the payment
// value and indices of the last batch call.
type stubFast struct {
	ids       []FeedID
	values    map[FeedID]*big.Int
	decimals  map[FeedID]int8
	timestamp uint64

	fetchCalls  int
	lastIndices []uint64
	lastValue   *big.Int
}

func newStubFast(timestamp uint64) *stubFast {
	return &stubFast{
		values:    make(map[FeedID]*big.Int),
		decimals:  make(map[FeedID]int8),
		timestamp: timestamp,
	}
}

func (s *stubFast) register(id FeedID, value int64, decimals int8) {
	s.ids = append(s.ids, id)
	s.values[id] = big.NewInt(value)
	s.decimals[id] = decimals
}

func (s *stubFast) IndexOf(id FeedID) (uint64, error) {
	for i, candidate := range s.ids {
		if candidate == id {
			return uint64(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrFeedNotFound, id)
}

func (s *stubFast) IDAt(index uint64) (FeedID, error) {
	if index >= uint64(len(s.ids)) {
		return ZeroFeedID, nil
	}
	return s.ids[index], nil
}

func (s *stubFast) IDs() ([]FeedID, error) {
	return append([]FeedID(nil), s.ids...), nil
}

func (s *stubFast) FetchByIndex(indices []uint64, value *big.Int) ([]*big.Int, []int8, uint64, error) {
	s.fetchCalls++
	s.lastIndices = append([]uint64(nil), indices...)
	s.lastValue = new(big.Int)
	if value != nil {
		s.lastValue.Set(value)
	}
	values := make([]*big.Int, len(indices))
	decimals := make([]int8, len(indices))
	for i, index := range indices {
		if index >= uint64(len(s.ids)) {
			return nil, nil, 0, fmt.Errorf("%w: index %d", ErrFeedNotFound, index)
		}
		id := s.ids[index]
		values[i] = new(big.Int).Set(s.values[id])
		decimals[i] = s.decimals[id]
	}
	return values, decimals, s.timestamp, nil
}

// stubCalc is a scripted calculated-feed collaborator.
type stubCalc struct {
	id        FeedID
	address   [20]byte
	fee       *big.Int
	value     *big.Int
	decimals  int8
	timestamp uint64

	feedIDErr  error
	fetchCalls int
	lastValue  *big.Int
}

func (s *stubCalc) FeedID() (FeedID, error) {
	if s.feedIDErr != nil {
		return ZeroFeedID, s.feedIDErr
	}
	return s.id, nil
}

func (s *stubCalc) Address() [20]byte { return s.address }

func (s *stubCalc) CalculateFee() (*big.Int, error) {
	return new(big.Int).Set(s.fee), nil
}

func (s *stubCalc) Fetch(value *big.Int) (*big.Int, int8, uint64, error) {
	s.fetchCalls++
	s.lastValue = new(big.Int)
	if value != nil {
		s.lastValue.Set(value)
	}
	return new(big.Int).Set(s.value), s.decimals, s.timestamp, nil
}

// stubSchedule quotes per-identifier fees and records how it was consulted.
type stubSchedule struct {
	fees        map[FeedID]int64
	perIndexFee int64

	idCalls     int
	emptyCalled bool
}

func (s *stubSchedule) FeeForIDs(ids []FeedID) (*big.Int, error) {
	s.idCalls++
	if len(ids) == 0 {
		s.emptyCalled = true
	}
	total := new(big.Int)
	for _, id := range ids {
		fee, ok := s.fees[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFeedNotFound, id)
		}
		total.Add(total, big.NewInt(fee))
	}
	return total, nil
}

func (s *stubSchedule) FeeForIndices(indices []uint64) (*big.Int, error) {
	return big.NewInt(s.perIndexFee * int64(len(indices))), nil
}

type rootKey struct {
	protocol uint8
	round    uint32
}

type stubRelay struct {
	roots map[rootKey][32]byte
}

func (s *stubRelay) Root(protocolID uint8, votingRoundID uint32) ([32]byte, error) {
	root, ok := s.roots[rootKey{protocolID, votingRoundID}]
	if !ok {
		return [32]byte{}, errors.New("no root published")
	}
	return root, nil
}

type stubAuth struct {
	admin [20]byte
}

func (s *stubAuth) HasRole(role string, caller []byte) bool {
	if role != RoleFeedAdmin || len(caller) != 20 {
		return false
	}
	var key [20]byte
	copy(key[:], caller)
	return key == s.admin
}

type testFixture struct {
	engine   *Engine
	fast     *stubFast
	schedule *stubSchedule
	relay    *stubRelay
	admin    [20]byte

	btc FeedID // index-addressed
	eth FeedID // index-addressed
	cmp FeedID // calculated composite
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		fast:     newStubFast(1_700_000_100),
		schedule: &stubSchedule{fees: make(map[FeedID]int64), perIndexFee: 5},
		relay:    &stubRelay{roots: make(map[rootKey][32]byte)},
		admin:    addr(0xAD),
	}
	f.btc = mustFeedID(t, 0x01, "BTC/USD")
	f.eth = mustFeedID(t, 0x01, "ETH/USD")
	f.cmp = mustFeedID(t, 0x20, "CMP/USD")
	f.fast.register(f.btc, 64_000_00000, 5)
	f.fast.register(f.eth, 3_100_00000, 5)
	f.schedule.fees[f.btc] = 12
	f.schedule.fees[f.eth] = 9

	engine, err := NewEngine(EngineConfig{
		Fast:       f.fast,
		Schedule:   f.schedule,
		Relay:      f.relay,
		Auth:       &stubAuth{admin: f.admin},
		ProtocolID: 100,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	f.engine = engine
	return f
}

func (f *testFixture) newCalc(t *testing.T, symbol string, fee, value int64, decimals int8, ts uint64, index byte) *stubCalc {
	t.Helper()
	return &stubCalc{
		id:        mustFeedID(t, 0x20, symbol),
		address:   addr(index),
		fee:       big.NewInt(fee),
		value:     big.NewInt(value),
		decimals:  decimals,
		timestamp: ts,
	}
}

func (f *testFixture) addCalc(t *testing.T, calc *stubCalc) {
	t.Helper()
	if err := f.engine.AddCalculated(f.admin, []CalculatedFeed{calc}); err != nil {
		t.Fatalf("add calculated: %v", err)
	}
}
