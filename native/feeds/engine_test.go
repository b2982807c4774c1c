package feeds

import (
	"errors"
	"testing"

	"feedregistry/core/events"
	"feedregistry/storage"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

type stubDialer struct {
	handles map[[20]byte]*stubCalc
}

func (d *stubDialer) Dial(a [20]byte) (CalculatedFeed, error) {
	handle, ok := d.handles[a]
	if !ok {
		return nil, errors.New("no contract at address")
	}
	return handle, nil
}

func TestEngineRejectsUnauthorizedMutation(t *testing.T) {
	f := newTestFixture(t)
	intruder := addr(0x66)
	calc := f.newCalc(t, "CMP/USD", 8, 555, 3, 0, 0x10)

	if err := f.engine.AddCalculated(intruder, []CalculatedFeed{calc}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.engine.ChangeAliases(intruder, []FeedID{f.btc}, []FeedID{f.eth}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.engine.RemoveCalculated(intruder, []FeedID{f.cmp}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(f.engine.CalculatedFeedIDs()) != 0 || len(f.engine.ChangedFeedIDs()) != 0 {
		t.Fatalf("unauthorized calls must not mutate state")
	}
}

func TestEngineChangeAliasesLengthMismatch(t *testing.T) {
	f := newTestFixture(t)
	err := f.engine.ChangeAliases(f.admin, []FeedID{f.btc}, nil)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestEngineBatchMutationIsAtomic(t *testing.T) {
	f := newTestFixture(t)
	good := f.newCalc(t, "AAA/USD", 1, 1, 0, 0, 0x11)
	dup := f.newCalc(t, "AAA/USD", 1, 1, 0, 0, 0x12)

	err := f.engine.AddCalculated(f.admin, []CalculatedFeed{good, dup})
	if !errors.Is(err, ErrFeedExists) {
		t.Fatalf("expected ErrFeedExists, got %v", err)
	}
	if len(f.engine.CalculatedFeedIDs()) != 0 {
		t.Fatalf("failed batch must leave no partial registrations")
	}
}

func TestEngineEmitsEvents(t *testing.T) {
	f := newTestFixture(t)
	emitter := &capturingEmitter{}
	f.engine.SetEmitter(emitter)

	calc := f.newCalc(t, "CMP/USD", 8, 555, 3, 0, 0x10)
	f.addCalc(t, calc)
	retired := mustFeedID(t, 0x01, "XBT/USD")
	if err := f.engine.ChangeAliases(f.admin, []FeedID{retired}, []FeedID{f.btc}); err != nil {
		t.Fatalf("change aliases: %v", err)
	}
	if err := f.engine.ChangeAliases(f.admin, []FeedID{retired}, []FeedID{ZeroFeedID}); err != nil {
		t.Fatalf("remove alias: %v", err)
	}
	if err := f.engine.RemoveCalculated(f.admin, []FeedID{f.cmp}); err != nil {
		t.Fatalf("remove calculated: %v", err)
	}

	if len(emitter.events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(emitter.events))
	}
	if emitter.events[0].EventType() != events.TypeCalculatedFeedAdded {
		t.Fatalf("event 0 type %s", emitter.events[0].EventType())
	}
	removal, ok := emitter.events[2].(events.FeedAliasChanged)
	if !ok {
		t.Fatalf("event 2 is %T", emitter.events[2])
	}
	if removal.NewID != [21]byte(ZeroFeedID) {
		t.Fatalf("alias removal must report the zero identifier")
	}
	if emitter.events[3].EventType() != events.TypeCalculatedFeedRemoved {
		t.Fatalf("event 3 type %s", emitter.events[3].EventType())
	}
}

func TestEngineSupportedFeedIDsUnion(t *testing.T) {
	f := newTestFixture(t)
	calc := f.newCalc(t, "CMP/USD", 8, 555, 3, 0, 0x10)
	f.addCalc(t, calc)

	ids, err := f.engine.SupportedFeedIDs()
	if err != nil {
		t.Fatalf("supported: %v", err)
	}
	want := map[FeedID]bool{f.btc: true, f.eth: true, f.cmp: true}
	if len(ids) != len(want) {
		t.Fatalf("supported length %d, want %d", len(ids), len(want))
	}
	for _, id := range ids {
		if !want[id] {
			t.Fatalf("unexpected id %s", id)
		}
	}
}

func TestEnginePersistAndRestore(t *testing.T) {
	f := newTestFixture(t)
	db := storage.NewMemDB()
	f.engine.SetStore(db)

	calcA := f.newCalc(t, "CMP/USD", 8, 555, 3, 0, 0x10)
	calcB := f.newCalc(t, "VOL/USD", 4, 9, 2, 0, 0x11)
	f.addCalc(t, calcA)
	f.addCalc(t, calcB)
	retired := mustFeedID(t, 0x01, "XBT/USD")
	if err := f.engine.ChangeAliases(f.admin, []FeedID{retired}, []FeedID{f.btc}); err != nil {
		t.Fatalf("change aliases: %v", err)
	}

	restoredFixture := newTestFixture(t)
	restored := restoredFixture.engine
	restored.SetStore(db)
	dialer := &stubDialer{handles: map[[20]byte]*stubCalc{
		calcA.address: calcA,
		calcB.address: calcB,
	}}
	if err := restored.Restore(dialer); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if got := restored.Alias(retired); got != f.btc {
		t.Fatalf("restored alias = %s, want %s", got, f.btc)
	}
	ids := restored.CalculatedFeedIDs()
	if len(ids) != 2 {
		t.Fatalf("restored %d calculated feeds, want 2", len(ids))
	}
	if addrA, ok := restored.CalculatedFeedAddress(calcA.id); !ok || addrA != calcA.address {
		t.Fatalf("restored address mismatch for %s", calcA.id)
	}
}

func TestEngineRestoreWithoutSnapshotIsEmpty(t *testing.T) {
	f := newTestFixture(t)
	f.engine.SetStore(storage.NewMemDB())
	if err := f.engine.Restore(&stubDialer{}); err != nil {
		t.Fatalf("restore empty store: %v", err)
	}
	if len(f.engine.CalculatedFeedIDs()) != 0 {
		t.Fatalf("empty store must restore an empty registry")
	}
}

type failingStore struct{}

func (failingStore) Put([]byte, []byte) error   { return errors.New("disk full") }
func (failingStore) Get([]byte) ([]byte, error) { return nil, errors.New("disk full") }
func (failingStore) Has([]byte) (bool, error)   { return false, nil }

func TestEnginePersistFailureRollsBack(t *testing.T) {
	f := newTestFixture(t)
	f.engine.SetStore(failingStore{})
	emitter := &capturingEmitter{}
	f.engine.SetEmitter(emitter)

	calc := f.newCalc(t, "CMP/USD", 8, 555, 3, 0, 0x10)
	if err := f.engine.AddCalculated(f.admin, []CalculatedFeed{calc}); err == nil {
		t.Fatalf("expected persistence failure to abort the mutation")
	}
	if len(f.engine.CalculatedFeedIDs()) != 0 {
		t.Fatalf("failed persist must roll back staged state")
	}
	if len(emitter.events) != 0 {
		t.Fatalf("no events may be emitted for an aborted mutation")
	}
}
