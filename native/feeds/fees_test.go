package feeds

import (
	"errors"
	"math/big"
	"testing"
)

func TestFeeForManyMixedBatch(t *testing.T) {
	f := newTestFixture(t)
	calc := f.newCalc(t, "CMP/USD", 8, 555, 3, 0, 0x10)
	f.addCalc(t, calc)

	fee, err := f.engine.FeeForMany([]FeedID{f.btc, f.eth, f.cmp})
	if err != nil {
		t.Fatalf("fee for many: %v", err)
	}
	if fee.Cmp(big.NewInt(29)) != 0 {
		t.Fatalf("fee = %s, want 29 (12 + 9 + 8)", fee)
	}
	if f.schedule.idCalls != 1 {
		t.Fatalf("schedule consulted %d times, want exactly 1", f.schedule.idCalls)
	}
}

func TestFeeForManySkipsEmptyIndexSubset(t *testing.T) {
	f := newTestFixture(t)
	calc := f.newCalc(t, "CMP/USD", 8, 555, 3, 0, 0x10)
	f.addCalc(t, calc)

	fee, err := f.engine.FeeForMany([]FeedID{f.cmp})
	if err != nil {
		t.Fatalf("fee for many: %v", err)
	}
	if fee.Cmp(big.NewInt(8)) != 0 {
		t.Fatalf("fee = %s, want 8", fee)
	}
	if f.schedule.idCalls != 0 || f.schedule.emptyCalled {
		t.Fatalf("schedule must not be consulted for an empty index subset")
	}
}

func TestFeeForManyUnsupportedCalculated(t *testing.T) {
	f := newTestFixture(t)
	if _, err := f.engine.FeeForMany([]FeedID{f.cmp}); !errors.Is(err, ErrCalculatedNotSupported) {
		t.Fatalf("expected ErrCalculatedNotSupported, got %v", err)
	}
}

func TestFeeForOne(t *testing.T) {
	f := newTestFixture(t)
	calc := f.newCalc(t, "CMP/USD", 8, 555, 3, 0, 0x10)
	f.addCalc(t, calc)

	fee, err := f.engine.FeeForOne(f.cmp)
	if err != nil {
		t.Fatalf("fee calc: %v", err)
	}
	if fee.Cmp(big.NewInt(8)) != 0 {
		t.Fatalf("calculated fee = %s, want 8", fee)
	}

	fee, err = f.engine.FeeForOne(f.btc)
	if err != nil {
		t.Fatalf("fee fast: %v", err)
	}
	if fee.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("fast fee = %s, want 12", fee)
	}
}

func TestFeeForOneUnknownFast(t *testing.T) {
	f := newTestFixture(t)
	unknown := mustFeedID(t, 0x01, "XRP/USD")
	if _, err := f.engine.FeeForOne(unknown); !errors.Is(err, ErrFeedNotFound) {
		t.Fatalf("expected ErrFeedNotFound, got %v", err)
	}
}

func TestFeeForOneResolvesAlias(t *testing.T) {
	f := newTestFixture(t)
	retired := mustFeedID(t, 0x01, "XBT/USD")
	if err := f.engine.ChangeAliases(f.admin, []FeedID{retired}, []FeedID{f.btc}); err != nil {
		t.Fatalf("change aliases: %v", err)
	}
	fee, err := f.engine.FeeForOne(retired)
	if err != nil {
		t.Fatalf("fee via alias: %v", err)
	}
	if fee.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("fee = %s, want 12", fee)
	}
}

func TestFeeForIndices(t *testing.T) {
	f := newTestFixture(t)
	fee, err := f.engine.FeeForIndices([]uint64{0, 1, 2})
	if err != nil {
		t.Fatalf("fee for indices: %v", err)
	}
	if fee.Cmp(big.NewInt(15)) != 0 {
		t.Fatalf("fee = %s, want 15", fee)
	}
}
