package feeds

import (
	"bytes"
	"testing"
)

func TestCalculatedCategoryRange(t *testing.T) {
	for b := 0; b < 256; b++ {
		var id FeedID
		id[0] = byte(b)
		want := b >= 0x20 && b < 0x40
		if got := id.Calculated(); got != want {
			t.Fatalf("category %#x: Calculated() = %v, want %v", b, got, want)
		}
	}
}

func TestFeedIDSymbol(t *testing.T) {
	id := mustFeedID(t, 0x01, "BTC/USD")
	if id.Symbol() != "BTC/USD" {
		t.Fatalf("unexpected symbol %q", id.Symbol())
	}
	if id.Category() != 0x01 {
		t.Fatalf("unexpected category %#x", id.Category())
	}
}

func TestFeedIDParseRoundTrip(t *testing.T) {
	id := mustFeedID(t, 0x20, "CMP/USD")
	parsed, err := ParseFeedID(id.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("round trip mismatch: %s != %s", parsed, id)
	}
	if _, err := ParseFeedID("0x1234"); err == nil {
		t.Fatalf("expected short id to be rejected")
	}
	if _, err := ParseFeedID("zz"); err == nil {
		t.Fatalf("expected non-hex id to be rejected")
	}
}

func TestNewFeedIDRejectsLongSymbol(t *testing.T) {
	if _, err := NewFeedID(0x01, "THIS/SYMBOL/IS/TOO/LONG"); err == nil {
		t.Fatalf("expected oversized symbol to be rejected")
	}
}

func TestFeedDataEncodeLayout(t *testing.T) {
	id := mustFeedID(t, 0x01, "BTC/USD")
	body := FeedData{
		VotingRoundID: 0x01020304,
		ID:            id,
		Value:         -2,
		TurnoutBIPS:   0x0506,
		Decimals:      -1,
	}
	encoded := body.Encode()
	if len(encoded) != 32 {
		t.Fatalf("unexpected encoding length %d", len(encoded))
	}
	if !bytes.Equal(encoded[:4], []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Fatalf("round id not big-endian: %x", encoded[:4])
	}
	if !bytes.Equal(encoded[4:25], id[:]) {
		t.Fatalf("id bytes corrupted: %x", encoded[4:25])
	}
	if !bytes.Equal(encoded[25:29], []byte{0xFF, 0xFF, 0xFF, 0xFE}) {
		t.Fatalf("value not two's complement big-endian: %x", encoded[25:29])
	}
	if !bytes.Equal(encoded[29:31], []byte{0x05, 0x06}) {
		t.Fatalf("turnout not big-endian: %x", encoded[29:31])
	}
	if encoded[31] != 0xFF {
		t.Fatalf("decimals byte: %#x", encoded[31])
	}
}
