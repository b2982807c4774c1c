package feeds

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// FeedIDLength is the fixed width of a feed identifier in bytes. The first
// byte carries the feed category; the remainder is an opaque, typically
// ASCII-encoded, symbol padded with zero bytes.
const FeedIDLength = 21

// Category values in [CategoryCalculatedMin, CategoryCalculatedMax] mark a
// feed as calculated; every other category is resolved through the
// index-addressed fast source.
const (
	CategoryCalculatedMin = 0x20
	CategoryCalculatedMax = 0x3F
)

// WeiDecimals is the fixed decimal scale returned by the wei-normalised
// fetch variants.
const WeiDecimals = 18

// FeedID is a fixed-width feed identifier.
type FeedID [FeedIDLength]byte

// ZeroFeedID is the absent-identifier sentinel.
var ZeroFeedID FeedID

// Calculated reports whether the identifier's category byte marks it as a
// calculated feed.
func (id FeedID) Calculated() bool {
	return id[0] >= CategoryCalculatedMin && id[0] <= CategoryCalculatedMax
}

// IsZero reports whether the identifier is the zero sentinel.
func (id FeedID) IsZero() bool {
	return id == ZeroFeedID
}

// Category returns the identifier's category byte.
func (id FeedID) Category() byte { return id[0] }

// Symbol returns the identifier payload with trailing zero padding stripped.
func (id FeedID) Symbol() string {
	return string(bytes.TrimRight(id[1:], "\x00"))
}

// String renders the identifier as 0x-prefixed hex.
func (id FeedID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// ParseFeedID decodes a 0x-prefixed or bare hex string into a FeedID.
func ParseFeedID(s string) (FeedID, error) {
	var id FeedID
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidFeedID, err)
	}
	if len(raw) != FeedIDLength {
		return id, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidFeedID, FeedIDLength, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// NewFeedID builds an identifier from a category byte and a symbol of at
// most FeedIDLength-1 bytes.
func NewFeedID(category byte, symbol string) (FeedID, error) {
	var id FeedID
	if len(symbol) > FeedIDLength-1 {
		return id, fmt.Errorf("%w: symbol %q exceeds %d bytes", ErrInvalidFeedID, symbol, FeedIDLength-1)
	}
	id[0] = category
	copy(id[1:], symbol)
	return id, nil
}

// FeedData is the canonical record hashed into the feed merkle tree for one
// voting round. It mirrors the payload produced by the oracle substrate and
// is used here only for proof verification.
type FeedData struct {
	VotingRoundID uint32
	ID            FeedID
	Value         int32
	TurnoutBIPS   uint16
	Decimals      int8
}

// Encode renders the record in its canonical fixed-width big-endian layout:
// 4-byte round, 21-byte id, 4-byte value, 2-byte turnout, 1-byte decimals.
func (d FeedData) Encode() []byte {
	buf := make([]byte, 0, 32)
	buf = binary.BigEndian.AppendUint32(buf, d.VotingRoundID)
	buf = append(buf, d.ID[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(d.Value))
	buf = binary.BigEndian.AppendUint16(buf, d.TurnoutBIPS)
	buf = append(buf, byte(d.Decimals))
	return buf
}

// FeedDataWithProof pairs a feed record with the sibling hashes proving its
// inclusion in a published round root.
type FeedDataWithProof struct {
	Proof [][32]byte
	Body  FeedData
}

// FastSource is the index-addressed feed collaborator. Identifiers living in
// its namespace resolve to small integer positions in a configuration list.
type FastSource interface {
	// IndexOf resolves an identifier to its configured index. Unregistered
	// identifiers surface ErrFeedNotFound semantics.
	IndexOf(id FeedID) (uint64, error)
	// IDAt returns the identifier configured at index, or the zero
	// identifier for an unused slot.
	IDAt(index uint64) (FeedID, error)
	// IDs enumerates the currently configured identifiers.
	IDs() ([]FeedID, error)
	// FetchByIndex fetches the current values for the given indices,
	// forwarding value as payment for the whole batch.
	FetchByIndex(indices []uint64, value *big.Int) ([]*big.Int, []int8, uint64, error)
}

// CalculatedFeed is a pluggable collaborator deriving a feed value on
// demand.
type CalculatedFeed interface {
	// FeedID is the collaborator's self-reported identifier. Its category
	// byte must classify as calculated.
	FeedID() (FeedID, error)
	// Address identifies the backing contract instance.
	Address() [20]byte
	// CalculateFee quotes the fee for a single fetch.
	CalculateFee() (*big.Int, error)
	// Fetch computes the current value, consuming value as payment.
	Fetch(value *big.Int) (*big.Int, int8, uint64, error)
}

// FeeSchedule quotes fees for index-addressed feeds.
type FeeSchedule interface {
	FeeForIDs(ids []FeedID) (*big.Int, error)
	FeeForIndices(indices []uint64) (*big.Int, error)
}

// RootPublisher exposes published merkle roots per protocol and voting
// round.
type RootPublisher interface {
	Root(protocolID uint8, votingRoundID uint32) ([32]byte, error)
}

// Authorizer gates registry mutation. Implementations are expected to be
// backed by the governance role store.
type Authorizer interface {
	HasRole(role string, addr []byte) bool
}

// Dialer resolves a stored calculated-feed address back into a live
// collaborator handle when the registry is rehydrated from storage.
type Dialer interface {
	Dial(addr [20]byte) (CalculatedFeed, error)
}
