package feeds

import (
	"bytes"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// LeafHash computes the keccak256 leaf for a feed record's canonical
// encoding.
func LeafHash(body FeedData) [32]byte {
	var leaf [32]byte
	copy(leaf[:], ethcrypto.Keccak256(body.Encode()))
	return leaf
}

// hashPair combines two sibling hashes commutatively: the pair is hashed in
// ascending byte order, so proof entries need not record which side of the
// tree they came from.
func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}

// verifyInclusion reconstructs a root from leaf and proof and compares it
// against the published root.
func verifyInclusion(leaf [32]byte, proof [][32]byte, root [32]byte) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

// VerifyFeedData checks a claimed feed record against the root published for
// its voting round. There is no false return: a mismatch is always an
// ErrInvalidProof failure.
func VerifyFeedData(data FeedDataWithProof, protocolID uint8, publisher RootPublisher) (bool, error) {
	if publisher == nil {
		return false, ErrNilCollaborator
	}
	root, err := publisher.Root(protocolID, data.Body.VotingRoundID)
	if err != nil {
		return false, fmt.Errorf("feeds: fetch root for round %d: %w", data.Body.VotingRoundID, err)
	}
	if !verifyInclusion(LeafHash(data.Body), data.Proof, root) {
		return false, ErrInvalidProof
	}
	return true, nil
}
