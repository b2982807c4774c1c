package feeds

import (
	"math/big"

	"github.com/holiman/uint256"
)

// ToWei rescales a (value, decimals) pair to the fixed 18-decimal wei
// representation. Scaling up is overflow-checked against 256 bits; scaling
// down uses floor division and deliberately discards sub-wei precision.
func ToWei(value *big.Int, decimals int8) (*big.Int, error) {
	if value == nil {
		value = new(big.Int)
	}
	shift := WeiDecimals - int(decimals)
	if shift >= 0 {
		scaled := new(big.Int).Mul(value, pow10(shift))
		if _, overflow := uint256.FromBig(scaled); overflow {
			return nil, ErrOverflow
		}
		return scaled, nil
	}
	return new(big.Int).Div(value, pow10(-shift)), nil
}

// ToWeiBatch applies ToWei element-wise. The length check guards an internal
// invariant; both slices originate from the same collaborator response.
func ToWeiBatch(values []*big.Int, decimals []int8) ([]*big.Int, error) {
	if len(values) != len(decimals) {
		return nil, ErrLengthMismatch
	}
	out := make([]*big.Int, len(values))
	for i, v := range values {
		scaled, err := ToWei(v, decimals[i])
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
