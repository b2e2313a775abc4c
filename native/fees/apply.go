package fees

import (
	"github.com/holiman/uint256"
)

// BasisPointScale is the denominator of every basis-point rate.
const BasisPointScale = 10_000

var basisPoints = uint256.NewInt(BasisPointScale)

// Policy captures the entry and exit fee rates applied by a vault. Rates are
// expressed in basis points and are not capped.
type Policy struct {
	EntryBps uint64
	ExitBps  uint64
}

// Quote summarises a fee evaluation. Gross always equals Fee + Net.
type Quote struct {
	Gross *uint256.Int
	Fee   *uint256.Int
	Net   *uint256.Int
}

// FeeOnTotal returns the fee already included in amount:
// ceil(amount * bps / (bps + 10000)). It is used when amount is the gross
// figure and the fee has to be carved out of it.
func FeeOnTotal(amount *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() || feeBps == 0 {
		return new(uint256.Int), nil
	}
	denominator := new(uint256.Int).AddUint64(uint256.NewInt(feeBps), BasisPointScale)
	return MulDiv(amount, uint256.NewInt(feeBps), denominator, RoundUp)
}

// FeeOnRaw returns the fee to add on top of amount:
// ceil(amount * bps / 10000). It is used when amount is the net figure the
// caller wants to receive or spend.
func FeeOnRaw(amount *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() || feeBps == 0 {
		return new(uint256.Int), nil
	}
	return MulDiv(amount, uint256.NewInt(feeBps), basisPoints, RoundUp)
}

// QuoteOnTotal splits a gross amount into the included fee and the remaining
// net amount.
func QuoteOnTotal(gross *uint256.Int, feeBps uint64) (Quote, error) {
	if gross == nil {
		gross = new(uint256.Int)
	}
	fee, err := FeeOnTotal(gross, feeBps)
	if err != nil {
		return Quote{}, err
	}
	net, underflow := new(uint256.Int).SubOverflow(gross, fee)
	if underflow {
		return Quote{}, ErrOverflow
	}
	return Quote{Gross: gross.Clone(), Fee: fee, Net: net}, nil
}

// QuoteOnRaw adds the fee owed on top of a net amount.
func QuoteOnRaw(net *uint256.Int, feeBps uint64) (Quote, error) {
	if net == nil {
		net = new(uint256.Int)
	}
	fee, err := FeeOnRaw(net, feeBps)
	if err != nil {
		return Quote{}, err
	}
	gross, overflow := new(uint256.Int).AddOverflow(net, fee)
	if overflow {
		return Quote{}, ErrOverflow
	}
	return Quote{Gross: gross, Fee: fee, Net: net.Clone()}, nil
}
