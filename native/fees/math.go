package fees

import (
	"errors"

	"github.com/holiman/uint256"
)

// Rounding selects the direction applied to the remainder of an integer
// division. There is deliberately no usable zero value: every conversion must
// name its direction.
type Rounding uint8

const (
	// RoundDown truncates any remainder (floor).
	RoundDown Rounding = iota + 1
	// RoundUp rounds any non-zero remainder away from zero (ceiling).
	RoundUp
)

func (r Rounding) String() string {
	switch r {
	case RoundDown:
		return "down"
	case RoundUp:
		return "up"
	default:
		return "unspecified"
	}
}

var (
	ErrDivisionByZero      = errors.New("fees: division by zero")
	ErrOverflow            = errors.New("fees: arithmetic overflow")
	ErrRoundingUnspecified = errors.New("fees: rounding direction not specified")
)

// MulDiv computes x*y/d with a 512-bit intermediate product, rounding the
// quotient in the requested direction. It fails when d is zero or when the
// result does not fit in 256 bits.
func MulDiv(x, y, d *uint256.Int, rounding Rounding) (*uint256.Int, error) {
	if rounding != RoundDown && rounding != RoundUp {
		return nil, ErrRoundingUnspecified
	}
	if d == nil || d.IsZero() {
		return nil, ErrDivisionByZero
	}
	if x == nil || y == nil || x.IsZero() || y.IsZero() {
		return new(uint256.Int), nil
	}
	quotient, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	if rounding == RoundUp {
		remainder := new(uint256.Int).MulMod(x, y, d)
		if !remainder.IsZero() {
			if _, overflow := quotient.AddOverflow(quotient, uint256.NewInt(1)); overflow {
				return nil, ErrOverflow
			}
		}
	}
	return quotient, nil
}
