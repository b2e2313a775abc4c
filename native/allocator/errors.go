package allocator

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	errNilAsset = errors.New("allocator engine: asset ledger not configured")
	errNilVenue = errors.New("allocator engine: yield venue not configured")

	ErrInvalidAmount       = errors.New("allocator engine: amount must be positive")
	ErrZeroAddress         = errors.New("allocator engine: zero address")
	ErrSameWithdrawer      = errors.New("allocator engine: withdrawer unchanged")
	ErrMaintainerExists    = errors.New("allocator engine: maintainer already registered")
	ErrMaintainerNotFound  = errors.New("allocator engine: maintainer not registered")
	ErrInsufficientDeposit = errors.New("allocator engine: insufficient deposit balance")
	ErrVenueOverReleased   = errors.New("allocator engine: venue released more than requested")
)

// InsufficientDepositError reports a withdrawal request larger than the
// principal currently delegated to the venue.
type InsufficientDepositError struct {
	Requested      *uint256.Int
	DepositBalance *uint256.Int
}

func (e *InsufficientDepositError) Error() string {
	return fmt.Sprintf("allocator engine: requested %s exceeds deposit balance %s",
		e.Requested.Dec(), e.DepositBalance.Dec())
}

func (e *InsufficientDepositError) Unwrap() error { return ErrInsufficientDeposit }
