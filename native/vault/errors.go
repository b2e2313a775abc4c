package vault

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"acre/crypto"
	nativecommon "acre/native/common"
)

var (
	errNilAsset = errors.New("vault engine: asset ledger not configured")

	ErrInvalidAmount     = errors.New("vault engine: amount must be positive")
	ErrZeroAddress       = errors.New("vault engine: zero address")
	ErrDisallowedAddress = errors.New("vault engine: disallowed address")
	ErrZeroShares        = errors.New("vault engine: operation would mint zero shares")
	ErrZeroTotalAssets   = errors.New("vault engine: shares outstanding against zero assets")

	ErrSameMinimumDepositAmount = errors.New("vault engine: minimum deposit amount unchanged")
	ErrSameEntryFeeBasisPoints  = errors.New("vault engine: entry fee unchanged")
	ErrSameExitFeeBasisPoints   = errors.New("vault engine: exit fee unchanged")
	ErrSameDispatcher           = errors.New("vault engine: dispatcher unchanged")
	ErrSameTreasury             = errors.New("vault engine: treasury unchanged")
	ErrSamePauseAdmin           = errors.New("vault engine: pause admin unchanged")

	ErrInsufficientDeposit = errors.New("vault engine: deposit below minimum")
	ErrExceededMax         = errors.New("vault engine: amount exceeds maximum")
	ErrLiquidityShortfall  = errors.New("vault engine: liquidity shortfall")

	ErrAlreadyPaused = nativecommon.ErrAlreadyPaused
	ErrNotPaused     = nativecommon.ErrNotPaused
)

// InsufficientDepositError reports a deposit whose fee-adjusted amount is
// below the configured floor.
type InsufficientDepositError struct {
	Amount  *uint256.Int
	Minimum *uint256.Int
}

func (e *InsufficientDepositError) Error() string {
	return fmt.Sprintf("vault engine: deposit amount %s below minimum %s", e.Amount.Dec(), e.Minimum.Dec())
}

func (e *InsufficientDepositError) Unwrap() error { return ErrInsufficientDeposit }

// ExceededMaxError reports a request above the operable maximum for the
// account. Max is zero while the vault is paused.
type ExceededMaxError struct {
	Op        string
	Account   crypto.Address
	Requested *uint256.Int
	Max       *uint256.Int
}

func (e *ExceededMaxError) Error() string {
	return fmt.Sprintf("vault engine: %s of %s for %s exceeds max %s", e.Op, e.Requested.Dec(), e.Account, e.Max.Dec())
}

func (e *ExceededMaxError) Unwrap() error { return ErrExceededMax }

// LiquidityShortfallError reports a withdrawal that could not be funded even
// after pulling principal back from the dispatcher.
type LiquidityShortfallError struct {
	Needed    *uint256.Int
	Available *uint256.Int
	Cause     error
}

func (e *LiquidityShortfallError) Error() string {
	msg := fmt.Sprintf("vault engine: liquidity shortfall: needed %s, available %s", e.Needed.Dec(), e.Available.Dec())
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LiquidityShortfallError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrLiquidityShortfall}
	}
	return []error{ErrLiquidityShortfall, e.Cause}
}
