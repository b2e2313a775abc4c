package vault

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"

	"acre/core/events"
	"acre/crypto"
	nativecommon "acre/native/common"
	"acre/native/token"
)

// UpdateMinimumDepositAmount changes the deposit floor.
func (e *Engine) UpdateMinimumDepositAmount(caller crypto.Address, amount *uint256.Int) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner); err != nil {
		return err
	}
	if amount == nil {
		amount = new(uint256.Int)
	}
	if amount.Eq(e.minimumDeposit) {
		return ErrSameMinimumDepositAmount
	}
	previous := e.minimumDeposit
	e.minimumDeposit = amount.Clone()
	e.journal.Record(func() { e.minimumDeposit = previous })
	e.emitter.Emit(ParameterUpdated{Parameter: ParameterMinimumDepositAmount, Old: previous.Dec(), New: amount.Dec()})
	return nil
}

// UpdateEntryFeeBasisPoints changes the fee charged on deposit and mint.
func (e *Engine) UpdateEntryFeeBasisPoints(caller crypto.Address, bps uint64) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner); err != nil {
		return err
	}
	if bps == e.entryFeeBps {
		return ErrSameEntryFeeBasisPoints
	}
	previous := e.entryFeeBps
	e.entryFeeBps = bps
	e.journal.Record(func() { e.entryFeeBps = previous })
	e.emitter.Emit(ParameterUpdated{Parameter: ParameterEntryFeeBasisPoints, Old: strconv.FormatUint(previous, 10), New: strconv.FormatUint(bps, 10)})
	return nil
}

// UpdateExitFeeBasisPoints changes the fee charged on withdraw and redeem.
func (e *Engine) UpdateExitFeeBasisPoints(caller crypto.Address, bps uint64) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner); err != nil {
		return err
	}
	if bps == e.exitFeeBps {
		return ErrSameExitFeeBasisPoints
	}
	previous := e.exitFeeBps
	e.exitFeeBps = bps
	e.journal.Record(func() { e.exitFeeBps = previous })
	e.emitter.Emit(ParameterUpdated{Parameter: ParameterExitFeeBasisPoints, Old: strconv.FormatUint(previous, 10), New: strconv.FormatUint(bps, 10)})
	return nil
}

// UpdateDispatcher swaps the dispatcher. The previous dispatcher loses its
// asset allowance and the new one is granted an unlimited allowance.
func (e *Engine) UpdateDispatcher(caller crypto.Address, dispatcher Dispatcher) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner); err != nil {
		return err
	}
	if e.asset == nil {
		return errNilAsset
	}
	if dispatcher == nil || dispatcher.Address().IsZero() {
		return ErrZeroAddress
	}
	next := dispatcher.Address()
	if next == e.address {
		return ErrDisallowedAddress
	}
	old := e.Dispatcher()
	if next == old {
		return ErrSameDispatcher
	}
	if !old.IsZero() {
		if err := e.asset.Approve(e.address, old, new(uint256.Int)); err != nil {
			return fmt.Errorf("vault engine: revoke dispatcher allowance: %w", err)
		}
	}
	if err := e.asset.Approve(e.address, next, token.MaxAllowance()); err != nil {
		return fmt.Errorf("vault engine: grant dispatcher allowance: %w", err)
	}
	previous := e.dispatcher
	e.dispatcher = dispatcher
	e.journal.Record(func() { e.dispatcher = previous })
	e.emitter.Emit(ParameterUpdated{Parameter: ParameterDispatcher, Old: events.FormatAddress(old), New: events.FormatAddress(next)})
	return nil
}

// UpdateTreasury changes the fee destination. The treasury can be neither
// the zero address nor the vault itself.
func (e *Engine) UpdateTreasury(caller, treasury crypto.Address) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner); err != nil {
		return err
	}
	if treasury.IsZero() {
		return ErrZeroAddress
	}
	if treasury == e.address {
		return ErrDisallowedAddress
	}
	if treasury == e.treasury {
		return ErrSameTreasury
	}
	previous := e.treasury
	e.treasury = treasury
	e.journal.Record(func() { e.treasury = previous })
	e.emitter.Emit(ParameterUpdated{Parameter: ParameterTreasury, Old: events.FormatAddress(previous), New: events.FormatAddress(treasury)})
	return nil
}

// UpdatePauseAdmin changes the identity allowed to pause besides the owner.
func (e *Engine) UpdatePauseAdmin(caller, admin crypto.Address) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner); err != nil {
		return err
	}
	if admin.IsZero() {
		return ErrZeroAddress
	}
	if admin == e.PauseAdmin() {
		return ErrSamePauseAdmin
	}
	previous, err := e.access.Replace(nativecommon.RolePauseAdmin, admin)
	if err != nil {
		return err
	}
	e.emitter.Emit(ParameterUpdated{Parameter: ParameterPauseAdmin, Old: events.FormatAddress(previous), New: events.FormatAddress(admin)})
	return nil
}

// Pause halts deposits, withdrawals and share transfers.
func (e *Engine) Pause(caller crypto.Address) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner, nativecommon.RolePauseAdmin); err != nil {
		return err
	}
	if err := e.pauses.Pause(moduleName); err != nil {
		return err
	}
	e.emitter.Emit(PauseChanged{Account: caller, Paused: true})
	return nil
}

// Unpause resumes normal operation.
func (e *Engine) Unpause(caller crypto.Address) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner, nativecommon.RolePauseAdmin); err != nil {
		return err
	}
	if err := e.pauses.Unpause(moduleName); err != nil {
		return err
	}
	e.emitter.Emit(PauseChanged{Account: caller})
	return nil
}

// TransferOwnership nominates a new owner.
func (e *Engine) TransferOwnership(caller, newOwner crypto.Address) error {
	if err := e.access.TransferOwnership(caller, newOwner); err != nil {
		return err
	}
	e.emitter.Emit(events.OwnershipTransferStarted{Module: moduleName, PreviousOwner: caller, PendingOwner: newOwner})
	return nil
}

// AcceptOwnership completes a pending ownership transfer.
func (e *Engine) AcceptOwnership(caller crypto.Address) error {
	previous, err := e.access.AcceptOwnership(caller)
	if err != nil {
		return err
	}
	e.emitter.Emit(events.OwnershipTransferred{Module: moduleName, PreviousOwner: previous, NewOwner: caller})
	return nil
}
