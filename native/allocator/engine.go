package allocator

import (
	"fmt"

	"github.com/holiman/uint256"

	"acre/core/events"
	"acre/core/state"
	"acre/crypto"
	nativecommon "acre/native/common"
)

const moduleName = "allocator"

// AssetLedger is the fungible ledger holding the vault's underlying asset.
type AssetLedger interface {
	BalanceOf(addr crypto.Address) *uint256.Int
	Transfer(from, to crypto.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error
	Approve(owner, spender crypto.Address, amount *uint256.Int) error
}

// YieldVenue is the external venue principal is delegated to.
type YieldVenue interface {
	Address() crypto.Address
	DepositFor(caller, principal crypto.Address, amount *uint256.Int) error
	WithdrawTo(caller, receiver crypto.Address, amount *uint256.Int) (*uint256.Int, error)
	DepositOf(principal crypto.Address) *uint256.Int
}

// Config captures the roles the allocator is created with.
type Config struct {
	Owner       crypto.Address
	Vault       crypto.Address
	Withdrawer  crypto.Address
	Maintainers []crypto.Address
}

// Engine moves idle vault principal into the yield venue and back, tracking
// the delegated principal independently of the venue's own accounting.
type Engine struct {
	address        crypto.Address
	vault          crypto.Address
	asset          AssetLedger
	venue          YieldVenue
	journal        *state.Journal
	access         *nativecommon.AccessControl
	emitter        events.Emitter
	guard          nativecommon.ReentrancyGuard
	depositBalance *uint256.Int
}

// NewEngine constructs an allocator bound to the supplied vault, asset and
// venue.
func NewEngine(cfg Config, asset AssetLedger, venue YieldVenue, journal *state.Journal) (*Engine, error) {
	if cfg.Owner.IsZero() || cfg.Vault.IsZero() {
		return nil, ErrZeroAddress
	}
	withdrawer := cfg.Withdrawer
	if withdrawer.IsZero() {
		withdrawer = cfg.Vault
	}
	e := &Engine{
		address:        crypto.ModuleAddress(moduleName),
		vault:          cfg.Vault,
		asset:          asset,
		venue:          venue,
		journal:        journal,
		access:         nativecommon.NewAccessControl(cfg.Owner, journal),
		emitter:        events.NoopEmitter{},
		depositBalance: new(uint256.Int),
	}
	if err := e.access.Grant(nativecommon.RoleWithdrawer, withdrawer); err != nil {
		return nil, err
	}
	for _, maintainer := range cfg.Maintainers {
		if err := e.access.Grant(nativecommon.RoleMaintainer, maintainer); err != nil {
			return nil, fmt.Errorf("allocator engine: maintainer %s: %w", maintainer, err)
		}
	}
	return e, nil
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Address returns the account holding assets in transit.
func (e *Engine) Address() crypto.Address { return e.address }

// Vault returns the vault the allocator serves.
func (e *Engine) Vault() crypto.Address { return e.vault }

// DepositBalance returns the principal currently delegated to the venue.
func (e *Engine) DepositBalance() *uint256.Int { return e.depositBalance.Clone() }

// TotalAssets is the allocator's contribution to the vault's total assets.
func (e *Engine) TotalAssets() *uint256.Int { return e.DepositBalance() }

func (e *Engine) Owner() crypto.Address          { return e.access.Owner() }
func (e *Engine) PendingOwner() crypto.Address   { return e.access.PendingOwner() }
func (e *Engine) Maintainers() []crypto.Address { return e.access.Members(nativecommon.RoleMaintainer) }

// Withdrawer returns the identity allowed to draw principal back.
func (e *Engine) Withdrawer() crypto.Address {
	members := e.access.Members(nativecommon.RoleWithdrawer)
	if len(members) == 0 {
		return crypto.Address{}
	}
	return members[0]
}

// Allocate sweeps every idle vault asset into the venue and returns the
// amount moved. Zero idle assets is a no-op.
func (e *Engine) Allocate(caller crypto.Address) (*uint256.Int, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := e.access.Require(caller, nativecommon.RoleMaintainer); err != nil {
		return nil, err
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	idle := e.asset.BalanceOf(e.vault)
	if idle.IsZero() {
		return new(uint256.Int), nil
	}
	if err := e.asset.TransferFrom(e.address, e.vault, e.address, idle); err != nil {
		return nil, fmt.Errorf("allocator engine: pull idle assets: %w", err)
	}
	if err := e.asset.Approve(e.address, e.venue.Address(), idle); err != nil {
		return nil, fmt.Errorf("allocator engine: approve venue: %w", err)
	}
	if err := e.venue.DepositFor(e.address, e.address, idle); err != nil {
		return nil, fmt.Errorf("allocator engine: deposit to venue: %w", err)
	}
	previous := e.depositBalance.Clone()
	next, overflow := new(uint256.Int).AddOverflow(previous, idle)
	if overflow {
		return nil, fmt.Errorf("allocator engine: deposit balance overflow")
	}
	e.setDepositBalance(next)
	e.emitter.Emit(DepositAllocated{OldDepositBalance: previous, Added: idle.Clone(), DepositBalance: next.Clone()})
	return idle, nil
}

// Withdraw draws amount back from the venue and forwards what the venue
// actually released to the withdrawer. The deposit balance shrinks by the
// released amount, which may be lower than requested when the venue
// truncates.
func (e *Engine) Withdraw(caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := e.access.Require(caller, nativecommon.RoleWithdrawer); err != nil {
		return nil, err
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	if amount.Gt(e.depositBalance) {
		return nil, &InsufficientDepositError{Requested: amount.Clone(), DepositBalance: e.depositBalance.Clone()}
	}
	received, err := e.venue.WithdrawTo(e.address, e.address, amount)
	if err != nil {
		return nil, fmt.Errorf("allocator engine: withdraw from venue: %w", err)
	}
	if received == nil {
		received = new(uint256.Int)
	}
	if received.Gt(amount) {
		return nil, ErrVenueOverReleased
	}
	next := new(uint256.Int).Sub(e.depositBalance, received)
	e.setDepositBalance(next)
	if !received.IsZero() {
		if err := e.asset.Transfer(e.address, caller, received); err != nil {
			return nil, fmt.Errorf("allocator engine: forward withdrawal: %w", err)
		}
	}
	e.emitter.Emit(DepositWithdrawn{Withdrawer: caller, Requested: amount.Clone(), Received: received.Clone(), DepositBalance: next.Clone()})
	return received.Clone(), nil
}

// ReleaseDeposit recalls the entire venue position to the vault and zeroes
// the deposit balance.
func (e *Engine) ReleaseDeposit(caller crypto.Address) (*uint256.Int, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := e.access.Require(caller, nativecommon.RoleOwner); err != nil {
		return nil, err
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	position := e.venue.DepositOf(e.address)
	received := new(uint256.Int)
	if !position.IsZero() {
		received, err = e.venue.WithdrawTo(e.address, e.address, position)
		if err != nil {
			return nil, fmt.Errorf("allocator engine: release venue position: %w", err)
		}
	}
	e.setDepositBalance(new(uint256.Int))
	if !received.IsZero() {
		if err := e.asset.Transfer(e.address, e.vault, received); err != nil {
			return nil, fmt.Errorf("allocator engine: return released assets: %w", err)
		}
	}
	e.emitter.Emit(DepositReleased{Amount: received.Clone()})
	return received.Clone(), nil
}

// AddMaintainer registers an additional identity allowed to allocate.
func (e *Engine) AddMaintainer(caller, maintainer crypto.Address) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner); err != nil {
		return err
	}
	if maintainer.IsZero() {
		return ErrZeroAddress
	}
	if e.access.HasRole(nativecommon.RoleMaintainer, maintainer) {
		return ErrMaintainerExists
	}
	if err := e.access.Grant(nativecommon.RoleMaintainer, maintainer); err != nil {
		return err
	}
	e.emitter.Emit(MaintainerChanged{Maintainer: maintainer, Added: true})
	return nil
}

// RemoveMaintainer revokes a maintainer.
func (e *Engine) RemoveMaintainer(caller, maintainer crypto.Address) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner); err != nil {
		return err
	}
	if !e.access.HasRole(nativecommon.RoleMaintainer, maintainer) {
		return ErrMaintainerNotFound
	}
	if err := e.access.Revoke(nativecommon.RoleMaintainer, maintainer); err != nil {
		return err
	}
	e.emitter.Emit(MaintainerChanged{Maintainer: maintainer})
	return nil
}

// UpdateWithdrawer replaces the identity allowed to draw principal back.
func (e *Engine) UpdateWithdrawer(caller, withdrawer crypto.Address) error {
	if err := e.access.Require(caller, nativecommon.RoleOwner); err != nil {
		return err
	}
	if withdrawer.IsZero() {
		return ErrZeroAddress
	}
	if withdrawer == e.Withdrawer() {
		return ErrSameWithdrawer
	}
	previous, err := e.access.Replace(nativecommon.RoleWithdrawer, withdrawer)
	if err != nil {
		return err
	}
	e.emitter.Emit(WithdrawerUpdated{Old: previous, New: withdrawer})
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

func (e *Engine) ready() error {
	if e.asset == nil {
		return errNilAsset
	}
	if e.venue == nil {
		return errNilVenue
	}
	return nil
}

func (e *Engine) setDepositBalance(value *uint256.Int) {
	previous := e.depositBalance
	e.journal.Record(func() { e.depositBalance = previous })
	e.depositBalance = value
}
