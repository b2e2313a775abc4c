package portal

import (
	"errors"
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"acre/core/events"
	"acre/core/state"
	"acre/crypto"
)

// ModuleName identifies the venue in module address derivation.
const ModuleName = "portal"

var (
	errNilAsset        = errors.New("portal: asset ledger not configured")
	ErrInvalidAmount   = errors.New("portal: amount must be positive")
	ErrInvalidReceiver = errors.New("portal: invalid receiver")
	ErrInsufficient    = errors.New("portal: insufficient position")
)

// InsufficientPositionError reports a withdrawal larger than the caller's
// recorded position.
type InsufficientPositionError struct {
	Principal crypto.Address
	Position  *uint256.Int
	Requested *uint256.Int
}

func (e *InsufficientPositionError) Error() string {
	return fmt.Sprintf("portal: position of %s is %s, requested %s",
		e.Principal, e.Position.Dec(), e.Requested.Dec())
}

func (e *InsufficientPositionError) Unwrap() error { return ErrInsufficient }

type assetLedger interface {
	Transfer(from, to crypto.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error
}

// WithdrawHook observes a withdrawal after the position has been reduced and
// before the assets leave the venue. Returning an error aborts the
// withdrawal.
type WithdrawHook func(principal, receiver crypto.Address, amount *uint256.Int) error

// Engine is an in-memory yield venue that holds principal on behalf of
// depositors. Positions are journaled with the rest of the engine state.
type Engine struct {
	address     crypto.Address
	asset       assetLedger
	journal     *state.Journal
	emitter     events.Emitter
	positions   map[crypto.Address]*uint256.Int
	granularity *uint256.Int
	hook        WithdrawHook
}

// NewEngine constructs a venue holding its assets at the module address.
func NewEngine(asset assetLedger, journal *state.Journal) *Engine {
	return &Engine{
		address:   crypto.ModuleAddress(ModuleName),
		asset:     asset,
		journal:   journal,
		emitter:   events.NoopEmitter{},
		positions: make(map[crypto.Address]*uint256.Int),
	}
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

// SetWithdrawalGranularity configures the unit withdrawals are truncated to.
// Nil or zero disables truncation.
func (e *Engine) SetWithdrawalGranularity(unit *uint256.Int) {
	if unit == nil || unit.IsZero() {
		e.granularity = nil
		return
	}
	e.granularity = unit.Clone()
}

// SetWithdrawHook installs a hook run during every withdrawal.
func (e *Engine) SetWithdrawHook(hook WithdrawHook) { e.hook = hook }

// Address returns the account holding the venue's assets.
func (e *Engine) Address() crypto.Address { return e.address }

// DepositOf returns the position recorded for principal.
func (e *Engine) DepositOf(principal crypto.Address) *uint256.Int {
	if pos, ok := e.positions[principal]; ok {
		return pos.Clone()
	}
	return new(uint256.Int)
}

// DepositFor pulls amount from caller, using the allowance caller granted to
// the venue, and credits it to principal.
func (e *Engine) DepositFor(caller, principal crypto.Address, amount *uint256.Int) error {
	if e.asset == nil {
		return errNilAsset
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	if principal.IsZero() {
		return ErrInvalidReceiver
	}
	if err := e.asset.TransferFrom(e.address, caller, e.address, amount); err != nil {
		return fmt.Errorf("portal: pull deposit: %w", err)
	}
	position := new(uint256.Int).Add(e.DepositOf(principal), amount)
	e.setPosition(principal, position)
	e.emitter.Emit(events.Wrap(NewDepositedEvent(caller, principal, amount, position)))
	return nil
}

// WithdrawTo releases up to amount of the caller's position to receiver and
// returns the amount actually released. When a granularity is configured the
// request is truncated down to a multiple of it.
func (e *Engine) WithdrawTo(caller, receiver crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	if e.asset == nil {
		return nil, errNilAsset
	}
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	if receiver.IsZero() {
		return nil, ErrInvalidReceiver
	}
	position := e.DepositOf(caller)
	if position.Lt(amount) {
		return nil, &InsufficientPositionError{Principal: caller, Position: position, Requested: amount.Clone()}
	}
	released := amount.Clone()
	if e.granularity != nil {
		remainder := new(uint256.Int).Mod(released, e.granularity)
		released.Sub(released, remainder)
	}
	remaining := new(uint256.Int).Sub(position, released)
	e.setPosition(caller, remaining)
	if e.hook != nil {
		if err := e.hook(caller, receiver, released.Clone()); err != nil {
			return nil, err
		}
	}
	if !released.IsZero() {
		if err := e.asset.Transfer(e.address, receiver, released); err != nil {
			return nil, fmt.Errorf("portal: release withdrawal: %w", err)
		}
	}
	e.emitter.Emit(events.Wrap(NewWithdrawnEvent(caller, receiver, amount, released, remaining)))
	return released, nil
}

func (e *Engine) setPosition(principal crypto.Address, value *uint256.Int) {
	previous, existed := e.positions[principal]
	e.journal.Record(func() {
		if existed {
			e.positions[principal] = previous
		} else {
			delete(e.positions, principal)
		}
	})
	if value.IsZero() {
		delete(e.positions, principal)
		return
	}
	e.positions[principal] = value
}

// Position is one exported venue position.
type Position struct {
	Principal crypto.Address
	Amount    *uint256.Int
}

// Export returns every position in address order.
func (e *Engine) Export() []Position {
	out := make([]Position, 0, len(e.positions))
	for principal, amount := range e.positions {
		out = append(out, Position{Principal: principal, Amount: amount.Clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Principal.Compare(out[j].Principal) < 0 })
	return out
}

// Import replaces every position. It is not journaled.
func (e *Engine) Import(positions []Position) {
	e.positions = make(map[crypto.Address]*uint256.Int, len(positions))
	for _, pos := range positions {
		if pos.Amount == nil || pos.Amount.IsZero() {
			continue
		}
		e.positions[pos.Principal] = pos.Amount.Clone()
	}
}
