package vault

import (
	"fmt"

	"github.com/holiman/uint256"

	"acre/crypto"
	nativecommon "acre/native/common"
	"acre/native/token"
)

// Snapshot is the persisted form of the vault state.
type Snapshot struct {
	Owner                crypto.Address
	PendingOwner         crypto.Address
	PauseAdmin           crypto.Address
	Treasury             crypto.Address
	Dispatcher           crypto.Address
	MinimumDepositAmount *uint256.Int
	EntryFeeBps          uint64
	ExitFeeBps           uint64
	AssetSymbol          string
	Paused               bool
	Shares               token.Export
}

// Export captures the vault state including the share ledger.
func (e *Engine) Export() Snapshot {
	return Snapshot{
		Owner:                e.access.Owner(),
		PendingOwner:         e.access.PendingOwner(),
		PauseAdmin:           e.PauseAdmin(),
		Treasury:             e.treasury,
		Dispatcher:           e.Dispatcher(),
		MinimumDepositAmount: e.minimumDeposit.Clone(),
		EntryFeeBps:          e.entryFeeBps,
		ExitFeeBps:           e.exitFeeBps,
		AssetSymbol:          e.assetSymbol,
		Paused:               e.Paused(),
		Shares:               e.shares.Export(),
	}
}

// Validate checks the snapshot against the dispatcher that will be installed
// on import without touching any engine.
func (s Snapshot) Validate(dispatcher Dispatcher) error {
	if s.Owner.IsZero() || s.Treasury.IsZero() {
		return ErrZeroAddress
	}
	if !s.Dispatcher.IsZero() && (dispatcher == nil || dispatcher.Address() != s.Dispatcher) {
		return fmt.Errorf("vault engine: snapshot dispatcher %s not supplied", s.Dispatcher)
	}
	if err := s.Shares.Validate(); err != nil {
		return fmt.Errorf("vault engine: shares: %w", err)
	}
	return nil
}

// Import overwrites the vault state. The dispatcher recorded in the snapshot
// must match the supplied dispatcher. Import is not journaled.
func (e *Engine) Import(s Snapshot, dispatcher Dispatcher) error {
	if err := s.Validate(dispatcher); err != nil {
		return err
	}
	if s.Dispatcher.IsZero() {
		dispatcher = nil
	}
	if err := e.shares.Import(s.Shares); err != nil {
		return err
	}
	members := map[nativecommon.Role][]crypto.Address{}
	if !s.PauseAdmin.IsZero() {
		members[nativecommon.RolePauseAdmin] = []crypto.Address{s.PauseAdmin}
	}
	e.access.Restore(s.Owner, s.PendingOwner, members)
	e.treasury = s.Treasury
	e.dispatcher = dispatcher
	e.minimumDeposit = new(uint256.Int)
	if s.MinimumDepositAmount != nil {
		e.minimumDeposit = s.MinimumDepositAmount.Clone()
	}
	e.entryFeeBps = s.EntryFeeBps
	e.exitFeeBps = s.ExitFeeBps
	e.assetSymbol = s.AssetSymbol
	e.pauses.Restore(moduleName, s.Paused)
	return nil
}
