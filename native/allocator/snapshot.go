package allocator

import (
	"github.com/holiman/uint256"

	"acre/crypto"
	nativecommon "acre/native/common"
)

// Snapshot is the persisted form of the allocator state.
type Snapshot struct {
	Owner          crypto.Address
	PendingOwner   crypto.Address
	Withdrawer     crypto.Address
	Maintainers    []crypto.Address
	DepositBalance *uint256.Int
}

// Export captures the allocator state.
func (e *Engine) Export() Snapshot {
	return Snapshot{
		Owner:          e.access.Owner(),
		PendingOwner:   e.access.PendingOwner(),
		Withdrawer:     e.Withdrawer(),
		Maintainers:    e.Maintainers(),
		DepositBalance: e.DepositBalance(),
	}
}

// Validate rejects snapshots without an owner or withdrawer.
func (s Snapshot) Validate() error {
	if s.Owner.IsZero() || s.Withdrawer.IsZero() {
		return ErrZeroAddress
	}
	return nil
}

// Import overwrites the allocator state. It is not journaled.
func (e *Engine) Import(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.access.Restore(s.Owner, s.PendingOwner, map[nativecommon.Role][]crypto.Address{
		nativecommon.RoleWithdrawer: {s.Withdrawer},
		nativecommon.RoleMaintainer: s.Maintainers,
	})
	if s.DepositBalance == nil {
		e.depositBalance = new(uint256.Int)
	} else {
		e.depositBalance = s.DepositBalance.Clone()
	}
	return nil
}
