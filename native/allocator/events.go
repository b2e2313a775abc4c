package allocator

import (
	"github.com/holiman/uint256"

	"acre/core/events"
	"acre/core/types"
	"acre/crypto"
)

const (
	EventTypeDepositAllocated  = "allocator.deposit_allocated"
	EventTypeDepositWithdrawn  = "allocator.deposit_withdrawn"
	EventTypeDepositReleased   = "allocator.deposit_released"
	EventTypeMaintainerAdded   = "allocator.maintainer_added"
	EventTypeMaintainerRemoved = "allocator.maintainer_removed"
	EventTypeWithdrawerUpdated = "allocator.withdrawer_updated"
)

// DepositAllocated is emitted when idle vault assets are swept into the venue.
type DepositAllocated struct {
	OldDepositBalance *uint256.Int
	Added             *uint256.Int
	DepositBalance    *uint256.Int
}

func (DepositAllocated) EventType() string { return EventTypeDepositAllocated }

func (e DepositAllocated) Event() *types.Event {
	return &types.Event{Type: EventTypeDepositAllocated, Attributes: map[string]string{
		"oldDepositBalance": events.FormatAmount(e.OldDepositBalance),
		"addedAmount":       events.FormatAmount(e.Added),
		"depositBalance":    events.FormatAmount(e.DepositBalance),
	}}
}

// DepositWithdrawn is emitted when the withdrawer draws principal back.
type DepositWithdrawn struct {
	Withdrawer     crypto.Address
	Requested      *uint256.Int
	Received       *uint256.Int
	DepositBalance *uint256.Int
}

func (DepositWithdrawn) EventType() string { return EventTypeDepositWithdrawn }

func (e DepositWithdrawn) Event() *types.Event {
	return &types.Event{Type: EventTypeDepositWithdrawn, Attributes: map[string]string{
		"withdrawer":     events.FormatAddress(e.Withdrawer),
		"requested":      events.FormatAmount(e.Requested),
		"received":       events.FormatAmount(e.Received),
		"depositBalance": events.FormatAmount(e.DepositBalance),
	}}
}

// DepositReleased is emitted when the owner recalls the whole venue position.
type DepositReleased struct {
	Amount *uint256.Int
}

func (DepositReleased) EventType() string { return EventTypeDepositReleased }

func (e DepositReleased) Event() *types.Event {
	return &types.Event{Type: EventTypeDepositReleased, Attributes: map[string]string{
		"amount": events.FormatAmount(e.Amount),
	}}
}

// MaintainerChanged is emitted when the maintainer set changes.
type MaintainerChanged struct {
	Maintainer crypto.Address
	Added      bool
}

func (e MaintainerChanged) EventType() string {
	if e.Added {
		return EventTypeMaintainerAdded
	}
	return EventTypeMaintainerRemoved
}

func (e MaintainerChanged) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"maintainer": events.FormatAddress(e.Maintainer),
	}}
}

// WithdrawerUpdated is emitted when the withdrawer identity changes.
type WithdrawerUpdated struct {
	Old crypto.Address
	New crypto.Address
}

func (WithdrawerUpdated) EventType() string { return EventTypeWithdrawerUpdated }

func (e WithdrawerUpdated) Event() *types.Event {
	return &types.Event{Type: EventTypeWithdrawerUpdated, Attributes: map[string]string{
		"oldWithdrawer": events.FormatAddress(e.Old),
		"newWithdrawer": events.FormatAddress(e.New),
	}}
}
