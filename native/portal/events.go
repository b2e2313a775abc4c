package portal

import (
	"github.com/holiman/uint256"

	"acre/core/events"
	"acre/core/types"
	"acre/crypto"
)

const (
	EventTypeDeposited = "portal.deposited"
	EventTypeWithdrawn = "portal.withdrawn"
)

// NewDepositedEvent returns the payload emitted when principal is credited.
func NewDepositedEvent(caller, principal crypto.Address, amount, position *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDeposited,
		Attributes: map[string]string{
			"caller":    events.FormatAddress(caller),
			"principal": events.FormatAddress(principal),
			"amount":    events.FormatAmount(amount),
			"position":  events.FormatAmount(position),
		},
	}
}

// NewWithdrawnEvent returns the payload emitted when a position is drawn down.
func NewWithdrawnEvent(principal, receiver crypto.Address, requested, released, position *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"principal": events.FormatAddress(principal),
			"receiver":  events.FormatAddress(receiver),
			"requested": events.FormatAmount(requested),
			"released":  events.FormatAmount(released),
			"position":  events.FormatAmount(position),
		},
	}
}
