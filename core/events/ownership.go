package events

import (
	"strings"

	"acre/core/types"
	"acre/crypto"
)

const (
	ownershipTransferStartedSuffix = ".ownership_transfer_started"
	ownershipTransferredSuffix     = ".ownership_transferred"
)

// OwnershipTransferStarted is emitted when an owner nominates a successor.
type OwnershipTransferStarted struct {
	Module        string
	PreviousOwner crypto.Address
	PendingOwner  crypto.Address
}

func (e OwnershipTransferStarted) EventType() string {
	return strings.TrimSpace(e.Module) + ownershipTransferStartedSuffix
}

func (e OwnershipTransferStarted) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"previousOwner": FormatAddress(e.PreviousOwner),
			"pendingOwner":  FormatAddress(e.PendingOwner),
		},
	}
}

// OwnershipTransferred is emitted when the nominated successor accepts.
type OwnershipTransferred struct {
	Module        string
	PreviousOwner crypto.Address
	NewOwner      crypto.Address
}

func (e OwnershipTransferred) EventType() string {
	return strings.TrimSpace(e.Module) + ownershipTransferredSuffix
}

func (e OwnershipTransferred) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"previousOwner": FormatAddress(e.PreviousOwner),
			"newOwner":      FormatAddress(e.NewOwner),
		},
	}
}
