package events

import (
	"github.com/holiman/uint256"

	"acre/core/types"
	"acre/crypto"
)

const (
	// TypeTransfer is emitted for every fungible balance movement.
	TypeTransfer = "token.transfer"
	// TypeApproval is emitted when an owner updates a spender allowance.
	TypeApproval = "token.approval"
)

// Transfer captures a balance movement on a fungible ledger. Mints use the
// zero address as sender and burns use it as recipient.
type Transfer struct {
	Asset  string
	From   crypto.Address
	To     crypto.Address
	Amount *uint256.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	attrs["from"] = FormatAddress(e.From)
	attrs["to"] = FormatAddress(e.To)
	attrs["amount"] = FormatAmount(e.Amount)
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

// Approval captures an allowance update.
type Approval struct {
	Asset   string
	Owner   crypto.Address
	Spender crypto.Address
	Amount  *uint256.Int
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	attrs := map[string]string{}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	attrs["owner"] = FormatAddress(e.Owner)
	attrs["spender"] = FormatAddress(e.Spender)
	attrs["amount"] = FormatAmount(e.Amount)
	return &types.Event{Type: TypeApproval, Attributes: attrs}
}
