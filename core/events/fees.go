package events

import (
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"acre/core/types"
	"acre/crypto"
)

const (
	// TypeFeeApplied marks a vault entry or exit where a fee was assessed and
	// routed to the treasury.
	TypeFeeApplied = "fees.applied"

	// FeeDirectionEntry tags fees charged on deposit and mint.
	FeeDirectionEntry = "entry"
	// FeeDirectionExit tags fees charged on withdraw and redeem.
	FeeDirectionExit = "exit"
)

// FeeApplied records the outcome of a fee evaluation.
type FeeApplied struct {
	Payer          crypto.Address
	Treasury       crypto.Address
	Asset          string
	Direction      string
	Gross          *uint256.Int
	Fee            *uint256.Int
	Net            *uint256.Int
	FeeBasisPoints uint64
}

// EventType satisfies the events.Event interface.
func (FeeApplied) EventType() string { return TypeFeeApplied }

// Event converts the structured payload into a broadcastable event.
func (e FeeApplied) Event() *types.Event {
	attrs := map[string]string{}
	if !e.Payer.IsZero() {
		attrs["payer"] = FormatAddress(e.Payer)
	}
	attrs["treasury"] = FormatAddress(e.Treasury)
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	if direction := strings.TrimSpace(e.Direction); direction != "" {
		attrs["direction"] = direction
	}
	attrs["gross"] = FormatAmount(e.Gross)
	attrs["fee"] = FormatAmount(e.Fee)
	attrs["net"] = FormatAmount(e.Net)
	attrs["feeBps"] = strconv.FormatUint(e.FeeBasisPoints, 10)
	return &types.Event{Type: TypeFeeApplied, Attributes: attrs}
}
