package vault

import (
	"github.com/holiman/uint256"

	"acre/core/events"
	"acre/core/types"
	"acre/crypto"
)

const (
	EventTypeDeposit  = "vault.deposit"
	EventTypeWithdraw = "vault.withdraw"
	EventTypePaused   = "vault.paused"
	EventTypeUnpaused = "vault.unpaused"

	ParameterMinimumDepositAmount = "minimum_deposit_amount"
	ParameterEntryFeeBasisPoints  = "entry_fee_basis_points"
	ParameterExitFeeBasisPoints   = "exit_fee_basis_points"
	ParameterDispatcher           = "dispatcher"
	ParameterTreasury             = "treasury"
	ParameterPauseAdmin           = "pause_admin"
)

// DepositEvent is emitted by Deposit and Mint. Assets is the gross amount
// pulled from the caller.
type DepositEvent struct {
	Caller crypto.Address
	Owner  crypto.Address
	Assets *uint256.Int
	Shares *uint256.Int
}

func (DepositEvent) EventType() string { return EventTypeDeposit }

func (e DepositEvent) Event() *types.Event {
	return &types.Event{Type: EventTypeDeposit, Attributes: map[string]string{
		"caller": events.FormatAddress(e.Caller),
		"owner":  events.FormatAddress(e.Owner),
		"assets": events.FormatAmount(e.Assets),
		"shares": events.FormatAmount(e.Shares),
	}}
}

// WithdrawEvent is emitted by Withdraw and Redeem. Assets is the net amount
// paid to the receiver; GrossAssets additionally includes the exit fee.
type WithdrawEvent struct {
	Caller      crypto.Address
	Receiver    crypto.Address
	Owner       crypto.Address
	Assets      *uint256.Int
	GrossAssets *uint256.Int
	Shares      *uint256.Int
}

func (WithdrawEvent) EventType() string { return EventTypeWithdraw }

func (e WithdrawEvent) Event() *types.Event {
	return &types.Event{Type: EventTypeWithdraw, Attributes: map[string]string{
		"caller":      events.FormatAddress(e.Caller),
		"receiver":    events.FormatAddress(e.Receiver),
		"owner":       events.FormatAddress(e.Owner),
		"assets":      events.FormatAmount(e.Assets),
		"grossAssets": events.FormatAmount(e.GrossAssets),
		"shares":      events.FormatAmount(e.Shares),
	}}
}

// ParameterUpdated is emitted by every governance setter with the old and
// new value rendered as strings.
type ParameterUpdated struct {
	Parameter string
	Old       string
	New       string
}

func (e ParameterUpdated) EventType() string { return "vault." + e.Parameter + "_updated" }

func (e ParameterUpdated) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"old": e.Old,
		"new": e.New,
	}}
}

// PauseChanged is emitted when the vault is paused or unpaused.
type PauseChanged struct {
	Account crypto.Address
	Paused  bool
}

func (e PauseChanged) EventType() string {
	if e.Paused {
		return EventTypePaused
	}
	return EventTypeUnpaused
}

func (e PauseChanged) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"account": events.FormatAddress(e.Account),
	}}
}
