package vault

import (
	"fmt"

	"github.com/holiman/uint256"

	"acre/core/events"
	"acre/crypto"
	nativecommon "acre/native/common"
	"acre/native/fees"
)

type depositQuote struct {
	fee    fees.Quote
	shares *uint256.Int
}

type withdrawQuote struct {
	fee    fees.Quote
	shares *uint256.Int
}

func (e *Engine) quoteDeposit(assets, totalShares, totalAssets *uint256.Int) (depositQuote, error) {
	q, err := fees.QuoteOnTotal(assets, e.entryFeeBps)
	if err != nil {
		return depositQuote{}, err
	}
	shares, err := convertToShares(q.Net, totalShares, totalAssets, fees.RoundDown)
	if err != nil {
		return depositQuote{}, err
	}
	return depositQuote{fee: q, shares: shares}, nil
}

// quoteMint returns a quote whose Net is the gross asset value of the shares
// and whose Gross is the amount pulled from the caller.
func (e *Engine) quoteMint(shares, totalShares, totalAssets *uint256.Int) (fees.Quote, error) {
	if !totalShares.IsZero() && totalAssets.IsZero() {
		return fees.Quote{}, ErrZeroTotalAssets
	}
	gross, err := convertToAssets(shares, totalShares, totalAssets, fees.RoundUp)
	if err != nil {
		return fees.Quote{}, err
	}
	return fees.QuoteOnRaw(gross, e.entryFeeBps)
}

func (e *Engine) quoteRedeem(shares, totalShares, totalAssets *uint256.Int) (fees.Quote, error) {
	gross, err := convertToAssets(shares, totalShares, totalAssets, fees.RoundDown)
	if err != nil {
		return fees.Quote{}, err
	}
	return fees.QuoteOnTotal(gross, e.exitFeeBps)
}

func (e *Engine) quoteWithdraw(assets, totalShares, totalAssets *uint256.Int) (withdrawQuote, error) {
	q, err := fees.QuoteOnRaw(assets, e.exitFeeBps)
	if err != nil {
		return withdrawQuote{}, err
	}
	shares, err := convertToShares(q.Gross, totalShares, totalAssets, fees.RoundUp)
	if err != nil {
		return withdrawQuote{}, err
	}
	return withdrawQuote{fee: q, shares: shares}, nil
}

// PreviewDeposit returns the shares minted for depositing assets.
func (e *Engine) PreviewDeposit(assets *uint256.Int) (*uint256.Int, error) {
	q, err := e.quoteDeposit(assets, e.TotalShares(), e.TotalAssets())
	if err != nil {
		return nil, err
	}
	return q.shares, nil
}

// PreviewMint returns the assets, fee included, needed to mint shares.
func (e *Engine) PreviewMint(shares *uint256.Int) (*uint256.Int, error) {
	q, err := e.quoteMint(shares, e.TotalShares(), e.TotalAssets())
	if err != nil {
		return nil, err
	}
	return q.Gross, nil
}

// PreviewRedeem returns the net assets paid for redeeming shares.
func (e *Engine) PreviewRedeem(shares *uint256.Int) (*uint256.Int, error) {
	q, err := e.quoteRedeem(shares, e.TotalShares(), e.TotalAssets())
	if err != nil {
		return nil, err
	}
	return q.Net, nil
}

// PreviewWithdraw returns the shares burned to pay out assets net of fees.
func (e *Engine) PreviewWithdraw(assets *uint256.Int) (*uint256.Int, error) {
	q, err := e.quoteWithdraw(assets, e.TotalShares(), e.TotalAssets())
	if err != nil {
		return nil, err
	}
	return q.shares, nil
}

// Deposit pulls assets from caller and mints shares to receiver. The entry
// fee is carved out of assets and sent to the treasury.
func (e *Engine) Deposit(caller crypto.Address, assets *uint256.Int, receiver crypto.Address) (*uint256.Int, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := e.checkEntry(assets, receiver); err != nil {
		return nil, err
	}
	if max := e.MaxDeposit(receiver); assets.Gt(max) {
		return nil, &ExceededMaxError{Op: "deposit", Account: receiver, Requested: assets.Clone(), Max: max}
	}
	q, err := e.quoteDeposit(assets, e.TotalShares(), e.TotalAssets())
	if err != nil {
		return nil, err
	}
	if q.fee.Net.Lt(e.minimumDeposit) {
		return nil, &InsufficientDepositError{Amount: q.fee.Net.Clone(), Minimum: e.minimumDeposit.Clone()}
	}
	if q.shares.IsZero() {
		return nil, ErrZeroShares
	}
	if err := e.enter(caller, receiver, q.fee, q.shares); err != nil {
		return nil, err
	}
	return q.shares.Clone(), nil
}

// Mint mints exactly shares to receiver and pulls their asset value plus the
// entry fee from caller. It returns the assets pulled.
func (e *Engine) Mint(caller crypto.Address, shares *uint256.Int, receiver crypto.Address) (*uint256.Int, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := e.checkEntry(shares, receiver); err != nil {
		return nil, err
	}
	if max := e.MaxMint(receiver); shares.Gt(max) {
		return nil, &ExceededMaxError{Op: "mint", Account: receiver, Requested: shares.Clone(), Max: max}
	}
	q, err := e.quoteMint(shares, e.TotalShares(), e.TotalAssets())
	if err != nil {
		return nil, err
	}
	if q.Net.Lt(e.minimumDeposit) {
		return nil, &InsufficientDepositError{Amount: q.Net.Clone(), Minimum: e.minimumDeposit.Clone()}
	}
	if err := e.enter(caller, receiver, q, shares); err != nil {
		return nil, err
	}
	return q.Gross.Clone(), nil
}

// Redeem burns shares from owner and pays the net asset value to receiver.
// The exit fee is carved out of the gross value and sent to the treasury.
func (e *Engine) Redeem(caller crypto.Address, shares *uint256.Int, receiver, owner crypto.Address) (*uint256.Int, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := e.checkExit(shares, receiver, owner); err != nil {
		return nil, err
	}
	if max := e.MaxRedeem(owner); shares.Gt(max) {
		return nil, &ExceededMaxError{Op: "redeem", Account: owner, Requested: shares.Clone(), Max: max}
	}
	q, err := e.quoteRedeem(shares, e.TotalShares(), e.TotalAssets())
	if err != nil {
		return nil, err
	}
	if err := e.exit(caller, receiver, owner, q, shares); err != nil {
		return nil, err
	}
	return q.Net.Clone(), nil
}

// Withdraw pays assets to receiver and burns the shares covering them plus
// the exit fee from owner. It returns the shares burned.
func (e *Engine) Withdraw(caller crypto.Address, assets *uint256.Int, receiver, owner crypto.Address) (*uint256.Int, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := e.checkExit(assets, receiver, owner); err != nil {
		return nil, err
	}
	max, err := e.MaxWithdraw(owner)
	if err != nil {
		return nil, err
	}
	if assets.Gt(max) {
		return nil, &ExceededMaxError{Op: "withdraw", Account: owner, Requested: assets.Clone(), Max: max}
	}
	q, err := e.quoteWithdraw(assets, e.TotalShares(), e.TotalAssets())
	if err != nil {
		return nil, err
	}
	if err := e.exit(caller, receiver, owner, q.fee, q.shares); err != nil {
		return nil, err
	}
	return q.shares.Clone(), nil
}

func (e *Engine) checkEntry(amount *uint256.Int, receiver crypto.Address) error {
	if e.asset == nil {
		return errNilAsset
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	if receiver.IsZero() {
		return ErrZeroAddress
	}
	return nil
}

func (e *Engine) checkExit(amount *uint256.Int, receiver, owner crypto.Address) error {
	if err := e.checkEntry(amount, receiver); err != nil {
		return err
	}
	if owner.IsZero() {
		return ErrZeroAddress
	}
	return nil
}

// enter pulls q.Gross from caller, mints shares to receiver and routes
// q.Fee to the treasury.
func (e *Engine) enter(caller, receiver crypto.Address, q fees.Quote, shares *uint256.Int) error {
	if err := e.asset.TransferFrom(e.address, caller, e.address, q.Gross); err != nil {
		return fmt.Errorf("vault engine: pull assets: %w", err)
	}
	if err := e.shares.Mint(receiver, shares); err != nil {
		return fmt.Errorf("vault engine: mint shares: %w", err)
	}
	if err := e.routeFee(caller, events.FeeDirectionEntry, e.entryFeeBps, q); err != nil {
		return err
	}
	e.emitter.Emit(DepositEvent{Caller: caller, Owner: receiver, Assets: q.Gross.Clone(), Shares: shares.Clone()})
	return nil
}

// exit burns shares from owner, makes sure q.Gross is held idle and pays
// q.Net to receiver and q.Fee to the treasury.
func (e *Engine) exit(caller, receiver, owner crypto.Address, q fees.Quote, shares *uint256.Int) error {
	if caller != owner {
		if err := e.shares.SpendAllowance(owner, caller, shares); err != nil {
			return err
		}
	}
	if err := e.shares.Burn(owner, shares); err != nil {
		return err
	}
	if err := e.ensureLiquidity(q.Gross); err != nil {
		return err
	}
	if !q.Net.IsZero() {
		if err := e.asset.Transfer(e.address, receiver, q.Net); err != nil {
			return fmt.Errorf("vault engine: pay receiver: %w", err)
		}
	}
	if err := e.routeFee(owner, events.FeeDirectionExit, e.exitFeeBps, q); err != nil {
		return err
	}
	e.emitter.Emit(WithdrawEvent{
		Caller:      caller,
		Receiver:    receiver,
		Owner:       owner,
		Assets:      q.Net.Clone(),
		GrossAssets: q.Gross.Clone(),
		Shares:      shares.Clone(),
	})
	return nil
}

func (e *Engine) routeFee(payer crypto.Address, direction string, bps uint64, q fees.Quote) error {
	if q.Fee.IsZero() {
		return nil
	}
	if err := e.asset.Transfer(e.address, e.treasury, q.Fee); err != nil {
		return fmt.Errorf("vault engine: route fee: %w", err)
	}
	e.emitter.Emit(events.FeeApplied{
		Payer:          payer,
		Treasury:       e.treasury,
		Asset:          e.assetSymbol,
		Direction:      direction,
		Gross:          q.Gross.Clone(),
		Fee:            q.Fee.Clone(),
		Net:            q.Net.Clone(),
		FeeBasisPoints: bps,
	})
	return nil
}

// ensureLiquidity makes sure at least needed assets are idle, pulling the
// difference back through the dispatcher when necessary.
func (e *Engine) ensureLiquidity(needed *uint256.Int) error {
	idle := e.IdleAssets()
	if !idle.Lt(needed) {
		return nil
	}
	if e.dispatcher == nil {
		return &LiquidityShortfallError{Needed: needed.Clone(), Available: idle}
	}
	missing := new(uint256.Int).Sub(needed, idle)
	if _, err := e.dispatcher.Withdraw(e.address, missing); err != nil {
		return &LiquidityShortfallError{Needed: needed.Clone(), Available: idle, Cause: err}
	}
	idle = e.IdleAssets()
	if idle.Lt(needed) {
		return &LiquidityShortfallError{Needed: needed.Clone(), Available: idle}
	}
	return nil
}

// Transfer moves shares from caller to recipient.
func (e *Engine) Transfer(caller, to crypto.Address, shares *uint256.Int) error {
	release, err := e.guard.Enter()
	if err != nil {
		return err
	}
	defer release()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return e.shares.Transfer(caller, to, shares)
}

// TransferFrom moves shares from owner to recipient using caller's
// allowance.
func (e *Engine) TransferFrom(caller, from, to crypto.Address, shares *uint256.Int) error {
	release, err := e.guard.Enter()
	if err != nil {
		return err
	}
	defer release()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return e.shares.TransferFrom(caller, from, to, shares)
}

// Approve sets the share allowance caller grants to spender.
func (e *Engine) Approve(caller, spender crypto.Address, shares *uint256.Int) error {
	release, err := e.guard.Enter()
	if err != nil {
		return err
	}
	defer release()
	return e.shares.Approve(caller, spender, shares)
}

// Allowance returns the share allowance owner granted to spender.
func (e *Engine) Allowance(owner, spender crypto.Address) *uint256.Int {
	return e.shares.Allowance(owner, spender)
}
