package vault

import (
	"github.com/holiman/uint256"

	"acre/core/events"
	"acre/core/state"
	"acre/crypto"
	nativecommon "acre/native/common"
	"acre/native/fees"
	"acre/native/token"
)

const moduleName = "vault"

// AssetLedger is the fungible ledger of the underlying asset the vault
// custodies.
type AssetLedger interface {
	BalanceOf(addr crypto.Address) *uint256.Int
	Allowance(owner, spender crypto.Address) *uint256.Int
	Transfer(from, to crypto.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error
	Approve(owner, spender crypto.Address, amount *uint256.Int) error
}

// Dispatcher holds idle principal delegated by the vault and returns it on
// demand. Withdraw returns the amount actually forwarded to the vault.
type Dispatcher interface {
	Address() crypto.Address
	Withdraw(caller crypto.Address, amount *uint256.Int) (*uint256.Int, error)
	TotalAssets() *uint256.Int
}

// Engine is a tokenized vault: depositors exchange the underlying asset for
// shares whose value tracks the vault's total assets, minus entry and exit
// fees routed to the treasury.
type Engine struct {
	address    crypto.Address
	asset      AssetLedger
	shares     *token.Ledger
	dispatcher Dispatcher
	journal    *state.Journal
	access     *nativecommon.AccessControl
	pauses     *nativecommon.Pauses
	emitter    events.Emitter
	guard      nativecommon.ReentrancyGuard

	treasury       crypto.Address
	minimumDeposit *uint256.Int
	entryFeeBps    uint64
	exitFeeBps     uint64
	assetSymbol    string
}

// NewEngine constructs a vault over the supplied asset ledger. All state,
// including the share ledger, is journaled in journal.
func NewEngine(cfg Config, asset AssetLedger, journal *state.Journal) (*Engine, error) {
	address := crypto.ModuleAddress(moduleName)
	cfg = cfg.normalize()
	if err := cfg.validate(address); err != nil {
		return nil, err
	}
	e := &Engine{
		address:        address,
		asset:          asset,
		shares:         token.NewLedger(cfg.ShareSymbol, journal),
		journal:        journal,
		access:         nativecommon.NewAccessControl(cfg.Owner, journal),
		pauses:         nativecommon.NewPauses(journal),
		emitter:        events.NoopEmitter{},
		treasury:       cfg.Treasury,
		minimumDeposit: cfg.MinimumDepositAmount.Clone(),
		entryFeeBps:    cfg.EntryFeeBps,
		exitFeeBps:     cfg.ExitFeeBps,
		assetSymbol:    cfg.AssetSymbol,
	}
	if !cfg.PauseAdmin.IsZero() {
		if err := e.access.Grant(nativecommon.RolePauseAdmin, cfg.PauseAdmin); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// SetEmitter configures the event emitter used by the engine and its share
// ledger. Passing nil resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.shares.SetEmitter(emitter)
}

// SetPauses shares a pause registry with other modules.
func (e *Engine) SetPauses(p *nativecommon.Pauses) {
	if e == nil || p == nil {
		return
	}
	e.pauses = p
}

// Address returns the account custodying the vault's idle assets.
func (e *Engine) Address() crypto.Address { return e.address }

// ModuleName returns the name the vault is registered under in the pause
// registry.
func (e *Engine) ModuleName() string { return moduleName }

// Config returns the current configuration.
func (e *Engine) Config() Config {
	return Config{
		Owner:                e.access.Owner(),
		PauseAdmin:           e.PauseAdmin(),
		Treasury:             e.treasury,
		MinimumDepositAmount: e.minimumDeposit.Clone(),
		EntryFeeBps:          e.entryFeeBps,
		ExitFeeBps:           e.exitFeeBps,
		AssetSymbol:          e.assetSymbol,
		ShareSymbol:          e.shares.Symbol(),
	}
}

func (e *Engine) Owner() crypto.Address        { return e.access.Owner() }
func (e *Engine) PendingOwner() crypto.Address { return e.access.PendingOwner() }
func (e *Engine) Treasury() crypto.Address     { return e.treasury }

// PauseAdmin returns the identity allowed to pause besides the owner.
func (e *Engine) PauseAdmin() crypto.Address {
	members := e.access.Members(nativecommon.RolePauseAdmin)
	if len(members) == 0 {
		return crypto.Address{}
	}
	return members[0]
}

// Dispatcher returns the address of the current dispatcher, if any.
func (e *Engine) Dispatcher() crypto.Address {
	if e.dispatcher == nil {
		return crypto.Address{}
	}
	return e.dispatcher.Address()
}

// Paused reports whether the vault is paused.
func (e *Engine) Paused() bool { return e.pauses.IsPaused(moduleName) }

// Shares exposes the read side of the share ledger.
func (e *Engine) Shares() *token.Ledger { return e.shares }

// IdleAssets returns the assets held directly by the vault.
func (e *Engine) IdleAssets() *uint256.Int {
	if e.asset == nil {
		return new(uint256.Int)
	}
	return e.asset.BalanceOf(e.address)
}

// TotalAssets returns idle assets plus the principal delegated through the
// dispatcher.
func (e *Engine) TotalAssets() *uint256.Int {
	total := e.IdleAssets()
	if e.dispatcher != nil {
		if delegated := e.dispatcher.TotalAssets(); delegated != nil {
			total.Add(total, delegated)
		}
	}
	return total
}

// TotalShares returns the outstanding share supply.
func (e *Engine) TotalShares() *uint256.Int { return e.shares.TotalSupply() }

// SharesOf returns the shares held by account.
func (e *Engine) SharesOf(account crypto.Address) *uint256.Int { return e.shares.BalanceOf(account) }

// AssetsBalanceOf values the shares held by account in assets, rounding down.
func (e *Engine) AssetsBalanceOf(account crypto.Address) (*uint256.Int, error) {
	return e.ConvertToAssets(e.SharesOf(account), fees.RoundDown)
}

// ConvertToShares values assets in shares at the current exchange rate.
func (e *Engine) ConvertToShares(assets *uint256.Int, rounding fees.Rounding) (*uint256.Int, error) {
	return convertToShares(assets, e.TotalShares(), e.TotalAssets(), rounding)
}

// ConvertToAssets values shares in assets at the current exchange rate.
func (e *Engine) ConvertToAssets(shares *uint256.Int, rounding fees.Rounding) (*uint256.Int, error) {
	return convertToAssets(shares, e.TotalShares(), e.TotalAssets(), rounding)
}

// convertToShares is identity while no shares exist.
func convertToShares(assets, totalShares, totalAssets *uint256.Int, rounding fees.Rounding) (*uint256.Int, error) {
	if assets == nil {
		assets = new(uint256.Int)
	}
	if totalShares.IsZero() {
		return assets.Clone(), nil
	}
	if totalAssets.IsZero() {
		return nil, ErrZeroTotalAssets
	}
	return fees.MulDiv(assets, totalShares, totalAssets, rounding)
}

// convertToAssets is identity while no shares exist.
func convertToAssets(shares, totalShares, totalAssets *uint256.Int, rounding fees.Rounding) (*uint256.Int, error) {
	if shares == nil {
		shares = new(uint256.Int)
	}
	if totalShares.IsZero() {
		return shares.Clone(), nil
	}
	return fees.MulDiv(shares, totalAssets, totalShares, rounding)
}

// MaxDeposit is unlimited unless the vault is paused.
func (e *Engine) MaxDeposit(crypto.Address) *uint256.Int {
	if e.Paused() {
		return new(uint256.Int)
	}
	return token.MaxAllowance()
}

// MaxMint is unlimited unless the vault is paused.
func (e *Engine) MaxMint(crypto.Address) *uint256.Int {
	return e.MaxDeposit(crypto.Address{})
}

// MaxWithdraw is the net amount owner could receive by redeeming every share.
func (e *Engine) MaxWithdraw(owner crypto.Address) (*uint256.Int, error) {
	if e.Paused() {
		return new(uint256.Int), nil
	}
	return e.PreviewRedeem(e.SharesOf(owner))
}

// MaxRedeem is the share balance of owner.
func (e *Engine) MaxRedeem(owner crypto.Address) *uint256.Int {
	if e.Paused() {
		return new(uint256.Int)
	}
	return e.SharesOf(owner)
}
