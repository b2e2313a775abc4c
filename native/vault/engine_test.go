package vault

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"acre/core/events"
	"acre/core/state"
	"acre/crypto"
	"acre/native/allocator"
	"acre/native/fees"
	"acre/native/portal"
	"acre/native/token"
)

var (
	owner      = crypto.BytesToAddress([]byte{0x01})
	pauseAdmin = crypto.BytesToAddress([]byte{0x02})
	treasury   = crypto.BytesToAddress([]byte{0x03})
	maintainer = crypto.BytesToAddress([]byte{0x04})
	alice      = crypto.BytesToAddress([]byte{0x0a})
	bob        = crypto.BytesToAddress([]byte{0x0b})
	carol      = crypto.BytesToAddress([]byte{0x0c})
	stranger   = crypto.BytesToAddress([]byte{0x0f})
)

type recorder struct {
	events []events.Event
}

func (r *recorder) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recorder) has(eventType string) bool {
	for _, evt := range r.events {
		if evt.EventType() == eventType {
			return true
		}
	}
	return false
}

type harness struct {
	journal   *state.Journal
	asset     *token.Ledger
	venue     *portal.Engine
	allocator *allocator.Engine
	vault     *Engine
	events    *recorder
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	journal := state.NewJournal()
	asset := token.NewLedger("tbtc", journal)
	if cfg.Owner.IsZero() {
		cfg.Owner = owner
	}
	if cfg.Treasury.IsZero() {
		cfg.Treasury = treasury
	}
	if cfg.PauseAdmin.IsZero() {
		cfg.PauseAdmin = pauseAdmin
	}
	cfg.AssetSymbol = "tbtc"
	v, err := NewEngine(cfg, asset, journal)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	venue := portal.NewEngine(asset, journal)
	alloc, err := allocator.NewEngine(allocator.Config{
		Owner:       owner,
		Vault:       v.Address(),
		Maintainers: []crypto.Address{maintainer},
	}, asset, venue, journal)
	if err != nil {
		t.Fatalf("new allocator: %v", err)
	}
	if err := v.UpdateDispatcher(owner, alloc); err != nil {
		t.Fatalf("update dispatcher: %v", err)
	}
	rec := &recorder{}
	v.SetEmitter(rec)
	journal.Reset()
	return &harness{journal: journal, asset: asset, venue: venue, allocator: alloc, vault: v, events: rec}
}

func (h *harness) fund(t *testing.T, account crypto.Address, amount *uint256.Int) {
	t.Helper()
	if err := h.asset.Mint(account, amount); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := h.asset.Approve(account, h.vault.Address(), token.MaxAllowance()); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func (h *harness) assertInvariant(t *testing.T) {
	t.Helper()
	want := new(uint256.Int).Add(h.asset.BalanceOf(h.vault.Address()), h.allocator.DepositBalance())
	if got := h.vault.TotalAssets(); !got.Eq(want) {
		t.Fatalf("total assets %s != idle + deposit balance %s", got.Dec(), want.Dec())
	}
}

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func dec(s string) *uint256.Int { return uint256.MustFromDecimal(s) }

func TestNewEngineValidatesTreasury(t *testing.T) {
	if _, err := NewEngine(Config{Owner: owner}, nil, nil); err != ErrZeroAddress {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	self := crypto.ModuleAddress(moduleName)
	if _, err := NewEngine(Config{Owner: owner, Treasury: self}, nil, nil); err != ErrDisallowedAddress {
		t.Fatalf("expected ErrDisallowedAddress, got %v", err)
	}
	v, err := NewEngine(Config{Owner: owner, Treasury: treasury}, nil, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if v.Config().ShareSymbol != "STBTC" {
		t.Fatalf("unexpected share symbol %q", v.Config().ShareSymbol)
	}
}

func TestFirstDepositorIsOneToOne(t *testing.T) {
	h := newHarness(t, Config{EntryFeeBps: 5})
	amount := u(100_000_000)
	shares, err := h.vault.PreviewDeposit(amount)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	fee, _ := fees.FeeOnTotal(amount, 5)
	want := new(uint256.Int).Sub(amount, fee)
	if !shares.Eq(want) {
		t.Fatalf("preview deposit %s, want %s", shares.Dec(), want.Dec())
	}
}

func TestEndToEndFeeScenario(t *testing.T) {
	h := newHarness(t, Config{EntryFeeBps: 5, ExitFeeBps: 10})
	oneToken := dec("1000000000000000000")
	h.fund(t, alice, oneToken)

	shares, err := h.vault.Deposit(alice, oneToken, alice)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if shares.Dec() != "999500249875062468" {
		t.Fatalf("unexpected shares %s", shares.Dec())
	}
	if got := h.asset.BalanceOf(treasury).Dec(); got != "499750124937532" {
		t.Fatalf("unexpected entry fee %s", got)
	}
	if got := h.vault.TotalAssets().Dec(); got != "999500249875062468" {
		t.Fatalf("unexpected total assets %s", got)
	}

	assets, err := h.vault.Redeem(alice, shares, alice, alice)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if assets.Dec() != "998501748126935532" {
		t.Fatalf("unexpected redeemed assets %s", assets.Dec())
	}
	if got := h.asset.BalanceOf(treasury).Dec(); got != "1498251873064468" {
		t.Fatalf("unexpected treasury balance %s", got)
	}
	if !h.vault.TotalShares().IsZero() || !h.vault.TotalAssets().IsZero() {
		t.Fatalf("vault should be empty after full redemption")
	}
	if !h.events.has(EventTypeDeposit) || !h.events.has(EventTypeWithdraw) || !h.events.has(events.TypeFeeApplied) {
		t.Fatalf("expected deposit, withdraw and fee events")
	}
}

func TestRedeemExitFeeOnWholeToken(t *testing.T) {
	h := newHarness(t, Config{ExitFeeBps: 10})
	oneToken := dec("1000000000000000000")
	h.fund(t, alice, oneToken)
	shares, err := h.vault.Deposit(alice, oneToken, alice)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	preview, err := h.vault.PreviewRedeem(shares)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	assets, err := h.vault.Redeem(alice, shares, alice, alice)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if assets.Dec() != "999000999000999000" || !assets.Eq(preview) {
		t.Fatalf("unexpected redeemed assets %s (preview %s)", assets.Dec(), preview.Dec())
	}
	if got := h.asset.BalanceOf(treasury).Dec(); got != "999000999001000" {
		t.Fatalf("unexpected exit fee %s", got)
	}
}

func TestMintChargesFeeOnTop(t *testing.T) {
	h := newHarness(t, Config{EntryFeeBps: 5})
	h.fund(t, alice, u(10_000))
	preview, err := h.vault.PreviewMint(u(2000))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	assets, err := h.vault.Mint(alice, u(2000), bob)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if assets.Uint64() != 2001 || !assets.Eq(preview) {
		t.Fatalf("expected 2001 assets pulled, got %d (preview %d)", assets.Uint64(), preview.Uint64())
	}
	if h.vault.SharesOf(bob).Uint64() != 2000 {
		t.Fatalf("receiver should hold exactly 2000 shares")
	}
	if h.asset.BalanceOf(treasury).Uint64() != 1 || h.vault.IdleAssets().Uint64() != 2000 {
		t.Fatalf("fee routing mismatch: treasury=%d idle=%d", h.asset.BalanceOf(treasury).Uint64(), h.vault.IdleAssets().Uint64())
	}
}

func TestWithdrawBurnsCeilingShares(t *testing.T) {
	h := newHarness(t, Config{ExitFeeBps: 10})
	h.fund(t, alice, u(10_000))
	if _, err := h.vault.Deposit(alice, u(10_000), alice); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	preview, err := h.vault.PreviewWithdraw(u(1000))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	shares, err := h.vault.Withdraw(alice, u(1000), bob, alice)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if shares.Uint64() != 1001 || !shares.Eq(preview) {
		t.Fatalf("expected 1001 shares burned, got %d (preview %d)", shares.Uint64(), preview.Uint64())
	}
	if h.asset.BalanceOf(bob).Uint64() != 1000 || h.asset.BalanceOf(treasury).Uint64() != 1 {
		t.Fatalf("unexpected payout: bob=%d treasury=%d", h.asset.BalanceOf(bob).Uint64(), h.asset.BalanceOf(treasury).Uint64())
	}
	h.assertInvariant(t)
}

func TestPreviewsAreMonotonic(t *testing.T) {
	h := newHarness(t, Config{EntryFeeBps: 7, ExitFeeBps: 13})
	h.fund(t, alice, u(1_000_000))
	if _, err := h.vault.Deposit(alice, u(1_000_000), alice); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// Donation skews the exchange rate away from 1:1.
	if err := h.asset.Mint(h.vault.Address(), u(333_333)); err != nil {
		t.Fatalf("donate: %v", err)
	}
	prevDeposit, prevRedeem := new(uint256.Int), new(uint256.Int)
	for amount := uint64(0); amount < 20_000; amount += 97 {
		dep, err := h.vault.PreviewDeposit(u(amount))
		if err != nil {
			t.Fatalf("preview deposit: %v", err)
		}
		red, err := h.vault.PreviewRedeem(u(amount))
		if err != nil {
			t.Fatalf("preview redeem: %v", err)
		}
		if dep.Lt(prevDeposit) || red.Lt(prevRedeem) {
			t.Fatalf("preview decreased at %d", amount)
		}
		prevDeposit, prevRedeem = dep, red
	}
}

func TestConservationAcrossDepositors(t *testing.T) {
	h := newHarness(t, Config{EntryFeeBps: 5, ExitFeeBps: 10})
	for i, account := range []crypto.Address{alice, bob, carol} {
		amount := u(uint64(1_000_003 * (i + 1)))
		h.fund(t, account, amount)
		if _, err := h.vault.Deposit(account, amount, account); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	if _, err := h.allocator.Allocate(maintainer); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := h.vault.Withdraw(bob, u(777_777), bob, bob); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := h.vault.Redeem(carol, u(1_234_567), carol, carol); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	sum := new(uint256.Int)
	for _, account := range []crypto.Address{alice, bob, carol} {
		assets, err := h.vault.AssetsBalanceOf(account)
		if err != nil {
			t.Fatalf("assets balance: %v", err)
		}
		sum.Add(sum, assets)
	}
	if sum.Gt(h.vault.TotalAssets()) {
		t.Fatalf("depositor claims %s exceed total assets %s", sum.Dec(), h.vault.TotalAssets().Dec())
	}
	h.assertInvariant(t)
}

func TestExportImportRoundTrip(t *testing.T) {
	h := newHarness(t, Config{EntryFeeBps: 5, MinimumDepositAmount: u(10)})
	h.fund(t, alice, u(5000))
	if _, err := h.vault.Deposit(alice, u(5000), alice); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := h.vault.Pause(owner); err != nil {
		t.Fatalf("pause: %v", err)
	}
	snapshot := h.vault.Export()

	restored, err := NewEngine(Config{Owner: stranger, Treasury: bob}, h.asset, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := restored.Import(snapshot, nil); err == nil {
		t.Fatalf("import must require the recorded dispatcher")
	}
	if err := restored.Import(snapshot, h.allocator); err != nil {
		t.Fatalf("import: %v", err)
	}
	if restored.Owner() != owner || restored.Treasury() != treasury || !restored.Paused() {
		t.Fatalf("restored vault lost configuration: %+v", restored.Config())
	}
	if !restored.SharesOf(alice).Eq(h.vault.SharesOf(alice)) || !restored.TotalAssets().Eq(h.vault.TotalAssets()) {
		t.Fatalf("restored vault lost balances")
	}
}

func TestEntryRejectedWhileSharesBackedByNothing(t *testing.T) {
	h := newHarness(t, Config{})
	h.fund(t, alice, u(1_000))
	if _, err := h.vault.Deposit(alice, u(1_000), alice); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := h.asset.Burn(h.vault.Address(), u(1_000)); err != nil {
		t.Fatalf("burn vault assets: %v", err)
	}
	h.fund(t, bob, u(1_000_000))

	if _, err := h.vault.Deposit(bob, u(10), bob); !errors.Is(err, ErrZeroTotalAssets) {
		t.Fatalf("expected ErrZeroTotalAssets from deposit, got %v", err)
	}
	if _, err := h.vault.PreviewMint(u(1_000_000)); !errors.Is(err, ErrZeroTotalAssets) {
		t.Fatalf("expected ErrZeroTotalAssets from preview mint, got %v", err)
	}
	if _, err := h.vault.Mint(bob, u(1_000_000), bob); !errors.Is(err, ErrZeroTotalAssets) {
		t.Fatalf("expected ErrZeroTotalAssets from mint, got %v", err)
	}
	if !h.vault.SharesOf(bob).IsZero() {
		t.Fatalf("no shares may be minted against zero assets, bob holds %s", h.vault.SharesOf(bob).Dec())
	}
	if h.asset.BalanceOf(bob).Uint64() != 1_000_000 {
		t.Fatalf("bob must keep the unspent assets")
	}
}
