package core

import (
	"fmt"

	"github.com/holiman/uint256"

	"acre/native/token"
)

// Check is the outcome of one accounting invariant.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// AuditReport summarises the balances and invariants of a node.
type AuditReport struct {
	TotalAssets    string  `json:"totalAssets"`
	TotalShares    string  `json:"totalShares"`
	IdleAssets     string  `json:"idleAssets"`
	DepositBalance string  `json:"depositBalance"`
	VenuePosition  string  `json:"venuePosition"`
	Paused         bool    `json:"paused"`
	Checks         []Check `json:"checks"`
}

// Healthy reports whether every check passed.
func (r *AuditReport) Healthy() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Audit evaluates the accounting invariants against the committed state.
func (n *Node) Audit() (*AuditReport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	totalAssets := n.vault.TotalAssets()
	idle := n.vault.IdleAssets()
	deposit := n.allocator.DepositBalance()
	position := n.venue.DepositOf(n.allocator.Address())

	report := &AuditReport{
		TotalAssets:    totalAssets.Dec(),
		TotalShares:    n.vault.TotalShares().Dec(),
		IdleAssets:     idle.Dec(),
		DepositBalance: deposit.Dec(),
		VenuePosition:  position.Dec(),
		Paused:         n.vault.Paused(),
	}

	expected, overflow := new(uint256.Int).AddOverflow(idle, deposit)
	report.add("total_assets_reconciled", !overflow && expected.Eq(totalAssets),
		fmt.Sprintf("idle %s + deposit %s vs total %s", idle.Dec(), deposit.Dec(), totalAssets.Dec()))

	report.add("deposit_backed_by_venue", !deposit.Gt(position),
		fmt.Sprintf("deposit %s vs venue position %s", deposit.Dec(), position.Dec()))

	shares := n.vault.Shares().Export()
	claims := new(uint256.Int)
	for _, holder := range shares.Balances {
		assets, err := n.vault.AssetsBalanceOf(holder.Account)
		if err != nil {
			return nil, fmt.Errorf("core: audit %s: %w", holder.Account, err)
		}
		claims.Add(claims, assets)
	}
	report.add("claims_within_assets", !claims.Gt(totalAssets),
		fmt.Sprintf("holder claims %s vs total %s", claims.Dec(), totalAssets.Dec()))

	report.addLedger("share_supply_consistent", shares)
	report.addLedger("asset_supply_consistent", n.asset.Export())
	return report, nil
}

func (r *AuditReport) add(name string, ok bool, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: detail})
}

func (r *AuditReport) addLedger(name string, export token.Export) {
	sum := new(uint256.Int)
	overflow := false
	for _, bal := range export.Balances {
		if _, o := sum.AddOverflow(sum, bal.Amount); o {
			overflow = true
		}
	}
	r.add(name, !overflow && sum.Eq(export.TotalSupply),
		fmt.Sprintf("%s balances %s vs supply %s", export.Symbol, sum.Dec(), export.TotalSupply.Dec()))
}
