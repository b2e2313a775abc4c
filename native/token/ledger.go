package token

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/holiman/uint256"

	"acre/core/events"
	"acre/core/state"
	"acre/crypto"
)

var (
	ErrInvalidSender       = errors.New("token: invalid sender")
	ErrInvalidReceiver     = errors.New("token: invalid receiver")
	ErrInvalidSpender      = errors.New("token: invalid spender")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrInsufficientAllow   = errors.New("token: insufficient allowance")
	ErrSupplyOverflow      = errors.New("token: supply overflow")
)

// InsufficientBalanceError reports a debit larger than the account balance.
type InsufficientBalanceError struct {
	Account crypto.Address
	Balance *uint256.Int
	Needed  *uint256.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("token: insufficient balance for %s: have %s, need %s",
		e.Account, e.Balance.Dec(), e.Needed.Dec())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InsufficientAllowanceError reports a delegated spend larger than the
// granted allowance.
type InsufficientAllowanceError struct {
	Owner     crypto.Address
	Spender   crypto.Address
	Allowance *uint256.Int
	Needed    *uint256.Int
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("token: insufficient allowance of %s for %s: have %s, need %s",
		e.Spender, e.Owner, e.Allowance.Dec(), e.Needed.Dec())
}

func (e *InsufficientAllowanceError) Unwrap() error { return ErrInsufficientAllow }

type allowanceKey struct {
	owner   crypto.Address
	spender crypto.Address
}

// Ledger is an in-memory fungible token with balances, allowances and a
// tracked total supply. Every mutation is journaled. An allowance equal to
// the maximum 256-bit value is treated as unlimited and never decremented.
type Ledger struct {
	mu          sync.RWMutex
	symbol      string
	journal     *state.Journal
	emitter     events.Emitter
	balances    map[crypto.Address]*uint256.Int
	allowances  map[allowanceKey]*uint256.Int
	totalSupply *uint256.Int
}

// NewLedger constructs an empty ledger for the supplied symbol.
func NewLedger(symbol string, journal *state.Journal) *Ledger {
	return &Ledger{
		symbol:      strings.ToUpper(strings.TrimSpace(symbol)),
		journal:     journal,
		emitter:     events.NoopEmitter{},
		balances:    make(map[crypto.Address]*uint256.Int),
		allowances:  make(map[allowanceKey]*uint256.Int),
		totalSupply: new(uint256.Int),
	}
}

// SetEmitter configures the event emitter used by the ledger. Passing nil
// resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// MaxAllowance returns the sentinel value for an unlimited allowance.
func MaxAllowance() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

func (l *Ledger) BalanceOf(addr crypto.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bal, ok := l.balances[addr]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

func (l *Ledger) Allowance(owner, spender crypto.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if amt, ok := l.allowances[allowanceKey{owner: owner, spender: spender}]; ok {
		return amt.Clone()
	}
	return new(uint256.Int)
}

func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply.Clone()
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	if from.IsZero() {
		return ErrInvalidSender
	}
	if to.IsZero() {
		return ErrInvalidReceiver
	}
	amount = normalize(amount)
	l.mu.Lock()
	err := l.move(from, to, amount)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{Asset: l.symbol, From: from, To: to, Amount: amount.Clone()})
	return nil
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming the spender's allowance.
func (l *Ledger) TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error {
	if err := l.SpendAllowance(from, spender, amount); err != nil {
		return err
	}
	return l.Transfer(from, to, amount)
}

// Approve sets the allowance granted by owner to spender.
func (l *Ledger) Approve(owner, spender crypto.Address, amount *uint256.Int) error {
	if owner.IsZero() {
		return ErrInvalidSender
	}
	if spender.IsZero() {
		return ErrInvalidSpender
	}
	amount = normalize(amount)
	l.mu.Lock()
	l.setAllowance(allowanceKey{owner: owner, spender: spender}, amount)
	l.mu.Unlock()
	l.emitter.Emit(events.Approval{Asset: l.symbol, Owner: owner, Spender: spender, Amount: amount.Clone()})
	return nil
}

// SpendAllowance decrements the allowance granted by owner to spender.
// Unlimited allowances are left untouched.
func (l *Ledger) SpendAllowance(owner, spender crypto.Address, amount *uint256.Int) error {
	amount = normalize(amount)
	key := allowanceKey{owner: owner, spender: spender}
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.allowances[key]
	if current == nil {
		current = new(uint256.Int)
	}
	if current.Eq(MaxAllowance()) {
		return nil
	}
	if current.Lt(amount) {
		return &InsufficientAllowanceError{Owner: owner, Spender: spender, Allowance: current.Clone(), Needed: amount.Clone()}
	}
	l.setAllowance(key, new(uint256.Int).Sub(current, amount))
	return nil
}

// Mint credits amount to the account and grows the total supply.
func (l *Ledger) Mint(to crypto.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return ErrInvalidReceiver
	}
	amount = normalize(amount)
	l.mu.Lock()
	supply, overflow := new(uint256.Int).AddOverflow(l.totalSupply, amount)
	if overflow {
		l.mu.Unlock()
		return ErrSupplyOverflow
	}
	l.setSupply(supply)
	l.setBalance(to, new(uint256.Int).Add(l.balanceLocked(to), amount))
	l.mu.Unlock()

	l.emitter.Emit(events.Transfer{Asset: l.symbol, To: to, Amount: amount.Clone()})
	l.emitter.Emit(events.TokenSupply{Token: l.symbol, Total: supply.Clone(), Delta: amount.Clone(), Reason: events.SupplyReasonMint})
	return nil
}

// Burn debits amount from the account and shrinks the total supply.
func (l *Ledger) Burn(from crypto.Address, amount *uint256.Int) error {
	if from.IsZero() {
		return ErrInvalidSender
	}
	amount = normalize(amount)
	l.mu.Lock()
	balance := l.balanceLocked(from)
	if balance.Lt(amount) {
		l.mu.Unlock()
		return &InsufficientBalanceError{Account: from, Balance: balance, Needed: amount.Clone()}
	}
	l.setBalance(from, new(uint256.Int).Sub(balance, amount))
	supply := new(uint256.Int).Sub(l.totalSupply, amount)
	l.setSupply(supply)
	l.mu.Unlock()

	l.emitter.Emit(events.Transfer{Asset: l.symbol, From: from, Amount: amount.Clone()})
	l.emitter.Emit(events.TokenSupply{Token: l.symbol, Total: supply.Clone(), Delta: amount.Clone(), Reason: events.SupplyReasonBurn})
	return nil
}

func (l *Ledger) move(from, to crypto.Address, amount *uint256.Int) error {
	balance := l.balanceLocked(from)
	if balance.Lt(amount) {
		return &InsufficientBalanceError{Account: from, Balance: balance, Needed: amount.Clone()}
	}
	if from == to {
		return nil
	}
	credited, overflow := new(uint256.Int).AddOverflow(l.balanceLocked(to), amount)
	if overflow {
		return ErrSupplyOverflow
	}
	l.setBalance(from, new(uint256.Int).Sub(balance, amount))
	l.setBalance(to, credited)
	return nil
}

func (l *Ledger) balanceLocked(addr crypto.Address) *uint256.Int {
	if bal, ok := l.balances[addr]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

func (l *Ledger) setBalance(addr crypto.Address, value *uint256.Int) {
	previous, existed := l.balances[addr]
	l.journal.Record(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if existed {
			l.balances[addr] = previous
		} else {
			delete(l.balances, addr)
		}
	})
	if value.IsZero() {
		delete(l.balances, addr)
		return
	}
	l.balances[addr] = value
}

func (l *Ledger) setAllowance(key allowanceKey, value *uint256.Int) {
	previous, existed := l.allowances[key]
	l.journal.Record(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if existed {
			l.allowances[key] = previous
		} else {
			delete(l.allowances, key)
		}
	})
	if value.IsZero() {
		delete(l.allowances, key)
		return
	}
	l.allowances[key] = value
}

func (l *Ledger) setSupply(value *uint256.Int) {
	previous := l.totalSupply
	l.journal.Record(func() {
		l.mu.Lock()
		l.totalSupply = previous
		l.mu.Unlock()
	})
	l.totalSupply = value
}

func normalize(amount *uint256.Int) *uint256.Int {
	if amount == nil {
		return new(uint256.Int)
	}
	return amount
}

// Balance is one entry of an exported ledger.
type Balance struct {
	Account crypto.Address
	Amount  *uint256.Int
}

// Allowance is one entry of an exported allowance table.
type Allowance struct {
	Owner   crypto.Address
	Spender crypto.Address
	Amount  *uint256.Int
}

// Export is a deterministic copy of the ledger contents.
type Export struct {
	Symbol      string
	TotalSupply *uint256.Int
	Balances    []Balance
	Allowances  []Allowance
}

// Export returns every balance and allowance in address order.
func (l *Ledger) Export() Export {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := Export{Symbol: l.symbol, TotalSupply: l.totalSupply.Clone()}
	for addr, bal := range l.balances {
		out.Balances = append(out.Balances, Balance{Account: addr, Amount: bal.Clone()})
	}
	sort.Slice(out.Balances, func(i, j int) bool {
		return out.Balances[i].Account.Compare(out.Balances[j].Account) < 0
	})
	for key, amt := range l.allowances {
		out.Allowances = append(out.Allowances, Allowance{Owner: key.owner, Spender: key.spender, Amount: amt.Clone()})
	}
	sort.Slice(out.Allowances, func(i, j int) bool {
		if c := out.Allowances[i].Owner.Compare(out.Allowances[j].Owner); c != 0 {
			return c < 0
		}
		return out.Allowances[i].Spender.Compare(out.Allowances[j].Spender) < 0
	})
	return out
}

// Validate checks that the exported balances sum to the recorded supply
// without touching any ledger.
func (data Export) Validate() error {
	sum := new(uint256.Int)
	seen := make(map[crypto.Address]struct{}, len(data.Balances))
	for _, entry := range data.Balances {
		if entry.Amount == nil || entry.Amount.IsZero() {
			continue
		}
		if _, dup := seen[entry.Account]; dup {
			return fmt.Errorf("token: duplicate balance for %s", entry.Account)
		}
		seen[entry.Account] = struct{}{}
		if _, overflow := sum.AddOverflow(sum, entry.Amount); overflow {
			return ErrSupplyOverflow
		}
	}
	if supply := normalize(data.TotalSupply); !sum.Eq(supply) {
		return fmt.Errorf("token: imported balances sum to %s but supply is %s", sum.Dec(), supply.Dec())
	}
	return nil
}

// Import replaces the ledger contents with a previously exported copy. It is
// not journaled.
func (l *Ledger) Import(data Export) error {
	if err := data.Validate(); err != nil {
		return err
	}
	balances := make(map[crypto.Address]*uint256.Int, len(data.Balances))
	for _, entry := range data.Balances {
		if entry.Amount == nil || entry.Amount.IsZero() {
			continue
		}
		balances[entry.Account] = entry.Amount.Clone()
	}
	supply := normalize(data.TotalSupply)
	allowances := make(map[allowanceKey]*uint256.Int, len(data.Allowances))
	for _, entry := range data.Allowances {
		if entry.Amount == nil || entry.Amount.IsZero() {
			continue
		}
		allowances[allowanceKey{owner: entry.Owner, spender: entry.Spender}] = entry.Amount.Clone()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if symbol := strings.TrimSpace(data.Symbol); symbol != "" {
		l.symbol = strings.ToUpper(symbol)
	}
	l.balances = balances
	l.allowances = allowances
	l.totalSupply = supply.Clone()
	return nil
}
