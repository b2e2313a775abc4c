package common

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"acre/core/state"
	"acre/crypto"
)

// Role names a capability granted to one or more identities.
type Role string

const (
	RoleOwner      Role = "owner"
	RolePauseAdmin Role = "pause_admin"
	RoleMaintainer Role = "maintainer"
	RoleWithdrawer Role = "withdrawer"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidMember     = errors.New("access: invalid member")
	ErrRoleAlreadyHeld   = errors.New("access: role already granted")
	ErrRoleNotHeld       = errors.New("access: role not granted")
	ErrOwnerRoleManaged  = errors.New("access: owner role is managed by ownership transfer")
	ErrNoPendingOwner    = errors.New("access: no pending owner")
	ErrSamePendingOwner  = errors.New("access: pending owner unchanged")
	ErrOwnershipSelfHand = errors.New("access: new owner is already the owner")
)

// UnauthorizedError reports a caller lacking every role accepted by an
// operation.
type UnauthorizedError struct {
	Caller crypto.Address
	Roles  []Role
}

func (e *UnauthorizedError) Error() string {
	names := make([]string, len(e.Roles))
	for i, role := range e.Roles {
		names[i] = string(role)
	}
	return fmt.Sprintf("unauthorized: %s lacks role %s", e.Caller, strings.Join(names, "|"))
}

func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }

// AccessControl holds role membership plus two-step ownership for a single
// engine. Every mutation is journaled.
type AccessControl struct {
	journal      *state.Journal
	owner        crypto.Address
	pendingOwner crypto.Address
	members      map[Role]map[crypto.Address]struct{}
}

// NewAccessControl constructs the registry with the supplied initial owner.
func NewAccessControl(owner crypto.Address, journal *state.Journal) *AccessControl {
	return &AccessControl{
		journal: journal,
		owner:   owner,
		members: make(map[Role]map[crypto.Address]struct{}),
	}
}

func (a *AccessControl) Owner() crypto.Address        { return a.owner }
func (a *AccessControl) PendingOwner() crypto.Address { return a.pendingOwner }

// HasRole reports whether addr holds role. The owner role is held only by
// the current owner.
func (a *AccessControl) HasRole(role Role, addr crypto.Address) bool {
	if addr.IsZero() {
		return false
	}
	if role == RoleOwner {
		return addr == a.owner
	}
	_, ok := a.members[role][addr]
	return ok
}

// Require succeeds when caller holds at least one of roles.
func (a *AccessControl) Require(caller crypto.Address, roles ...Role) error {
	for _, role := range roles {
		if a.HasRole(role, caller) {
			return nil
		}
	}
	return &UnauthorizedError{Caller: caller, Roles: append([]Role(nil), roles...)}
}

// Grant adds addr to role.
func (a *AccessControl) Grant(role Role, addr crypto.Address) error {
	if role == RoleOwner {
		return ErrOwnerRoleManaged
	}
	if addr.IsZero() {
		return ErrInvalidMember
	}
	if a.HasRole(role, addr) {
		return ErrRoleAlreadyHeld
	}
	set := a.members[role]
	if set == nil {
		set = make(map[crypto.Address]struct{})
		a.members[role] = set
	}
	set[addr] = struct{}{}
	a.journal.Record(func() { delete(set, addr) })
	return nil
}

// Revoke removes addr from role.
func (a *AccessControl) Revoke(role Role, addr crypto.Address) error {
	if role == RoleOwner {
		return ErrOwnerRoleManaged
	}
	if !a.HasRole(role, addr) {
		return ErrRoleNotHeld
	}
	set := a.members[role]
	delete(set, addr)
	a.journal.Record(func() { set[addr] = struct{}{} })
	return nil
}

// Replace makes addr the only member of role and returns the previous sole
// member, if any.
func (a *AccessControl) Replace(role Role, addr crypto.Address) (crypto.Address, error) {
	if role == RoleOwner {
		return crypto.Address{}, ErrOwnerRoleManaged
	}
	if addr.IsZero() {
		return crypto.Address{}, ErrInvalidMember
	}
	previous := a.Members(role)
	for _, member := range previous {
		if err := a.Revoke(role, member); err != nil {
			return crypto.Address{}, err
		}
	}
	if err := a.Grant(role, addr); err != nil {
		return crypto.Address{}, err
	}
	if len(previous) == 0 {
		return crypto.Address{}, nil
	}
	return previous[0], nil
}

// Members returns the holders of role in address order.
func (a *AccessControl) Members(role Role) []crypto.Address {
	if role == RoleOwner {
		if a.owner.IsZero() {
			return nil
		}
		return []crypto.Address{a.owner}
	}
	set := a.members[role]
	out := make([]crypto.Address, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// TransferOwnership records newOwner as pending. The zero address cancels a
// pending transfer.
func (a *AccessControl) TransferOwnership(caller, newOwner crypto.Address) error {
	if err := a.Require(caller, RoleOwner); err != nil {
		return err
	}
	if newOwner == a.owner && !newOwner.IsZero() {
		return ErrOwnershipSelfHand
	}
	if newOwner == a.pendingOwner {
		return ErrSamePendingOwner
	}
	previous := a.pendingOwner
	a.pendingOwner = newOwner
	a.journal.Record(func() { a.pendingOwner = previous })
	return nil
}

// AcceptOwnership completes a pending transfer. It returns the previous owner.
func (a *AccessControl) AcceptOwnership(caller crypto.Address) (crypto.Address, error) {
	if a.pendingOwner.IsZero() {
		return crypto.Address{}, ErrNoPendingOwner
	}
	if caller != a.pendingOwner {
		return crypto.Address{}, &UnauthorizedError{Caller: caller, Roles: []Role{"pending_owner"}}
	}
	previousOwner, previousPending := a.owner, a.pendingOwner
	a.owner = caller
	a.pendingOwner = crypto.Address{}
	a.journal.Record(func() {
		a.owner = previousOwner
		a.pendingOwner = previousPending
	})
	return previousOwner, nil
}

// Restore overwrites ownership and membership wholesale. It is used when
// rebuilding an engine from a persisted snapshot and is not journaled.
func (a *AccessControl) Restore(owner, pendingOwner crypto.Address, members map[Role][]crypto.Address) {
	a.owner = owner
	a.pendingOwner = pendingOwner
	a.members = make(map[Role]map[crypto.Address]struct{}, len(members))
	for role, addrs := range members {
		set := make(map[crypto.Address]struct{}, len(addrs))
		for _, addr := range addrs {
			set[addr] = struct{}{}
		}
		a.members[role] = set
	}
}
