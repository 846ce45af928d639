package registry

import "sync"

// Principal identifies a calling actor. The calling layer is responsible for
// authenticating and mapping to this identity.
type Principal string

// Role names a capability gating a class of mutations.
type Role string

const (
	RoleReporter Role = "reporter"
	RoleVerifier Role = "verifier"
	RoleSender   Role = "sender"
)

// Valid reports whether the role is one of the grantable capabilities.
func (r Role) Valid() bool {
	switch r {
	case RoleReporter, RoleVerifier, RoleSender:
		return true
	}
	return false
}

// AccessList is the shared capability check for both registries: a single
// transferable owner plus per-role principal sets. The owner is implicitly a
// member of every role.
type AccessList struct {
	mu      sync.RWMutex
	owner   Principal
	members map[Role]map[Principal]struct{}
}

// NewAccessList constructs an access list owned by owner.
func NewAccessList(owner Principal) (*AccessList, error) {
	if owner == "" {
		return nil, ErrInvalidPrincipal
	}
	return &AccessList{
		owner:   owner,
		members: make(map[Role]map[Principal]struct{}),
	}, nil
}

// Owner returns the current owner.
func (a *AccessList) Owner() Principal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.owner
}

// Authorize returns nil when caller holds role or is the owner.
func (a *AccessList) Authorize(caller Principal, role Role) error {
	if caller == "" {
		return ErrUnauthorized
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if caller == a.owner {
		return nil
	}
	if _, ok := a.members[role][caller]; ok {
		return nil
	}
	return ErrUnauthorized
}

// AuthorizeOwner returns nil only for the current owner.
func (a *AccessList) AuthorizeOwner(caller Principal) error {
	if caller == "" {
		return ErrUnauthorized
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if caller != a.owner {
		return ErrUnauthorized
	}
	return nil
}

// Grant adds principal to role. Owner only.
func (a *AccessList) Grant(caller Principal, role Role, principal Principal) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if principal == "" {
		return ErrInvalidPrincipal
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if caller != a.owner {
		return ErrUnauthorized
	}
	if a.members[role] == nil {
		a.members[role] = make(map[Principal]struct{})
	}
	a.members[role][principal] = struct{}{}
	return nil
}

// Revoke removes principal from role. Owner only. The owner's own implicit
// membership cannot be revoked.
func (a *AccessList) Revoke(caller Principal, role Role, principal Principal) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if principal == "" {
		return ErrInvalidPrincipal
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if caller != a.owner {
		return ErrUnauthorized
	}
	if principal == a.owner {
		return ErrInvalidPrincipal
	}
	delete(a.members[role], principal)
	return nil
}

// TransferOwnership hands the registry to newOwner. Owner only. The new owner
// operates immediately through its implicit membership of every role.
func (a *AccessList) TransferOwnership(caller Principal, newOwner Principal) error {
	if newOwner == "" {
		return ErrInvalidPrincipal
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if caller != a.owner {
		return ErrUnauthorized
	}
	if newOwner == a.owner {
		return ErrInvalidPrincipal
	}
	a.owner = newOwner
	return nil
}
