package authcore

import (
	"context"
	"time"
)

// Role is one authorization role on an account. Roles form a small closed
// enumeration with a defined ordering; they are carried in session claims
// as a snapshot taken at issuance.
type Role uint8

const (
	// RoleUnverified marks an account that has registered but not yet
	// confirmed its email address. It is a sentinel, not a grant: login
	// refuses accounts that still carry it.
	RoleUnverified Role = iota
	// RoleDiner is the baseline role every verified account holds.
	RoleDiner
	// RoleManager is granted to accounts managing one or more restaurants.
	RoleManager
	// RoleAdmin is the platform operator role.
	RoleAdmin

	roleCount
)

var roleNames = [roleCount]string{
	RoleUnverified: "UNVERIFIED",
	RoleDiner:      "DINER",
	RoleManager:    "MANAGER",
	RoleAdmin:      "ADMIN",
}

func (r Role) String() string {
	if r >= roleCount {
		return "UNKNOWN"
	}
	return roleNames[r]
}

// ParseRole maps a role name back to its enum value. Unknown names return
// false rather than an error so claim decoding can skip them silently.
func ParseRole(name string) (Role, bool) {
	for r, n := range roleNames {
		if n == name {
			return Role(r), true
		}
	}
	return 0, false
}

// RoleSet is a bitset over [Role]. The zero value is empty. Iteration
// order is the enum order, so serialized role lists are deterministic and
// free of the whitespace/ordering bugs of delimited strings.
type RoleSet uint8

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s = s.Add(r)
	}
	return s
}

// Add returns the set with r included.
func (s RoleSet) Add(r Role) RoleSet {
	if r >= roleCount {
		return s
	}
	return s | 1<<r
}

// Remove returns the set with r excluded.
func (s RoleSet) Remove(r Role) RoleSet {
	if r >= roleCount {
		return s
	}
	return s &^ (1 << r)
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	return r < roleCount && s&(1<<r) != 0
}

// IsEmpty reports whether no role is set.
func (s RoleSet) IsEmpty() bool { return s == 0 }

// Roles returns the members in enum order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, roleCount)
	for r := Role(0); r < roleCount; r++ {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Names returns the member names in enum order.
func (s RoleSet) Names() []string {
	roles := s.Roles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.String()
	}
	return out
}

// Account is the directory record the core reads and writes. The secret
// hash is always the PHC-encoded argon2id form, never a plaintext; the
// TOTP secret, when present, is base32 and must never be logged.
type Account struct {
	ID         int64
	Identifier string
	SecretHash string
	FirstName  string
	LastName   string
	Roles      RoleSet

	// TOTPSecret is set when the second factor has been provisioned;
	// TwoFactorEnabled flips only after the owner confirms a live code.
	TOTPSecret       string
	TwoFactorEnabled bool

	LastAuthenticatedAt time.Time
}

// Unverified reports whether the account still carries the registration
// sentinel role.
func (a Account) Unverified() bool {
	return a.Roles.Has(RoleUnverified)
}

// ActionKind tags an action token with the single out-of-band flow it can
// redeem.
type ActionKind uint8

const (
	// ActionEmailConfirmation tokens flip the unverified role on redeem.
	ActionEmailConfirmation ActionKind = iota + 1
	// ActionPasswordReset tokens authorize setting a new secret hash.
	ActionPasswordReset
)

func (k ActionKind) String() string {
	switch k {
	case ActionEmailConfirmation:
		return "EMAIL_CONFIRMATION"
	case ActionPasswordReset:
		return "PASSWORD_RESET"
	default:
		return "UNKNOWN"
	}
}

// ActionToken is a single-use, time-limited credential for an out-of-band
// account action. The opaque Value doubles as lookup key and bearer
// secret, so it must carry full random-UUID entropy. Tokens are bound to
// one kind and one account for their entire lifetime and are consumed by
// flipping Used, never by deletion.
type ActionToken struct {
	Value     string
	Kind      ActionKind
	AccountID int64
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// IsValid reports whether the token can still be redeemed at now.
// Validity is computed on read; nothing sweeps expired tokens.
func (t ActionToken) IsValid(now time.Time) bool {
	return !t.Used && !now.Before(t.CreatedAt) && now.Before(t.ExpiresAt)
}

// Directory is the host-supplied account store. Absent lookups return
// [ErrAccountNotFound]. Save is an idempotent upsert returning the stored
// record.
type Directory interface {
	FindByIdentifier(ctx context.Context, identifier string) (Account, error)
	FindByID(ctx context.Context, id int64) (Account, error)
	Save(ctx context.Context, account Account) (Account, error)
}

// ActionTokenStore persists action tokens. AtomicMarkUsed must be a
// single conditional update ("set used where value=X and not used") so
// that concurrent redemptions of one value cannot both succeed, even
// across engine instances; it reports false when the token was absent or
// already used. FindByValue returns [ErrTokenNotFound] for absent values.
type ActionTokenStore interface {
	Save(ctx context.Context, token ActionToken) error
	FindByValue(ctx context.Context, value string) (ActionToken, error)
	AtomicMarkUsed(ctx context.Context, value string) (bool, error)
}
