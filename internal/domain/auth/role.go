package auth

import (
	"crypto/subtle"
	"time"

	"github.com/go-faster/errors"
)

// SessionCookie is the name of the cookie that carries the session role.
const SessionCookie = "sc_session"

// SessionMaxAge is the lifetime of a session cookie.
const SessionMaxAge = 7 * 24 * time.Hour

// ErrUnknownRole is returned by ParseRole for unrecognized values.
var ErrUnknownRole = errors.New("unknown role")

// Role is the privilege level granted at login.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// legacyRole is what sessions issued before roles existed carry.
const legacyRole = "authenticated"

// ParseRole maps a stored session value to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case string(RoleAdmin):
		return RoleAdmin, nil
	case string(RoleUser), legacyRole:
		return RoleUser, nil
	default:
		return "", errors.Wrapf(ErrUnknownRole, "%q", s)
	}
}

// IsAdmin reports whether r carries admin privileges.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// Intent is a user action subject to role gating.
type Intent int

const (
	IntentChangeStatus Intent = iota
	IntentCreate
	IntentDelete
	IntentResetAll
)

// Can reports whether r may perform the intent. Status changes are open to
// every role; everything else is admin only.
func (r Role) Can(i Intent) bool {
	switch i {
	case IntentChangeStatus:
		return r == RoleAdmin || r == RoleUser
	case IntentCreate, IntentDelete, IntentResetAll:
		return r == RoleAdmin
	default:
		return false
	}
}

// Authenticator resolves a shared password into a Role.
type Authenticator struct {
	admin []byte
	login []byte
}

// NewAuthenticator returns an Authenticator for the given passwords. An empty
// password disables the corresponding role.
func NewAuthenticator(adminPassword, loginPassword string) *Authenticator {
	return &Authenticator{
		admin: []byte(adminPassword),
		login: []byte(loginPassword),
	}
}

// Authenticate checks the admin password first, then the login password.
func (a *Authenticator) Authenticate(password string) (Role, bool) {
	p := []byte(password)
	if len(a.admin) > 0 && subtle.ConstantTimeCompare(p, a.admin) == 1 {
		return RoleAdmin, true
	}
	if len(a.login) > 0 && subtle.ConstantTimeCompare(p, a.login) == 1 {
		return RoleUser, true
	}
	return "", false
}
