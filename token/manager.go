// Package token implements the session token service: self-contained,
// HMAC-signed bearer tokens carrying identity and a role snapshot.
//
// Issuance and validation are pure computation over the configured
// symmetric secret. Nothing here touches storage, so there is no
// revocation before expiry; a leaked token is bounded by its TTL.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for every validation failure: bad signature,
// structural malformation, unexpected algorithm, wrong issuer, or
// expiry. Callers get one category on purpose.
var ErrInvalid = errors.New("invalid session token")

// Config is fixed at construction.
type Config struct {
	SigningSecret []byte
	Issuer        string
	TTL           time.Duration
	Leeway        time.Duration
	// MaxFutureIssuedAt rejects tokens whose iat lies further in the
	// future than this.
	MaxFutureIssuedAt time.Duration
}

// Claims is the decoded payload of a validated session token. Roles are
// a snapshot taken at issuance: later role changes on the account do not
// retroactively alter an outstanding token.
type Claims struct {
	Roles []string       `json:"roles"`
	Extra map[string]any `json:"ext,omitempty"`
	jwt.RegisteredClaims
}

// Subject returns the account's login identifier.
func (c *Claims) Subject() string {
	return c.RegisteredClaims.Subject
}

// HasRole reports whether the snapshot contains the named role.
func (c *Claims) HasRole(name string) bool {
	for _, r := range c.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Manager issues and validates session tokens. It is immutable and safe
// for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SigningSecret) < 32 {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIssuedAt == 0 {
		cfg.MaxFutureIssuedAt = 10 * time.Minute
	}
	if cfg.MaxFutureIssuedAt < 0 || cfg.MaxFutureIssuedAt > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIssuedAt configuration")
	}
	return &Manager{config: cfg}, nil
}

// Issue signs a token for subject with the given role snapshot and
// optional extra claims. The expiry horizon is Config.TTL from now.
func (m *Manager) Issue(subject string, roles []string, extra map[string]any, now time.Time) (string, error) {
	if m == nil {
		return "", errors.New("nil token manager")
	}
	if subject == "" {
		return "", errors.New("empty subject")
	}

	claims := Claims{
		Roles: append([]string(nil), roles...),
		Extra: extra,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.config.SigningSecret)
}

// Validate verifies the signature and registered claims and returns the
// decoded payload. The accepted algorithm is pinned to HS256: a token
// that names any other algorithm in its header is rejected regardless of
// its signature.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	if m == nil {
		return nil, ErrInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalid
		}
		return m.config.SigningSecret, nil
	})
	if err != nil {
		return nil, ErrInvalid
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.IssuedAt != nil && m.config.MaxFutureIssuedAt > 0 {
		if claims.IssuedAt.Time.After(time.Now().Add(m.config.MaxFutureIssuedAt)) {
			return nil, ErrInvalid
		}
	}

	return claims, nil
}
