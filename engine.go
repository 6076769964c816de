package authcore

import (
	"context"
	"log/slog"
	"time"

	"github.com/dinely/authcore/internal/metrics"
	"github.com/dinely/authcore/internal/rate"
	"github.com/dinely/authcore/password"
	"github.com/dinely/authcore/token"
)

// Engine is the authentication core facade. Build one through [Builder];
// a zero Engine is not usable. All methods are safe for concurrent use.
type Engine struct {
	config    Config
	directory Directory
	tokens    ActionTokenStore
	sessions  *token.Manager
	passwords *password.Argon2
	totp      *totpManager
	limiter   *rate.Limiter
	audit     *auditDispatcher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       nowFunc
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// ready reports whether the engine was assembled through Build.
func (e *Engine) ready() bool {
	return e != nil &&
		e.directory != nil &&
		e.tokens != nil &&
		e.sessions != nil &&
		e.passwords != nil &&
		e.totp != nil
}

// ValidateSessionToken verifies a bearer token string and returns its
// claims. Every failure mode (malformed, tampered, expired, wrong
// algorithm) collapses into [ErrSessionTokenInvalid]. Validation is
// idempotent: a token valid now decodes to the same claims until it
// expires.
func (e *Engine) ValidateSessionToken(tokenString string) (*token.Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	claims, err := e.sessions.Validate(tokenString)
	if err != nil {
		return nil, ErrSessionTokenInvalid
	}
	return claims, nil
}

// AuthenticateToken is the request gate entry point: it validates a
// bearer token and records gate traffic. An empty or invalid token
// counts as anonymous and returns [ErrSessionTokenInvalid]; the caller
// decides whether anonymous proceeds (the gate lets it through) or is
// rejected (the Require guards).
func (e *Engine) AuthenticateToken(tokenString string) (*token.Claims, error) {
	claims, err := e.ValidateSessionToken(tokenString)
	if err != nil {
		e.metricInc(MetricGateAnonymous)
		return nil, err
	}
	e.metricInc(MetricGateAuthenticated)
	return claims, nil
}

// IssueSessionToken signs a token for the account's current identity and
// role snapshot. Extra claims (for example the restaurant ids a manager
// is scoped to) are embedded as-is; they are a snapshot too, refreshed
// only by reissuing. Pure computation: no storage write, no locks.
func (e *Engine) IssueSessionToken(account Account, extra map[string]any) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	signed, err := e.sessions.Issue(account.Identifier, account.Roles.Names(), extra, e.now())
	if err != nil {
		return "", err
	}
	e.metricInc(MetricSessionTokenIssued)
	return signed, nil
}

// HashPassword derives the stored form of a plaintext secret. Exposed
// for host-side account seeding; the hash is one-way by construction.
func (e *Engine) HashPassword(plaintext string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	return e.passwords.Hash(plaintext)
}

// stampLastAuthenticated records the login time on the account. A
// directory failure here downgrades to a warning: the login itself has
// already succeeded.
func (e *Engine) stampLastAuthenticated(ctx context.Context, account Account, at time.Time) {
	account.LastAuthenticatedAt = at
	if _, err := e.directory.Save(ctx, account); err != nil {
		e.logger.Warn("authcore: last-authenticated stamp failed",
			slog.Int64("account_id", account.ID))
	}
}
