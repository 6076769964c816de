package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dinely/authcore/internal/rate"
)

// Login runs the full authentication sequence for one attempt and, on
// success, returns a signed session token.
//
// The sequence is fixed: throttle check, directory lookup, verified
// gate, password verification, then the one-time code when the account
// has the second factor enabled. Note the verified gate runs before the
// password check, so an unverified account reports ErrAccountUnverified
// whether or not the supplied password is right. An unknown identifier
// reports ErrInvalidCredentials, the same category as a wrong password.
//
// otpCode is ignored for accounts without the second factor enabled.
func (e *Engine) Login(ctx context.Context, identifier, secret, otpCode string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)

	if err := e.throttleCheck(ctx, identifier, ip); err != nil {
		return "", err
	}

	account, err := e.directory.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.recordLoginFailure(ctx, identifier, ip, 0, ErrInvalidCredentials)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	if account.Unverified() {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, ErrAccountUnverified, nil)
		return "", ErrAccountUnverified
	}

	ok, err := e.passwords.Verify(secret, account.SecretHash)
	if err != nil {
		// A hash that fails to decode is stored-data corruption, not a
		// caller mistake. Log it, but answer the caller the same way as
		// a mismatch.
		e.logger.Warn("authcore: stored password hash unreadable",
			slog.Int64("account_id", account.ID))
		ok = false
	}
	if !ok {
		e.recordLoginFailure(ctx, identifier, ip, account.ID, ErrInvalidCredentials)
		return "", ErrInvalidCredentials
	}

	if account.TwoFactorEnabled {
		if !e.totp.verify(account.TOTPSecret, otpCode, e.now()) {
			e.metricInc(MetricSecondFactorFailure)
			e.recordLoginFailure(ctx, identifier, ip, account.ID, ErrInvalidSecondFactor)
			return "", ErrInvalidSecondFactor
		}
	}

	now := e.now()
	signed, err := e.sessions.Issue(account.Identifier, account.Roles.Names(), nil, now)
	if err != nil {
		return "", err
	}

	e.stampLastAuthenticated(ctx, account, now)
	e.throttleReset(ctx, identifier, ip)

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionTokenIssued)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, nil, nil)

	return signed, nil
}

func (e *Engine) throttleCheck(ctx context.Context, identifier, ip string) error {
	if e.limiter == nil {
		return nil
	}
	err := e.limiter.Check(ctx, identifier, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, 0, ErrLoginRateLimited, nil)
		return ErrLoginRateLimited
	default:
		// The throttle fails closed. Letting attempts through while the
		// counter backend is down would make an outage an attack window.
		return fmt.Errorf("login throttle: %w", err)
	}
}

func (e *Engine) recordLoginFailure(ctx context.Context, identifier, ip string, accountID int64, cause error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, accountID, cause, nil)

	if e.limiter == nil {
		return
	}
	if err := e.limiter.RecordFailure(ctx, identifier, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		e.logger.Warn("authcore: login throttle record failed", slog.String("identifier", identifier))
	}
}

func (e *Engine) throttleReset(ctx context.Context, identifier, ip string) {
	if e.limiter == nil {
		return
	}
	if err := e.limiter.Reset(ctx, identifier, ip); err != nil {
		e.logger.Warn("authcore: login throttle reset failed", slog.String("identifier", identifier))
	}
}
