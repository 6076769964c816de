package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// IssueActionToken mints a single-use token authorizing one out-of-band
// action for the account. The opaque value is a random UUID; delivery
// (the confirmation or reset email) is the host's job. Issuing does not
// invalidate earlier tokens for the same account and kind; each stands
// or falls on its own expiry and used flag.
func (e *Engine) IssueActionToken(ctx context.Context, accountID int64, kind ActionKind) (ActionToken, error) {
	if !e.ready() {
		return ActionToken{}, ErrEngineNotReady
	}
	if kind != ActionEmailConfirmation && kind != ActionPasswordReset {
		return ActionToken{}, fmt.Errorf("unknown action kind %d", kind)
	}

	account, err := e.findByID(ctx, accountID)
	if err != nil {
		return ActionToken{}, err
	}

	now := e.now()
	token := ActionToken{
		Value:     uuid.NewString(),
		Kind:      kind,
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.ActionToken.TTL),
	}

	if err := e.tokens.Save(ctx, token); err != nil {
		return ActionToken{}, fmt.Errorf("%w: %v", ErrTokenStoreUnavailable, err)
	}

	e.metricInc(MetricActionTokenIssued)
	e.emitAudit(ctx, auditEventActionTokenIssued, true, account.ID, nil, func() map[string]string {
		return map[string]string{"kind": kind.String()}
	})

	return token, nil
}

// RedeemActionToken consumes a token of the expected kind and returns
// the account it belongs to. Redemption is strictly single-use: the
// used flag is flipped with a conditional store update, so when several
// callers race on the same value at most one of them gets the account
// and the rest see ErrTokenExpiredOrUsed.
//
// Failures are reported in a fixed precedence: an unknown value is
// ErrTokenNotFound, a kind mismatch is ErrTokenTypeMismatch, and only
// then are expiry and the used flag consulted. A mismatched request
// therefore never consumes the token.
func (e *Engine) RedeemActionToken(ctx context.Context, value string, kind ActionKind) (Account, error) {
	if !e.ready() {
		return Account{}, ErrEngineNotReady
	}

	token, err := e.tokens.FindByValue(ctx, value)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return Account{}, e.rejectRedemption(ctx, 0, kind, ErrTokenNotFound)
		}
		return Account{}, fmt.Errorf("%w: %v", ErrTokenStoreUnavailable, err)
	}

	if token.Kind != kind {
		return Account{}, e.rejectRedemption(ctx, token.AccountID, kind, ErrTokenTypeMismatch)
	}
	if !token.IsValid(e.now()) {
		return Account{}, e.rejectRedemption(ctx, token.AccountID, kind, ErrTokenExpiredOrUsed)
	}

	won, err := e.tokens.AtomicMarkUsed(ctx, value)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrTokenStoreUnavailable, err)
	}
	if !won {
		// Another redemption got there between our read and the update.
		return Account{}, e.rejectRedemption(ctx, token.AccountID, kind, ErrTokenExpiredOrUsed)
	}

	account, err := e.findByID(ctx, token.AccountID)
	if err != nil {
		return Account{}, err
	}

	e.metricInc(MetricActionTokenRedeemed)
	e.emitAudit(ctx, auditEventActionTokenRedeemed, true, account.ID, nil, func() map[string]string {
		return map[string]string{"kind": kind.String()}
	})

	return account, nil
}

func (e *Engine) rejectRedemption(ctx context.Context, accountID int64, kind ActionKind, cause error) error {
	e.metricInc(MetricActionTokenRedeemFailure)
	e.emitAudit(ctx, auditEventActionTokenRejected, false, accountID, cause, func() map[string]string {
		return map[string]string{"kind": kind.String()}
	})
	return cause
}

// ConfirmEmail redeems an email confirmation token and promotes the
// account out of the unverified state: the sentinel role is swapped for
// the baseline diner role. Confirming an already-verified account is a
// no-op beyond consuming the token.
func (e *Engine) ConfirmEmail(ctx context.Context, value string) (Account, error) {
	account, err := e.RedeemActionToken(ctx, value, ActionEmailConfirmation)
	if err != nil {
		return Account{}, err
	}

	if account.Unverified() {
		account.Roles = account.Roles.Remove(RoleUnverified).Add(RoleDiner)
		account, err = e.directory.Save(ctx, account)
		if err != nil {
			return Account{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
		}
	}

	e.metricInc(MetricEmailConfirmed)
	e.emitAudit(ctx, auditEventEmailConfirmed, true, account.ID, nil, nil)
	return account, nil
}

// ResetPassword redeems a password reset token and replaces the
// account's secret hash with one derived from newPassword. The token is
// consumed even if the directory write then fails; a crashed reset
// needs a fresh token, it cannot replay the old one.
func (e *Engine) ResetPassword(ctx context.Context, value, newPassword string) error {
	if newPassword == "" {
		return errors.New("password required")
	}

	account, err := e.RedeemActionToken(ctx, value, ActionPasswordReset)
	if err != nil {
		return err
	}

	hash, err := e.passwords.Hash(newPassword)
	if err != nil {
		return err
	}

	account.SecretHash = hash
	if _, err := e.directory.Save(ctx, account); err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	e.metricInc(MetricPasswordReset)
	e.emitAudit(ctx, auditEventPasswordReset, true, account.ID, nil, nil)
	return nil
}
