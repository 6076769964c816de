package authcore

import (
	"context"
	"errors"
	"fmt"
)

// TwoFactorSetup is the provisioning material returned by Enable2FA. The
// secret is shown to the account owner exactly once; the URI renders as
// the QR code authenticator apps scan.
type TwoFactorSetup struct {
	Secret string
	URI    string
}

// Enable2FA provisions a fresh shared secret for the account and stores
// it in the pending state. The second factor does not participate in
// login until Confirm2FA proves the owner's authenticator produces
// matching codes. Calling Enable2FA again before confirmation re-keys
// the pending secret; calling it on an account with an active second
// factor is rejected, the owner must disable first.
func (e *Engine) Enable2FA(ctx context.Context, accountID int64) (TwoFactorSetup, error) {
	if !e.ready() {
		return TwoFactorSetup{}, ErrEngineNotReady
	}

	account, err := e.findByID(ctx, accountID)
	if err != nil {
		return TwoFactorSetup{}, err
	}
	if account.TwoFactorEnabled {
		return TwoFactorSetup{}, errors.New("second factor already enabled")
	}

	secret, err := e.totp.generateSecret()
	if err != nil {
		return TwoFactorSetup{}, err
	}

	account.TOTPSecret = secret
	account.TwoFactorEnabled = false
	if _, err := e.directory.Save(ctx, account); err != nil {
		return TwoFactorSetup{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	e.emitAudit(ctx, auditEventSecondFactorSetup, true, account.ID, nil, nil)

	return TwoFactorSetup{
		Secret: secret,
		URI:    e.totp.provisionURI(secret, account.Identifier),
	}, nil
}

// Confirm2FA activates the pending second factor once the owner submits
// a live code from their authenticator. Until this succeeds, login does
// not ask for a code.
func (e *Engine) Confirm2FA(ctx context.Context, accountID int64, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	account, err := e.findByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.TOTPSecret == "" {
		return ErrSecondFactorNotEnabled
	}
	if account.TwoFactorEnabled {
		return nil
	}

	if !e.totp.verify(account.TOTPSecret, code, e.now()) {
		e.metricInc(MetricSecondFactorFailure)
		e.emitAudit(ctx, auditEventSecondFactorFailure, false, account.ID, ErrInvalidSecondFactor, nil)
		return ErrInvalidSecondFactor
	}

	account.TwoFactorEnabled = true
	if _, err := e.directory.Save(ctx, account); err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	e.metricInc(MetricSecondFactorEnabled)
	e.emitAudit(ctx, auditEventSecondFactorEnabled, true, account.ID, nil, nil)
	return nil
}

// Disable2FA turns the second factor off. A live code is required so a
// hijacked session cannot silently weaken the account.
func (e *Engine) Disable2FA(ctx context.Context, accountID int64, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	account, err := e.findByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.TwoFactorEnabled {
		return ErrSecondFactorNotEnabled
	}

	if !e.totp.verify(account.TOTPSecret, code, e.now()) {
		e.metricInc(MetricSecondFactorFailure)
		e.emitAudit(ctx, auditEventSecondFactorFailure, false, account.ID, ErrInvalidSecondFactor, nil)
		return ErrInvalidSecondFactor
	}

	account.TOTPSecret = ""
	account.TwoFactorEnabled = false
	if _, err := e.directory.Save(ctx, account); err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	e.metricInc(MetricSecondFactorDisabled)
	e.emitAudit(ctx, auditEventSecondFactorDisable, true, account.ID, nil, nil)
	return nil
}

func (e *Engine) findByID(ctx context.Context, accountID int64) (Account, error) {
	account, err := e.directory.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return account, nil
}
