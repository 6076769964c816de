package authcore

import (
	"context"
	"errors"
	"strconv"
	"time"
)

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventRegisterSuccess     = "register_success"
	auditEventRegisterDuplicate   = "register_duplicate"
	auditEventSecondFactorSetup   = "second_factor_setup"
	auditEventSecondFactorEnabled = "second_factor_enabled"
	auditEventSecondFactorDisable = "second_factor_disabled"
	auditEventSecondFactorFailure = "second_factor_failure"
	auditEventActionTokenIssued   = "action_token_issued"
	auditEventActionTokenRedeemed = "action_token_redeemed"
	auditEventActionTokenRejected = "action_token_rejected"
	auditEventEmailConfirmed      = "email_confirmed"
	auditEventPasswordReset       = "password_reset"
)

func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrAccountUnverified):
		return "account_unverified"
	case errors.Is(err, ErrInvalidSecondFactor):
		return "invalid_second_factor"
	case errors.Is(err, ErrSecondFactorNotEnabled):
		return "second_factor_not_enabled"
	case errors.Is(err, ErrAccountExists):
		return "duplicate"
	case errors.Is(err, ErrLoginRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTokenNotFound):
		return "token_not_found"
	case errors.Is(err, ErrTokenTypeMismatch):
		return "token_type_mismatch"
	case errors.Is(err, ErrTokenExpiredOrUsed):
		return "token_expired_or_used"
	case errors.Is(err, ErrSessionTokenInvalid):
		return "invalid_session_token"
	case errors.Is(err, ErrDirectoryUnavailable), errors.Is(err, ErrTokenStoreUnavailable):
		return "backend_unavailable"
	default:
		return "internal_error"
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID int64,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Error:     auditErrorCode(err),
		Metadata:  metadata,
	}
	if accountID != 0 {
		event.AccountID = strconv.FormatInt(accountID, 10)
	}

	e.audit.Emit(ctx, event)
}

// nowFunc is swapped in tests to pin the clock.
type nowFunc func() time.Time
