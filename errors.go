package authcore

import "errors"

// Failure categories returned by Engine operations. Callers dispatch with
// errors.Is; no category is ever wrapped in a recoverable-looking hint.
var (
	// ErrEngineNotReady is returned when an Engine method is called on a
	// nil or incompletely built engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrInvalidCredentials covers both unknown identifiers and password
	// mismatches. The two are merged on purpose so callers cannot be used
	// as an account enumeration oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountNotFound is the sentinel a [Directory] implementation
	// returns for an unknown identifier or id. Login never surfaces it:
	// the category is folded into ErrInvalidCredentials before it leaves
	// the engine. Account-management operations return it as-is.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountUnverified is returned when the account still carries the
	// unverified role sentinel. Intentionally distinct from
	// ErrInvalidCredentials: it guides the legitimate user back to the
	// confirmation email.
	ErrAccountUnverified = errors.New("account unverified")

	// ErrInvalidSecondFactor covers a missing, malformed, or wrong
	// one-time code on an account with the second factor enabled.
	ErrInvalidSecondFactor = errors.New("invalid second factor")

	// ErrSecondFactorNotEnabled is returned by Confirm2FA/Disable2FA when
	// no secret has been provisioned for the account.
	ErrSecondFactorNotEnabled = errors.New("second factor not enabled")

	// ErrAccountExists is returned by Register for a duplicate identifier.
	ErrAccountExists = errors.New("account already exists")

	// ErrLoginRateLimited is returned when the optional login throttle is
	// enabled and the identifier or client IP exceeded its attempt budget.
	ErrLoginRateLimited = errors.New("login rate limited")

	// ErrTokenNotFound: no action token with that value exists.
	ErrTokenNotFound = errors.New("action token not found")
	// ErrTokenTypeMismatch: the token exists but was issued for a
	// different action kind.
	ErrTokenTypeMismatch = errors.New("action token type mismatch")
	// ErrTokenExpiredOrUsed: the token lapsed or has already been
	// redeemed, including losing a concurrent redemption race.
	ErrTokenExpiredOrUsed = errors.New("action token expired or used")

	// ErrSessionTokenInvalid covers every session token validation
	// failure: bad signature, structural malformation, wrong algorithm,
	// or expiry. The gate degrades all of these to anonymous.
	ErrSessionTokenInvalid = errors.New("invalid session token")

	// ErrDirectoryUnavailable wraps collaborator I/O failures from the
	// account directory.
	ErrDirectoryUnavailable = errors.New("account directory unavailable")
	// ErrTokenStoreUnavailable wraps collaborator I/O failures from the
	// action token store.
	ErrTokenStoreUnavailable = errors.New("action token store unavailable")
)
