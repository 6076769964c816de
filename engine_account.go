package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// RegisterInput is the caller-supplied material for a new account. The
// identifier is normalized (trimmed, lowercased) before storage so login
// and registration agree on equality.
type RegisterInput struct {
	Identifier string
	Password   string
	FirstName  string
	LastName   string
}

// Register creates an account in the unverified state. The password is
// hashed before the directory ever sees it; the plaintext is not
// retained. A duplicate identifier reports ErrAccountExists.
//
// The new account carries only the unverified role sentinel. It cannot
// log in until an email confirmation token is issued and redeemed, which
// swaps the sentinel for the baseline diner role.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (Account, error) {
	if !e.ready() {
		return Account{}, ErrEngineNotReady
	}

	identifier := strings.ToLower(strings.TrimSpace(in.Identifier))
	if identifier == "" {
		return Account{}, errors.New("identifier required")
	}
	if in.Password == "" {
		return Account{}, errors.New("password required")
	}

	_, err := e.directory.FindByIdentifier(ctx, identifier)
	switch {
	case err == nil:
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, 0, ErrAccountExists, nil)
		return Account{}, ErrAccountExists
	case errors.Is(err, ErrAccountNotFound):
		// Free to create.
	default:
		return Account{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	hash, err := e.passwords.Hash(in.Password)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		Identifier: identifier,
		SecretHash: hash,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Roles:      NewRoleSet(RoleUnverified),
	}

	stored, err := e.directory.Save(ctx, account)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, stored.ID, nil, nil)

	return stored, nil
}
