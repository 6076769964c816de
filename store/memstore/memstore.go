// Package memstore provides in-memory implementations of the authcore
// storage interfaces. They are safe for concurrent use and intended for
// tests, examples, and single-process deployments; nothing persists
// across restarts.
package memstore

import (
	"context"
	"sync"

	"github.com/dinely/authcore"
)

// Directory is an in-memory account directory keyed by id and by
// identifier. The zero value is not usable; call NewDirectory.
type Directory struct {
	mu           sync.RWMutex
	nextID       int64
	byID         map[int64]authcore.Account
	byIdentifier map[string]int64
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		nextID:       1,
		byID:         make(map[int64]authcore.Account),
		byIdentifier: make(map[string]int64),
	}
}

// FindByIdentifier implements authcore.Directory.
func (d *Directory) FindByIdentifier(_ context.Context, identifier string) (authcore.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byIdentifier[identifier]
	if !ok {
		return authcore.Account{}, authcore.ErrAccountNotFound
	}
	return d.byID[id], nil
}

// FindByID implements authcore.Directory.
func (d *Directory) FindByID(_ context.Context, id int64) (authcore.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	account, ok := d.byID[id]
	if !ok {
		return authcore.Account{}, authcore.ErrAccountNotFound
	}
	return account, nil
}

// Save upserts the account. A zero ID allocates the next free one; the
// stored record is returned.
func (d *Directory) Save(_ context.Context, account authcore.Account) (authcore.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if account.ID == 0 {
		account.ID = d.nextID
		d.nextID++
	}

	// An identifier change must drop the old index entry.
	if prev, ok := d.byID[account.ID]; ok && prev.Identifier != account.Identifier {
		delete(d.byIdentifier, prev.Identifier)
	}

	d.byID[account.ID] = account
	d.byIdentifier[account.Identifier] = account.ID
	return account, nil
}

// TokenStore is an in-memory action token store. MarkUsed is a
// mutex-guarded compare-and-set, so concurrent redemptions of one value
// resolve to exactly one winner.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]authcore.ActionToken
}

// NewTokenStore returns an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]authcore.ActionToken)}
}

// Save implements authcore.ActionTokenStore.
func (s *TokenStore) Save(_ context.Context, token authcore.ActionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Value] = token
	return nil
}

// FindByValue implements authcore.ActionTokenStore.
func (s *TokenStore) FindByValue(_ context.Context, value string) (authcore.ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[value]
	if !ok {
		return authcore.ActionToken{}, authcore.ErrTokenNotFound
	}
	return token, nil
}

// AtomicMarkUsed flips the used flag if and only if the token exists
// and is not used yet, reporting whether this call won the flip.
func (s *TokenStore) AtomicMarkUsed(_ context.Context, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[value]
	if !ok || token.Used {
		return false, nil
	}
	token.Used = true
	s.tokens[value] = token
	return true, nil
}
