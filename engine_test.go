package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var testSigningSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeDirectory is an in-memory Directory with injectable failures.
type fakeDirectory struct {
	mu           sync.Mutex
	nextID       int64
	accounts     map[int64]Account
	byIdentifier map[string]int64

	findErr error
	saveErr error
	saves   int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		nextID:       1,
		accounts:     make(map[int64]Account),
		byIdentifier: make(map[string]int64),
	}
}

func (d *fakeDirectory) seed(account Account) Account {
	stored, err := d.Save(context.Background(), account)
	if err != nil {
		panic(err)
	}
	return stored
}

func (d *fakeDirectory) FindByIdentifier(_ context.Context, identifier string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return Account{}, d.findErr
	}
	id, ok := d.byIdentifier[identifier]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return d.accounts[id], nil
}

func (d *fakeDirectory) FindByID(_ context.Context, id int64) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return Account{}, d.findErr
	}
	account, ok := d.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (d *fakeDirectory) Save(_ context.Context, account Account) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saveErr != nil {
		return Account{}, d.saveErr
	}
	d.saves++
	if account.ID == 0 {
		account.ID = d.nextID
		d.nextID++
	}
	if prev, ok := d.accounts[account.ID]; ok && prev.Identifier != account.Identifier {
		delete(d.byIdentifier, prev.Identifier)
	}
	d.accounts[account.ID] = account
	d.byIdentifier[account.Identifier] = account.ID
	return account, nil
}

// fakeTokenStore is an in-memory ActionTokenStore whose MarkUsed is a
// real compare-and-set under a mutex.
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]ActionToken

	saveErr error
	findErr error
	markErr error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]ActionToken)}
}

func (s *fakeTokenStore) Save(_ context.Context, token ActionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.tokens[token.Value] = token
	return nil
}

func (s *fakeTokenStore) FindByValue(_ context.Context, value string) (ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return ActionToken{}, s.findErr
	}
	token, ok := s.tokens[value]
	if !ok {
		return ActionToken{}, ErrTokenNotFound
	}
	return token, nil
}

func (s *fakeTokenStore) AtomicMarkUsed(_ context.Context, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return false, s.markErr
	}
	token, ok := s.tokens[value]
	if !ok || token.Used {
		return false, nil
	}
	token.Used = true
	s.tokens[value] = token
	return true, nil
}

// fakeClock pins the engine clock and lets tests move it.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

// newFakeClock starts at the real wall clock because session token
// validation (inside the jwt parser) compares exp against real time.
// Tests that need to move time call Advance.
func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEngine struct {
	*Engine
	directory *fakeDirectory
	tokens    *fakeTokenStore
	clock     *fakeClock
}

func newTestEngine(t *testing.T, mutate func(*Config)) *testEngine {
	t.Helper()

	cfg := DefaultConfig()
	cfg.SessionToken.SigningSecret = testSigningSecret
	cfg.Metrics.Enabled = true
	// The test hasher stays at the floor so each Login costs milliseconds.
	cfg.Password = PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
	if mutate != nil {
		mutate(&cfg)
	}

	directory := newFakeDirectory()
	tokens := newFakeTokenStore()

	engine, err := New().
		WithConfig(cfg).
		WithDirectory(directory).
		WithActionTokenStore(tokens).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	clock := newFakeClock()
	engine.now = clock.Now

	return &testEngine{Engine: engine, directory: directory, tokens: tokens, clock: clock}
}

// seedAccount stores a verified diner with the given password.
func (te *testEngine) seedAccount(t *testing.T, identifier, password string, mutate func(*Account)) Account {
	t.Helper()
	hash, err := te.passwords.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	account := Account{
		Identifier: identifier,
		SecretHash: hash,
		Roles:      NewRoleSet(RoleDiner),
	}
	if mutate != nil {
		mutate(&account)
	}
	return te.directory.seed(account)
}

func TestBuildValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionToken.SigningSecret = testSigningSecret

	t.Run("missing directory", func(t *testing.T) {
		_, err := New().WithConfig(cfg).WithActionTokenStore(newFakeTokenStore()).Build()
		if err == nil {
			t.Error("Build accepted missing directory")
		}
	})

	t.Run("missing token store", func(t *testing.T) {
		_, err := New().WithConfig(cfg).WithDirectory(newFakeDirectory()).Build()
		if err == nil {
			t.Error("Build accepted missing token store")
		}
	})

	t.Run("short signing secret", func(t *testing.T) {
		bad := cfg
		bad.SessionToken.SigningSecret = []byte("short")
		_, err := New().WithConfig(bad).
			WithDirectory(newFakeDirectory()).
			WithActionTokenStore(newFakeTokenStore()).
			Build()
		if err == nil {
			t.Error("Build accepted short signing secret")
		}
	})

	t.Run("throttle without redis", func(t *testing.T) {
		bad := cfg
		bad.Throttle.Enabled = true
		_, err := New().WithConfig(bad).
			WithDirectory(newFakeDirectory()).
			WithActionTokenStore(newFakeTokenStore()).
			Build()
		if err == nil {
			t.Error("Build accepted throttle config without redis client")
		}
	})

	t.Run("single use", func(t *testing.T) {
		b := New().WithConfig(cfg).
			WithDirectory(newFakeDirectory()).
			WithActionTokenStore(newFakeTokenStore())
		if _, err := b.Build(); err != nil {
			t.Fatalf("first Build: %v", err)
		}
		if _, err := b.Build(); err == nil {
			t.Error("second Build on same builder succeeded")
		}
	})
}

func TestEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "bob@x.com", "pw", ""); !errors.Is(err, ErrEngineNotReady) {
		t.Errorf("nil engine Login: got %v", err)
	}
	if _, err := e.ValidateSessionToken("x"); !errors.Is(err, ErrEngineNotReady) {
		t.Errorf("nil engine ValidateSessionToken: got %v", err)
	}
	e.Close() // must not panic
}
