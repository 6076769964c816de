package password

import (
	"strings"
	"testing"
)

// Small parameters keep the test fast while staying above the floors.
func newTestHasher(t *testing.T) *Argon2 {
	t.Helper()
	a, err := NewArgon2(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return a
}

func TestHashAndVerify(t *testing.T) {
	a := newTestHasher(t)

	encoded, err := a.Hash("s3cret-pa55word")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=") {
		t.Fatalf("unexpected encoding: %q", encoded)
	}

	ok, err := a.Verify("s3cret-pa55word", encoded)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("correct password rejected")
	}

	ok, err = a.Verify("s3cret-pa55wore", encoded)
	if err != nil {
		t.Fatalf("Verify mismatch: %v", err)
	}
	if ok {
		t.Error("wrong password accepted")
	}
}

func TestHashIsSalted(t *testing.T) {
	a := newTestHasher(t)

	first, err := a.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, err := a.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if first == second {
		t.Error("two hashes of the same input are identical; salt not applied")
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	a := newTestHasher(t)
	if _, err := a.Hash(""); err == nil {
		t.Error("empty password accepted")
	}
}

func TestVerifyRejectsMalformedEncodings(t *testing.T) {
	a := newTestHasher(t)

	cases := []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=8192,t=1,p=1$short",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=0,t=0,p=0$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$!!!",
	}
	for _, encoded := range cases {
		if _, err := a.Verify("whatever", encoded); err == nil {
			t.Errorf("malformed encoding accepted: %q", encoded)
		}
	}
}

func TestVerifyAcrossWorkFactors(t *testing.T) {
	// Hashes verify under the parameters embedded in the encoding, not the
	// verifier's own config, so raising the work factor later does not
	// invalidate stored credentials.
	old := newTestHasher(t)
	encoded, err := old.Hash("carried-forward")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	stronger, err := NewArgon2(Config{
		Memory:      16 * 1024,
		Time:        2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}

	ok, err := stronger.Verify("carried-forward", encoded)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("hash from older parameters rejected")
	}
}

func TestNewArgon2EnforcesFloors(t *testing.T) {
	base := Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"memory", func(c *Config) { c.Memory = 1024 }},
		{"time", func(c *Config) { c.Time = 0 }},
		{"parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"salt", func(c *Config) { c.SaltLength = 8 }},
		{"key", func(c *Config) { c.KeyLength = 8 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Error("config below floor accepted")
			}
		})
	}
}
