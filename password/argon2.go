// Package password provides one-way credential hashing for authcore.
//
// Hashes are argon2id in PHC string format
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash). Hashing is deliberately
// slow under the configured work factor; verification recomputes the
// hash and compares in constant time. There is no decode operation.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKiB   uint32 = 8 * 1024
	minTime        uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// Config is the argon2id work factor, fixed at construction.
type Config struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 hashes and verifies credentials. Immutable after NewArgon2;
// safe for concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 validates the work factor against the package floors.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < minMemoryKiB:
		return nil, errors.New("password memory must be >= 8192 KiB")
	case cfg.Time < minTime:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("password salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("password key length must be >= 16")
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a fresh salted hash of the plaintext and returns the PHC
// encoding. The plaintext is used byte-for-byte as provided.
func (a *Argon2) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("empty password")
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(plaintext),
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash of plaintext under the parameters embedded
// in encoded and compares in constant time. It reports (false, nil) on a
// mismatch and an error only for malformed encodings.
func (a *Argon2) Verify(plaintext, encoded string) (bool, error) {
	params, salt, want, err := decode(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey(
		[]byte(plaintext),
		salt,
		params.time,
		params.memory,
		params.parallelism,
		uint32(len(want)),
	)

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

type params struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func decode(encoded string) (params, []byte, []byte, error) {
	var p params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, errors.New("malformed password hash")
	}
	if parts[1] != algorithmID {
		return p, nil, nil, errors.New("unsupported password hash algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errors.New("unsupported argon2 version")
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil {
		return p, nil, nil, errors.New("malformed argon2 parameters")
	}
	if p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return p, nil, nil, errors.New("malformed argon2 parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return p, nil, nil, errors.New("malformed password salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errors.New("malformed password hash payload")
	}

	return p, salt, key, nil
}
