package authcore

import "time"

// Config is the explicit configuration passed to [Builder]. It is read
// once at Build and treated as immutable afterwards; there is no ambient
// or global configuration lookup anywhere in the core.
type Config struct {
	SessionToken SessionTokenConfig
	TOTP         TOTPConfig
	Password     PasswordConfig
	ActionToken  ActionTokenConfig
	Throttle     ThrottleConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

// SessionTokenConfig governs issuance and validation of session tokens.
// SigningSecret is the single symmetric secret; it is configured
// out-of-band, never logged, and rotated only by redeploying.
type SessionTokenConfig struct {
	SigningSecret []byte
	Issuer        string
	TTL           time.Duration
	Leeway        time.Duration
	// MaxFutureIssuedAt rejects tokens whose iat is further in the
	// future than this, which catches grossly skewed issuer clocks.
	MaxFutureIssuedAt time.Duration
}

// TOTPConfig governs the second factor. Period and Skew are in the RFC
// 6238 sense: codes within ±Skew steps of the current Period-second
// counter are accepted.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string
	Skew      int
}

// PasswordConfig carries the argon2id work factor. Values below the
// floors in package password fail Build.
type PasswordConfig struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// ActionTokenConfig governs single-use action tokens.
type ActionTokenConfig struct {
	TTL time.Duration
}

// ThrottleConfig enables the optional Redis-backed login attempt
// throttle. Off by default; when enabled a Redis client must be supplied
// through [Builder.WithRedis].
type ThrottleConfig struct {
	Enabled          bool
	MaxAttempts      int
	Cooldown         time.Duration
	EnableIPThrottle bool
}

// AuditConfig governs the buffered audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig governs the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration [New] starts from. Hosts that
// need to tweak a field take this, modify, and pass the result to
// [Builder.WithConfig]; only the signing secret has no usable default.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		SessionToken: SessionTokenConfig{
			Issuer:            "dinely",
			TTL:               7 * 24 * time.Hour,
			Leeway:            30 * time.Second,
			MaxFutureIssuedAt: 10 * time.Minute,
		},
		TOTP: TOTPConfig{
			Issuer:    "dinely",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		ActionToken: ActionTokenConfig{
			TTL: 48 * time.Hour,
		},
		Throttle: ThrottleConfig{
			Enabled:          false,
			MaxAttempts:      5,
			Cooldown:         15 * time.Minute,
			EnableIPThrottle: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.SessionToken.SigningSecret) > 0 {
		out.SessionToken.SigningSecret = append([]byte(nil), cfg.SessionToken.SigningSecret...)
	}
	return out
}
