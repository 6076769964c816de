package authcore

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dinely/authcore/internal/metrics"
	"github.com/dinely/authcore/internal/rate"
	"github.com/dinely/authcore/password"
	"github.com/dinely/authcore/token"
)

// Builder assembles an [Engine]. Construction is allocation-only; all
// validation happens in Build, and a Builder is single-use.
type Builder struct {
	config    Config
	directory Directory
	tokens    ActionTokenStore
	redis     redis.UniversalClient
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the configuration. The secret is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithDirectory sets the account directory collaborator (required).
func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithActionTokenStore sets the action token store collaborator (required).
func (b *Builder) WithActionTokenStore(s ActionTokenStore) *Builder {
	b.tokens = s
	return b
}

// WithRedis supplies the Redis client backing the optional login
// throttle. Only required when Throttle.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events. Ignored unless
// Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for operational warnings. Defaults to
// slog.Default. Security outcomes go through audit events, not here.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := cloneConfig(b.config)

	if b.directory == nil {
		return nil, errors.New("account directory required")
	}
	if b.tokens == nil {
		return nil, errors.New("action token store required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	tokenManager, err := token.NewManager(token.Config{
		SigningSecret:     cfg.SessionToken.SigningSecret,
		Issuer:            cfg.SessionToken.Issuer,
		TTL:               cfg.SessionToken.TTL,
		Leeway:            cfg.SessionToken.Leeway,
		MaxFutureIssuedAt: cfg.SessionToken.MaxFutureIssuedAt,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Throttle.Enabled {
		if b.redis == nil {
			return nil, errors.New("login throttle requires redis client")
		}
		limiter = rate.New(b.redis, rate.Config{
			MaxAttempts:      cfg.Throttle.MaxAttempts,
			Cooldown:         cfg.Throttle.Cooldown,
			EnableIPThrottle: cfg.Throttle.EnableIPThrottle,
		})
	}

	var dispatcher *auditDispatcher
	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = NoOpSink{}
		}
		dispatcher = newAuditDispatcher(sink, cfg.Audit.BufferSize, cfg.Audit.DropIfFull)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		config:    cfg,
		directory: b.directory,
		tokens:    b.tokens,
		sessions:  tokenManager,
		passwords: hasher,
		totp:      newTOTPManager(cfg.TOTP),
		limiter:   limiter,
		audit:     dispatcher,
		metrics:   metrics.New(metrics.Config{Enabled: cfg.Metrics.Enabled}),
		logger:    logger,
		now:       time.Now,
	}, nil
}

func validateConfig(cfg Config) error {
	if len(cfg.SessionToken.SigningSecret) < 32 {
		return errors.New("session token signing secret must be at least 32 bytes")
	}
	if cfg.SessionToken.TTL <= 0 {
		return errors.New("session token TTL must be positive")
	}
	if cfg.SessionToken.Issuer == "" {
		return errors.New("session token issuer required")
	}
	if cfg.TOTP.Digits < 6 || cfg.TOTP.Digits > 10 {
		return errors.New("totp digits must be between 6 and 10")
	}
	if cfg.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if cfg.TOTP.Skew < 0 || cfg.TOTP.Skew > 2 {
		return errors.New("totp skew must be between 0 and 2 steps")
	}
	if cfg.ActionToken.TTL <= 0 {
		return errors.New("action token TTL must be positive")
	}
	if cfg.Throttle.Enabled {
		if cfg.Throttle.MaxAttempts <= 0 {
			return errors.New("throttle max attempts must be positive")
		}
		if cfg.Throttle.Cooldown <= 0 {
			return errors.New("throttle cooldown must be positive")
		}
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}
