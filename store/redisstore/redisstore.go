// Package redisstore implements the authcore action token store on
// Redis, for deployments where several engine instances must agree on
// which tokens have been consumed.
//
// Tokens are stored as hashes under one key per token value. The used
// flag is flipped by a Lua script, so concurrent redemptions across
// processes still resolve to a single winner. Keys carry a Redis TTL of
// twice the token lifetime: expiry inside the validity window is judged
// by the engine from the stored timestamps, and the slack keeps expired
// tokens observable (as expired, not as missing) for a while after.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dinely/authcore"
)

const keyPrefix = "ac:action:"

// markUsedScript flips the used field only when the key exists and the
// field is still 0. Returns 1 when this caller won the flip.
var markUsedScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "used") == "1" then
  return 0
end
redis.call("HSET", KEYS[1], "used", "1")
return 1
`)

// TokenStore is a Redis-backed action token store.
type TokenStore struct {
	redis redis.UniversalClient
}

// New returns a TokenStore over the given client.
func New(client redis.UniversalClient) *TokenStore {
	return &TokenStore{redis: client}
}

// Save writes the token hash and sets its retention TTL.
func (s *TokenStore) Save(ctx context.Context, token authcore.ActionToken) error {
	key := keyPrefix + token.Value
	fields := map[string]any{
		"kind":       int(token.Kind),
		"account_id": token.AccountID,
		"created_at": token.CreatedAt.Unix(),
		"expires_at": token.ExpiresAt.Unix(),
		"used":       boolField(token.Used),
	}

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if retention := 2 * token.ExpiresAt.Sub(token.CreatedAt); retention > 0 {
		pipe.Expire(ctx, key, retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: save token: %w", err)
	}
	return nil
}

// FindByValue reads the token hash back. An absent key reports
// authcore.ErrTokenNotFound.
func (s *TokenStore) FindByValue(ctx context.Context, value string) (authcore.ActionToken, error) {
	fields, err := s.redis.HGetAll(ctx, keyPrefix+value).Result()
	if err != nil {
		return authcore.ActionToken{}, fmt.Errorf("redisstore: find token: %w", err)
	}
	if len(fields) == 0 {
		return authcore.ActionToken{}, authcore.ErrTokenNotFound
	}
	return decode(value, fields)
}

// AtomicMarkUsed runs the conditional flip script.
func (s *TokenStore) AtomicMarkUsed(ctx context.Context, value string) (bool, error) {
	won, err := markUsedScript.Run(ctx, s.redis, []string{keyPrefix + value}).Int()
	if err != nil {
		return false, fmt.Errorf("redisstore: mark used: %w", err)
	}
	return won == 1, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func decode(value string, fields map[string]string) (authcore.ActionToken, error) {
	kind, err := strconv.Atoi(fields["kind"])
	if err != nil {
		return authcore.ActionToken{}, fmt.Errorf("redisstore: corrupt kind field: %w", err)
	}
	accountID, err := strconv.ParseInt(fields["account_id"], 10, 64)
	if err != nil {
		return authcore.ActionToken{}, fmt.Errorf("redisstore: corrupt account_id field: %w", err)
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return authcore.ActionToken{}, fmt.Errorf("redisstore: corrupt created_at field: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return authcore.ActionToken{}, fmt.Errorf("redisstore: corrupt expires_at field: %w", err)
	}

	return authcore.ActionToken{
		Value:     value,
		Kind:      authcore.ActionKind(kind),
		AccountID: accountID,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
		Used:      fields["used"] == "1",
	}, nil
}
