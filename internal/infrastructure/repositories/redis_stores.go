package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/you/accountsvc/domain"
)

const (
	otpKeyPrefix          = "otp:"
	otpAttemptsKeyPrefix  = "otp:att:"
	otpSessionKeyPrefix   = "otp:sess:"
	pendingPhoneKeyPrefix = "phone:pending:"
	passwordResetPrefix   = "pwreset:"
)

// KEYS: code, attempts. ARGV: expected, max attempts (0 disables the guard).
// Returns 1 when the code matched and was consumed.
var takeIfMatchScript = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if not stored then
  return 0
end
if stored == ARGV[1] then
  redis.call("DEL", KEYS[1], KEYS[2])
  return 1
end
local attempts = redis.call("INCR", KEYS[2])
if attempts == 1 then
  local ttl = redis.call("PTTL", KEYS[1])
  if ttl > 0 then
    redis.call("PEXPIRE", KEYS[2], ttl)
  end
end
local max = tonumber(ARGV[2])
if max > 0 and attempts >= max then
  redis.call("DEL", KEYS[1], KEYS[2])
end
return 0
`)

// RedisOtpStore implements domain.OtpStore. Wrong guesses are counted per key
// and the code is destroyed once maxAttempts is reached.
type RedisOtpStore struct {
	client      redis.UniversalClient
	maxAttempts int
}

// NewRedisOtpStore creates a new Redis backed OTP store
func NewRedisOtpStore(client redis.UniversalClient, maxAttempts int) domain.OtpStore {
	return &RedisOtpStore{client: client, maxAttempts: maxAttempts}
}

// Put implements domain.OtpStore, replacing any live code and its attempts
func (s *RedisOtpStore) Put(ctx context.Context, key, code string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, otpKeyPrefix+key, code, ttl)
		pipe.Del(ctx, otpAttemptsKeyPrefix+key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

// TakeIfMatch implements domain.OtpStore
func (s *RedisOtpStore) TakeIfMatch(ctx context.Context, key, expected string) (bool, error) {
	res, err := takeIfMatchScript.Run(ctx, s.client,
		[]string{otpKeyPrefix + key, otpAttemptsKeyPrefix + key},
		expected, s.maxAttempts).Int()
	if err != nil {
		return false, fmt.Errorf("failed to check otp: %w", err)
	}
	return res == 1, nil
}

// Delete implements domain.OtpStore
func (s *RedisOtpStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, otpKeyPrefix+key, otpAttemptsKeyPrefix+key).Err()
}

// RedisOtpSessionStore implements domain.OtpSessionStore
type RedisOtpSessionStore struct {
	client redis.UniversalClient
}

// NewRedisOtpSessionStore creates a new Redis backed OTP session store
func NewRedisOtpSessionStore(client redis.UniversalClient) domain.OtpSessionStore {
	return &RedisOtpSessionStore{client: client}
}

// Put implements domain.OtpSessionStore
func (s *RedisOtpSessionStore) Put(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error {
	return s.client.Set(ctx, otpSessionKeyPrefix+sessionID, userID.String(), ttl).Err()
}

// Get implements domain.OtpSessionStore
func (s *RedisOtpSessionStore) Get(ctx context.Context, sessionID string) (uuid.UUID, error) {
	val, err := s.client.Get(ctx, otpSessionKeyPrefix+sessionID).Result()
	return parseUserID(val, err)
}

// Delete implements domain.OtpSessionStore
func (s *RedisOtpSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, otpSessionKeyPrefix+sessionID).Err()
}

// RedisPendingPhoneStore implements domain.PendingPhoneChangeStore
type RedisPendingPhoneStore struct {
	client redis.UniversalClient
}

// NewRedisPendingPhoneStore creates a new Redis backed pending phone store
func NewRedisPendingPhoneStore(client redis.UniversalClient) domain.PendingPhoneChangeStore {
	return &RedisPendingPhoneStore{client: client}
}

// Put implements domain.PendingPhoneChangeStore
func (s *RedisPendingPhoneStore) Put(ctx context.Context, userID uuid.UUID, phone string, ttl time.Duration) error {
	return s.client.Set(ctx, pendingPhoneKeyPrefix+userID.String(), phone, ttl).Err()
}

// Get implements domain.PendingPhoneChangeStore
func (s *RedisPendingPhoneStore) Get(ctx context.Context, userID uuid.UUID) (string, error) {
	phone, err := s.client.Get(ctx, pendingPhoneKeyPrefix+userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return phone, err
}

// Delete implements domain.PendingPhoneChangeStore
func (s *RedisPendingPhoneStore) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, pendingPhoneKeyPrefix+userID.String()).Err()
}

// RedisPasswordResetStore implements domain.PasswordResetStore
type RedisPasswordResetStore struct {
	client redis.UniversalClient
}

// NewRedisPasswordResetStore creates a new Redis backed reset token store
func NewRedisPasswordResetStore(client redis.UniversalClient) domain.PasswordResetStore {
	return &RedisPasswordResetStore{client: client}
}

// Put implements domain.PasswordResetStore
func (s *RedisPasswordResetStore) Put(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	return s.client.Set(ctx, passwordResetPrefix+token, userID.String(), ttl).Err()
}

// Take implements domain.PasswordResetStore
func (s *RedisPasswordResetStore) Take(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := s.client.GetDel(ctx, passwordResetPrefix+token).Result()
	return parseUserID(val, err)
}

func parseUserID(val string, err error) (uuid.UUID, error) {
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("stored user id %q: %w", val, err)
	}
	return id, nil
}
