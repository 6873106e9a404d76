package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/textcircle/backend/internal/otp/domain"
)

// keyGrace keeps an expired challenge readable for a while past its expiry so
// verification can answer Expired instead of Invalid.
const keyGrace = time.Hour

// consumeScript performs the check-and-consume as one atomic step server-side.
// The key outlives the challenge by keyGrace, so a remaining TTL at or below
// the grace (ARGV[2], seconds) means the challenge itself has expired.
var consumeScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
local ch = cjson.decode(raw)
if ch.id ~= ARGV[1] then return 0 end
if ch.consumed then return 0 end
local ttl = redis.call('TTL', KEYS[1])
if ttl >= 0 and ttl <= tonumber(ARGV[2]) then return 0 end
ch.consumed = true
if ttl > 0 then
  redis.call('SET', KEYS[1], cjson.encode(ch), 'EX', ttl)
else
  redis.call('SET', KEYS[1], cjson.encode(ch))
end
return 1
`)

var attemptsScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return -1 end
local ch = cjson.decode(raw)
if ch.id ~= ARGV[1] then return -1 end
ch.attempts = ch.attempts + 1
local ttl = redis.call('TTL', KEYS[1])
if ttl > 0 then
  redis.call('SET', KEYS[1], cjson.encode(ch), 'EX', ttl)
else
  redis.call('SET', KEYS[1], cjson.encode(ch))
end
return ch.attempts
`)

// RedisChallengeRepository keeps challenges in Redis, one key per
// (phone_number, purpose) pair, so issuing a new challenge replaces the prior
// one by construction.
type RedisChallengeRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisChallengeRepository creates the Redis implementation of
// domain.ChallengeRepository.
func NewRedisChallengeRepository(client *redis.Client, logger *slog.Logger) *RedisChallengeRepository {
	return &RedisChallengeRepository{client: client, logger: logger}
}

func challengeKey(phoneNumber string, purpose domain.Purpose) string {
	return fmt.Sprintf("otp:%s:%s", purpose, phoneNumber)
}

func (r *RedisChallengeRepository) Put(ctx context.Context, ch *domain.Challenge) error {
	raw, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	ttl := time.Until(ch.ExpiresAt) + keyGrace
	if err := r.client.Set(ctx, challengeKey(ch.PhoneNumber, ch.Purpose), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge in redis: %w", err)
	}
	return nil
}

func (r *RedisChallengeRepository) GetLatest(ctx context.Context, phoneNumber string, purpose domain.Purpose) (*domain.Challenge, error) {
	raw, err := r.client.Get(ctx, challengeKey(phoneNumber, purpose)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge from redis: %w", err)
	}
	var ch domain.Challenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	return &ch, nil
}

func (r *RedisChallengeRepository) Consume(ctx context.Context, phoneNumber string, purpose domain.Purpose, id uuid.UUID) (bool, error) {
	won, err := consumeScript.Run(ctx, r.client,
		[]string{challengeKey(phoneNumber, purpose)},
		id.String(), int(keyGrace.Seconds()),
	).Int()
	if err != nil {
		r.logger.ErrorContext(ctx, "Error consuming OTP challenge in redis", "error", err, "challenge_id", id)
		return false, err
	}
	return won == 1, nil
}

func (r *RedisChallengeRepository) IncrementAttempts(ctx context.Context, phoneNumber string, purpose domain.Purpose, id uuid.UUID) (int, error) {
	attempts, err := attemptsScript.Run(ctx, r.client, []string{challengeKey(phoneNumber, purpose)}, id.String()).Int()
	if err != nil {
		return 0, err
	}
	if attempts < 0 {
		return 0, errors.New("challenge no longer present")
	}
	return attempts, nil
}
