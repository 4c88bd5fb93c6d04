package repository

import (
	"context"
	"fmt"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	domainRepo "go-cleaning-booking/internal/domain/repository"

	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"
)

// RedisCapacityKeyPrefix prefixes the per-(provider, date) set of held slot labels
const RedisCapacityKeyPrefix = "capacity:held:"

// claimSlotScript is a package-level Lua script so the client can reuse
// EVALSHA after the first call.
//
// Logic:
// 1. Label already in the set → return -2 (slot taken)
// 2. SCARD >= ceiling → return -1 (capacity full)
// 3. SADD label, refresh TTL, return the new held count
var claimSlotScript = redis.NewScript(`
	if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
		return -2
	end
	local held = redis.call('SCARD', KEYS[1])
	if held >= tonumber(ARGV[2]) then
		return -1
	end
	redis.call('SADD', KEYS[1], ARGV[1])
	local ttl = tonumber(ARGV[3])
	if ttl > 0 then
		redis.call('EXPIRE', KEYS[1], ttl)
	end
	return held + 1
`)

// redisCapacityLedger stores each capacity cell as a Redis set of held slot
// labels. Claims run inside a Lua script, so they stay atomic across every
// process sharing the Redis instance.
type redisCapacityLedger struct {
	client *redis.Client
	clock  clock.Clock
}

func NewRedisCapacityLedger(client *redis.Client, clk clock.Clock) domainRepo.CapacityLedger {
	return &redisCapacityLedger{
		client: client,
		clock:  clk,
	}
}

func capacityRedisKey(key entity.CapacityKey) string {
	return RedisCapacityKeyPrefix + key.String()
}

func (l *redisCapacityLedger) Count(ctx context.Context, key entity.CapacityKey) (int, error) {
	n, err := l.client.SCard(ctx, capacityRedisKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("scard %s: %w", key, err)
	}
	return int(n), nil
}

func (l *redisCapacityLedger) Holds(ctx context.Context, key entity.CapacityKey, slotLabel string) (bool, error) {
	ok, err := l.client.SIsMember(ctx, capacityRedisKey(key), slotLabel).Result()
	if err != nil {
		return false, fmt.Errorf("sismember %s: %w", key, err)
	}
	return ok, nil
}

func (l *redisCapacityLedger) Claim(ctx context.Context, key entity.CapacityKey, slotLabel string, ceiling int) (domainRepo.ClaimOutcome, int, error) {
	ttlSeconds := int64(l.ttlFor(key.Date) / time.Second)

	result, err := claimSlotScript.Run(ctx, l.client, []string{capacityRedisKey(key)}, slotLabel, ceiling, ttlSeconds).Int()
	if err != nil {
		return 0, 0, fmt.Errorf("lua claim_slot for %s: %w", key, err)
	}

	switch result {
	case -2:
		return domainRepo.ClaimSlotTaken, 0, nil
	case -1:
		return domainRepo.ClaimCapacityFull, ceiling, nil
	}
	return domainRepo.ClaimGranted, result, nil
}

func (l *redisCapacityLedger) Release(ctx context.Context, key entity.CapacityKey, slotLabel string) (bool, error) {
	removed, err := l.client.SRem(ctx, capacityRedisKey(key), slotLabel).Result()
	if err != nil {
		return false, fmt.Errorf("srem %s: %w", key, err)
	}
	return removed > 0, nil
}

func (l *redisCapacityLedger) Load(ctx context.Context, key entity.CapacityKey, slotLabels []string, ttl time.Duration) error {
	redisKey := capacityRedisKey(key)
	if ttl <= 0 {
		ttl = l.ttlFor(key.Date)
	}

	pipe := l.client.TxPipeline()
	pipe.Del(ctx, redisKey)
	if len(slotLabels) > 0 {
		members := make([]interface{}, len(slotLabels))
		for i, label := range slotLabels {
			members[i] = label
		}
		pipe.SAdd(ctx, redisKey, members...)
		pipe.Expire(ctx, redisKey, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	return nil
}

// ttlFor keeps a cell until one day after the booked date ends
func (l *redisCapacityLedger) ttlFor(date time.Time) time.Duration {
	expireAt := entity.NormalizeDate(date).AddDate(0, 0, 2)
	ttl := expireAt.Sub(l.clock.Now())

	if ttl <= 0 {
		// Past date - short TTL for cleanup
		return 1 * time.Minute
	}

	return ttl
}
