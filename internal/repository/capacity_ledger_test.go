package repository

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	domainRepo "go-cleaning-booking/internal/domain/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgers(t *testing.T) map[string]domainRepo.CapacityLedger {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clk := testclock.NewClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))

	return map[string]domainRepo.CapacityLedger{
		"memory": NewMemoryCapacityLedger(),
		"redis":  NewRedisCapacityLedger(client, clk),
	}
}

func TestCapacityLedger_ClaimAndRelease(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := entity.NewCapacityKey(uuid.New(), time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC))

			outcome, count, err := ledger.Claim(ctx, key, "08:00-10:00", 2)
			require.NoError(t, err)
			assert.Equal(t, domainRepo.ClaimGranted, outcome)
			assert.Equal(t, 1, count)

			outcome, _, err = ledger.Claim(ctx, key, "08:00-10:00", 2)
			require.NoError(t, err)
			assert.Equal(t, domainRepo.ClaimSlotTaken, outcome)

			outcome, count, err = ledger.Claim(ctx, key, "10:30-12:30", 2)
			require.NoError(t, err)
			assert.Equal(t, domainRepo.ClaimGranted, outcome)
			assert.Equal(t, 2, count)

			outcome, _, err = ledger.Claim(ctx, key, "13:00-15:00", 2)
			require.NoError(t, err)
			assert.Equal(t, domainRepo.ClaimCapacityFull, outcome)

			held, err := ledger.Holds(ctx, key, "10:30-12:30")
			require.NoError(t, err)
			assert.True(t, held)

			released, err := ledger.Release(ctx, key, "10:30-12:30")
			require.NoError(t, err)
			assert.True(t, released)

			released, err = ledger.Release(ctx, key, "10:30-12:30")
			require.NoError(t, err)
			assert.False(t, released, "release is idempotent")

			n, err := ledger.Count(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			outcome, _, err = ledger.Claim(ctx, key, "13:00-15:00", 2)
			require.NoError(t, err)
			assert.Equal(t, domainRepo.ClaimGranted, outcome, "released capacity can be claimed again")
		})
	}
}

func TestCapacityLedger_Load(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := entity.NewCapacityKey(uuid.New(), time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC))

			_, _, err := ledger.Claim(ctx, key, "18:00-20:00", 3)
			require.NoError(t, err)

			require.NoError(t, ledger.Load(ctx, key, []string{"08:00-10:00", "10:30-12:30"}, 0))

			n, err := ledger.Count(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			held, err := ledger.Holds(ctx, key, "18:00-20:00")
			require.NoError(t, err)
			assert.False(t, held, "load overwrites the cell")

			require.NoError(t, ledger.Load(ctx, key, nil, 0))
			n, err = ledger.Count(ctx, key)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestCapacityLedger_ConcurrentClaimsNeverExceedCeiling(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := entity.NewCapacityKey(uuid.New(), time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC))
			labels := []string{"08:00-10:00", "10:30-12:30", "13:00-15:00", "15:30-17:30", "18:00-20:00"}

			var granted atomic.Int32
			var wg conc.WaitGroup
			for i := 0; i < 40; i++ {
				label := labels[i%len(labels)]
				wg.Go(func() {
					outcome, _, err := ledger.Claim(ctx, key, label, 3)
					if err == nil && outcome == domainRepo.ClaimGranted {
						granted.Add(1)
					}
				})
			}
			wg.Wait()

			assert.Equal(t, int32(3), granted.Load())
			n, err := ledger.Count(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
		})
	}
}

func TestRedisCapacityLedger_SetsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	ledger := NewRedisCapacityLedger(client, testclock.NewClock(now))
	key := entity.NewCapacityKey(uuid.New(), time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC))

	_, _, err := ledger.Claim(context.Background(), key, "08:00-10:00", 1)
	require.NoError(t, err)

	ttl := mr.TTL(RedisCapacityKeyPrefix + key.String())
	assert.Equal(t, time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC).Sub(now), ttl)
}

func TestMemoryCapacityLedger_KeepsOnlyOccupiedCells(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryCapacityLedger().(*memoryCapacityLedger)
	date := time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)

	// reads on unknown keys leave nothing behind
	for i := 0; i < 10; i++ {
		key := entity.NewCapacityKey(uuid.New(), date)
		count, err := ledger.Count(ctx, key)
		require.NoError(t, err)
		assert.Zero(t, count)
		held, err := ledger.Holds(ctx, key, "08:00-10:00")
		require.NoError(t, err)
		assert.False(t, held)
	}
	assert.Zero(t, ledger.size())

	key := entity.NewCapacityKey(uuid.New(), date)
	_, _, err := ledger.Claim(ctx, key, "08:00-10:00", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.size())

	released, err := ledger.Release(ctx, key, "08:00-10:00")
	require.NoError(t, err)
	assert.True(t, released)
	assert.Zero(t, ledger.size())

	// a dropped cell is recreated on the next claim
	outcome, count, err := ledger.Claim(ctx, key, "10:30-12:30", 2)
	require.NoError(t, err)
	assert.Equal(t, domainRepo.ClaimGranted, outcome)
	assert.Equal(t, 1, count)

	require.NoError(t, ledger.Load(ctx, key, nil, time.Hour))
	assert.Zero(t, ledger.size())
}
