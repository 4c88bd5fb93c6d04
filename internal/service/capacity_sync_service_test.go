package service

import (
	"context"
	"testing"

	"go-cleaning-booking/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacitySyncService_RebuildsLedgerFromBookings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p1, _, _ := env.seedReferenceProviders(t)

	first := env.createPending(t, "08:00-10:00")
	second := env.createPending(t, "10:30-12:30")
	cancelled := env.createPending(t, "08:00-10:00")
	for _, b := range []*entity.Booking{first, second} {
		_, err := env.lifecycle.Confirm(ctx, "tester", b.ID, &p1.ID, nil)
		require.NoError(t, err)
	}
	_, err := env.lifecycle.Cancel(ctx, "tester", cancelled.ID, "")
	require.NoError(t, err)

	// Simulate a lost ledger, e.g. a Redis restart
	key := entity.NewCapacityKey(p1.ID, bookingDate)
	require.NoError(t, env.ledger.Load(ctx, key, nil, 0))
	require.Zero(t, env.count(t, p1.ID))

	syncer := NewCapacitySyncService(env.db, env.log, env.clock, env.rule, env.bookingRepo, env.ledger)
	synced, err := syncer.SyncOnStartup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	assert.Equal(t, 2, env.count(t, p1.ID))
	held, err := env.ledger.Holds(ctx, key, "10:30-12:30")
	require.NoError(t, err)
	assert.True(t, held)
}

func TestCapacitySyncService_NothingToSync(t *testing.T) {
	env := newTestEnv(t)
	syncer := NewCapacitySyncService(env.db, env.log, env.clock, env.rule, env.bookingRepo, env.ledger)

	synced, err := syncer.SyncOnStartup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, synced)
}
