package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// Interval for cleaning up stale key mutexes
	defaultLockCleanupInterval = 10 * time.Minute

	// How long a key mutex must be unused before cleanup
	defaultLockStaleThreshold = 10 * time.Minute
)

// Reservation outcomes reported to metrics
const (
	reservationGranted  = "granted"
	reservationConflict = "conflict"
	reservationError    = "error"
)

// =============================================================================
// Types
// =============================================================================

// ProviderAllocator is the only path that changes provider capacity.
//
// Reserve, BlockDate and UnblockDate for the same (provider, date) key are
// serialized by a per-key mutex; different keys never contend. The capacity
// ledger claim is itself conditional, so two processes sharing a Redis
// ledger still cannot push a provider past its ceiling.
//
// Lock Ordering:
// 1. Acquire key mutex FIRST
// 2. Then read the provider and the ledger
// 3. Then claim
type ProviderAllocator struct {
	store   *AvailabilityStore
	clock   clock.Clock
	log     *logrus.Logger
	metrics *metrics.Recorder

	cleanupInterval time.Duration
	staleThreshold  time.Duration

	// Per-(provider, date) mutex
	keyMu sync.Map // map[string]*mutexWithTimestamp

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

type AllocatorOptions struct {
	LockCleanupInterval time.Duration
	LockStaleThreshold  time.Duration
}

// =============================================================================
// Constructor
// =============================================================================

// NewProviderAllocator starts the background mutex cleanup.
// Call Stop() during graceful shutdown.
func NewProviderAllocator(store *AvailabilityStore, clk clock.Clock, log *logrus.Logger, recorder *metrics.Recorder, opts AllocatorOptions) *ProviderAllocator {
	if opts.LockCleanupInterval <= 0 {
		opts.LockCleanupInterval = defaultLockCleanupInterval
	}
	if opts.LockStaleThreshold <= 0 {
		opts.LockStaleThreshold = defaultLockStaleThreshold
	}

	a := &ProviderAllocator{
		store:           store,
		clock:           clk,
		log:             log,
		metrics:         recorder,
		cleanupInterval: opts.LockCleanupInterval,
		staleThreshold:  opts.LockStaleThreshold,
		stopChan:        make(chan struct{}),
	}

	a.wg.Add(1)
	go a.cleanupMutexMapLoop()

	return a
}

// Stop gracefully shuts down the allocator.
// Safe to call multiple times.
func (a *ProviderAllocator) Stop() {
	if a.stopped.CompareAndSwap(false, true) {
		close(a.stopChan)
		a.wg.Wait()
		a.log.Info("ProviderAllocator stopped")
	}
}

// =============================================================================
// Public Methods
// =============================================================================

// Reserve claims one unit of the provider's capacity on date for slot.
// Every eligibility condition is checked again under the key lock; any
// failure is ErrAllocationConflict and leaves the count unchanged.
func (a *ProviderAllocator) Reserve(ctx context.Context, providerID uuid.UUID, date time.Time, slot entity.Slot) (*entity.Reservation, error) {
	key := entity.NewCapacityKey(providerID, date)

	mt := a.getKeyMutex(key)
	mt.mu.Lock()
	defer mt.mu.Unlock()

	provider, err := a.store.FindByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, a.conflict(key, "provider not found")
		}
		a.metrics.ObserveReservation(reservationError)
		return nil, err
	}

	if !provider.IsActive {
		return nil, a.conflict(key, "provider inactive")
	}
	if !provider.HasWindow(slot.Label()) {
		return nil, a.conflict(key, "slot "+slot.Label()+" outside weekly availability")
	}
	if provider.IsBlockedOn(date) {
		return nil, a.conflict(key, "date blocked")
	}

	count, err := a.store.CurrentBookingCount(ctx, providerID, date)
	if err != nil {
		a.metrics.ObserveReservation(reservationError)
		return nil, err
	}
	if count >= provider.MaxDailyBookings {
		return nil, a.conflict(key, fmt.Sprintf("capacity %d/%d", count, provider.MaxDailyBookings))
	}

	if err := a.store.IncrementBookingCount(ctx, provider, date, slot); err != nil {
		// The ledger is shared across processes; losing its conditional
		// claim means another instance reserved first.
		if errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrSlotAlreadyHeld) {
			return nil, a.conflict(key, err.Error())
		}
		a.metrics.ObserveReservation(reservationError)
		return nil, err
	}

	res := &entity.Reservation{
		ID:         uuid.New(),
		ProviderID: providerID,
		Date:       key.Date,
		Slot:       slot,
		ReservedAt: a.clock.Now(),
	}

	a.metrics.ObserveReservation(reservationGranted)
	a.log.Debugf("Reserved %s for %s (reservation %s)", slot.Label(), key, res.ID)
	return res, nil
}

// Release returns the reservation's unit to the provider. It does not take
// the key mutex: a decrement can never break the ceiling, and the ledger
// release is atomic on its own.
func (a *ProviderAllocator) Release(ctx context.Context, res *entity.Reservation) error {
	if res == nil {
		return nil
	}

	if err := a.store.DecrementBookingCount(ctx, res.ProviderID, res.Date, res.Slot); err != nil {
		return err
	}

	a.metrics.ObserveRelease()
	a.log.Debugf("Released %s for %s", res.Slot.Label(), res.Key())
	return nil
}

// BlockDate marks date unavailable for the provider. Blocking a date that
// still carries reservations is refused with ErrProviderHasBookings.
// Blocking an already blocked date returns the existing entry.
func (a *ProviderAllocator) BlockDate(ctx context.Context, providerID uuid.UUID, date time.Time, reason string) (*entity.ProviderBlockedDate, error) {
	key := entity.NewCapacityKey(providerID, date)

	mt := a.getKeyMutex(key)
	mt.mu.Lock()
	defer mt.mu.Unlock()

	provider, err := a.store.FindByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	for i := range provider.BlockedDates {
		if entity.NormalizeDate(time.Time(provider.BlockedDates[i].Date)).Equal(key.Date) {
			return &provider.BlockedDates[i], nil
		}
	}

	count, err := a.store.CurrentBookingCount(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		a.log.Warnf("Refusing to block %s: %d reservations held", key, count)
		return nil, ErrProviderHasBookings
	}

	blocked, err := a.store.addBlockedDate(ctx, providerID, date, reason)
	if err != nil {
		return nil, err
	}

	a.log.Infof("Blocked %s", key)
	return blocked, nil
}

// UnblockDate makes a blocked date available again
func (a *ProviderAllocator) UnblockDate(ctx context.Context, providerID uuid.UUID, date time.Time) error {
	key := entity.NewCapacityKey(providerID, date)

	mt := a.getKeyMutex(key)
	mt.mu.Lock()
	defer mt.mu.Unlock()

	removed, err := a.store.removeBlockedDate(ctx, providerID, date)
	if err != nil {
		return err
	}
	if !removed {
		return ErrBlockedDateNotFound
	}

	a.log.Infof("Unblocked %s", key)
	return nil
}

// ChangeCapacity runs apply while holding the key locks of every date in
// dates, once the ledger shows no date holding more than max units.
// Reservations on those dates wait for apply and then see the new ceiling.
func (a *ProviderAllocator) ChangeCapacity(ctx context.Context, providerID uuid.UUID, dates []time.Time, max int, apply func() error) error {
	keys := make([]entity.CapacityKey, 0, len(dates))
	for _, date := range dates {
		keys = append(keys, entity.NewCapacityKey(providerID, date))
	}
	// ascending order, so two capacity changes never wait on each other in a cycle
	slices.SortFunc(keys, func(x, y entity.CapacityKey) int { return x.Date.Compare(y.Date) })
	keys = slices.CompactFunc(keys, func(x, y entity.CapacityKey) bool { return x.Date.Equal(y.Date) })

	for _, key := range keys {
		mt := a.getKeyMutex(key)
		mt.mu.Lock()
		defer mt.mu.Unlock()
	}

	for _, key := range keys {
		count, err := a.store.CurrentBookingCount(ctx, providerID, key.Date)
		if err != nil {
			return err
		}
		if count > max {
			a.log.Warnf("Refusing capacity %d for %s: %d units held", max, key, count)
			return fmt.Errorf("%w: %d held on %s", ErrCapacityBelowBookings, count, entity.FormatDate(key.Date))
		}
	}

	return apply()
}

// =============================================================================
// Private Helper Methods
// =============================================================================

func (a *ProviderAllocator) conflict(key entity.CapacityKey, reason string) error {
	a.metrics.ObserveReservation(reservationConflict)
	a.log.Debugf("Reservation conflict for %s: %s", key, reason)
	return fmt.Errorf("%w: %s", ErrAllocationConflict, reason)
}

// getKeyMutex returns the mutex for a (provider, date) key
func (a *ProviderAllocator) getKeyMutex(key entity.CapacityKey) *mutexWithTimestamp {
	mt, _ := a.keyMu.LoadOrStore(key.String(), &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(a.clock.Now().Unix())
	return result
}

// cleanupMutexMapLoop runs in background to clean stale mutexes
func (a *ProviderAllocator) cleanupMutexMapLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.stopChan:
			a.log.Debug("Mutex cleanup goroutine stopping")
			return
		case <-a.clock.After(a.cleanupInterval):
			a.cleanupStaleMutexes()
		}
	}
}

// cleanupStaleMutexes removes unused mutexes using TryLock for safety.
// lastUsed is checked inside the lock. A caller still holding a mutex that
// was just dropped can overlap with a fresh one; the conditional ledger
// claim keeps capacity correct in that window.
func (a *ProviderAllocator) cleanupStaleMutexes() int {
	cutoffTime := a.clock.Now().Add(-a.staleThreshold).Unix()
	var cleaned int

	a.keyMu.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffTime {
				a.keyMu.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		a.log.Debugf("Cleaned up %d stale mutexes", cleaned)
	}
	return cleaned
}
