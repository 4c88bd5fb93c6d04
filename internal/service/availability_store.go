package service

import (
	"context"
	"fmt"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AvailabilityStore answers provider questions for the matcher and the
// allocator. Provider records come from the database; per-date usage comes
// from the capacity ledger. Capacity is only changed through
// ProviderAllocator, which serializes callers per (provider, date).
type AvailabilityStore struct {
	db           *gorm.DB
	log          *logrus.Logger
	providerRepo repository.ProviderRepository
	ledger       repository.CapacityLedger
}

func NewAvailabilityStore(db *gorm.DB, log *logrus.Logger, providerRepo repository.ProviderRepository, ledger repository.CapacityLedger) *AvailabilityStore {
	return &AvailabilityStore{
		db:           db,
		log:          log,
		providerRepo: providerRepo,
		ledger:       ledger,
	}
}

// FindByID returns the provider with its blocked dates, or ErrProviderNotFound
func (s *AvailabilityStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	provider, err := s.providerRepo.FindByID(s.db.WithContext(ctx), id)
	if err != nil {
		s.log.Warnf("Failed to find provider %s: %+v", id, err)
		return nil, err
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}
	return provider, nil
}

// ListAll returns every active provider ordered by id
func (s *AvailabilityStore) ListAll(ctx context.Context) ([]entity.Provider, error) {
	providers, err := s.providerRepo.FindAllActive(s.db.WithContext(ctx))
	if err != nil {
		s.log.Warnf("Failed to list providers: %+v", err)
		return nil, err
	}
	return providers, nil
}

func (s *AvailabilityStore) IsBlocked(ctx context.Context, providerID uuid.UUID, date time.Time) (bool, error) {
	provider, err := s.FindByID(ctx, providerID)
	if err != nil {
		return false, err
	}
	return provider.IsBlockedOn(date), nil
}

// CoversSlot reports whether the slot label is one of the provider's weekly windows
func (s *AvailabilityStore) CoversSlot(ctx context.Context, providerID uuid.UUID, slot entity.Slot) (bool, error) {
	provider, err := s.FindByID(ctx, providerID)
	if err != nil {
		return false, err
	}
	return provider.HasWindow(slot.Label()), nil
}

func (s *AvailabilityStore) CurrentBookingCount(ctx context.Context, providerID uuid.UUID, date time.Time) (int, error) {
	count, err := s.ledger.Count(ctx, entity.NewCapacityKey(providerID, date))
	if err != nil {
		s.log.Warnf("Failed to read capacity for provider %s on %s: %+v", providerID, entity.FormatDate(date), err)
		return 0, err
	}
	return count, nil
}

// HoldsSlot reports whether the provider already has the slot on date
func (s *AvailabilityStore) HoldsSlot(ctx context.Context, providerID uuid.UUID, date time.Time, slot entity.Slot) (bool, error) {
	held, err := s.ledger.Holds(ctx, entity.NewCapacityKey(providerID, date), slot.Label())
	if err != nil {
		s.log.Warnf("Failed to read held slots for provider %s on %s: %+v", providerID, entity.FormatDate(date), err)
		return false, err
	}
	return held, nil
}

// IncrementBookingCount takes one unit of the provider's capacity on date for
// slot. Going past MaxDailyBookings is an invariant breach: it is logged and
// reported as ErrCapacityExceeded without changing the count.
func (s *AvailabilityStore) IncrementBookingCount(ctx context.Context, provider *entity.Provider, date time.Time, slot entity.Slot) error {
	key := entity.NewCapacityKey(provider.ID, date)

	outcome, count, err := s.ledger.Claim(ctx, key, slot.Label(), provider.MaxDailyBookings)
	if err != nil {
		s.log.Warnf("Failed to claim capacity for %s: %+v", key, err)
		return fmt.Errorf("claim capacity for %s: %w", key, err)
	}

	switch outcome {
	case repository.ClaimCapacityFull:
		s.log.Errorf("CRITICAL: capacity increment refused for %s, provider limit %d reached", key, provider.MaxDailyBookings)
		return ErrCapacityExceeded
	case repository.ClaimSlotTaken:
		return ErrSlotAlreadyHeld
	}

	s.log.Debugf("Claimed %s for %s: count=%d", slot.Label(), key, count)
	return nil
}

// DecrementBookingCount returns the slot's unit. Releasing a slot that is not
// held is logged and otherwise ignored, so the count never goes below zero.
func (s *AvailabilityStore) DecrementBookingCount(ctx context.Context, providerID uuid.UUID, date time.Time, slot entity.Slot) error {
	key := entity.NewCapacityKey(providerID, date)

	released, err := s.ledger.Release(ctx, key, slot.Label())
	if err != nil {
		s.log.Warnf("Failed to release capacity for %s: %+v", key, err)
		return fmt.Errorf("release capacity for %s: %w", key, err)
	}
	if !released {
		s.log.Warnf("Release of %s for %s found nothing held", slot.Label(), key)
	}
	return nil
}

func (s *AvailabilityStore) addBlockedDate(ctx context.Context, providerID uuid.UUID, date time.Time, reason string) (*entity.ProviderBlockedDate, error) {
	blocked := &entity.ProviderBlockedDate{
		ProviderID: providerID,
		Date:       datatypes.Date(entity.NormalizeDate(date)),
		Reason:     reason,
	}
	if err := s.providerRepo.AddBlockedDate(s.db.WithContext(ctx), blocked); err != nil {
		s.log.Warnf("Failed to block %s for provider %s: %+v", entity.FormatDate(date), providerID, err)
		return nil, err
	}
	return blocked, nil
}

func (s *AvailabilityStore) removeBlockedDate(ctx context.Context, providerID uuid.UUID, date time.Time) (bool, error) {
	rows, err := s.providerRepo.RemoveBlockedDate(s.db.WithContext(ctx), providerID, date)
	if err != nil {
		s.log.Warnf("Failed to unblock %s for provider %s: %+v", entity.FormatDate(date), providerID, err)
		return false, err
	}
	return rows > 0, nil
}
