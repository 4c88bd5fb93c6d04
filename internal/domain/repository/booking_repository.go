package repository

import (
	"time"

	"go-cleaning-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HeldSlot is one capacity-holding booking projected onto its capacity cell
type HeldSlot struct {
	ProviderID    uuid.UUID
	RequestedDate time.Time
	SlotStart     string
	SlotEnd       string
}

type BookingRepository interface {
	Create(db *gorm.DB, booking *entity.Booking) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error)
	FindByCustomerRef(db *gorm.DB, customerRef string) ([]entity.Booking, error)
	// Transition persists booking's new state only if the stored status is still from.
	Transition(db *gorm.DB, booking *entity.Booking, from entity.BookingStatus) (int64, error)
	CountHeldByProviderAndDate(db *gorm.DB, providerID uuid.UUID, date time.Time) (int64, error)
	MaxHeldPerDate(db *gorm.DB, providerID uuid.UUID, from time.Time) (int64, error)
	FindHeldSlotsFrom(db *gorm.DB, from time.Time, offset, limit int) ([]HeldSlot, error)
}
