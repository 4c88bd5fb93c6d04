package repository

import (
	"errors"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	domainRepo "go-cleaning-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type bookingRepository struct{}

func NewBookingRepository() domainRepo.BookingRepository {
	return &bookingRepository{}
}

func (r *bookingRepository) Create(db *gorm.DB, booking *entity.Booking) error {
	return db.Omit("AssignedProvider").Create(booking).Error
}

func (r *bookingRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	var booking entity.Booking
	err := db.Preload("AssignedProvider").Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByCustomerRef(db *gorm.DB, customerRef string) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := db.Preload("AssignedProvider").
		Where("customer_ref = ?", customerRef).
		Order("requested_date DESC, slot_start DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// Transition writes the lifecycle columns of booking ONLY if the stored status
// still equals from. Returns affected rows: 1 = applied, 0 = someone else moved it first.
func (r *bookingRepository) Transition(db *gorm.DB, booking *entity.Booking, from entity.BookingStatus) (int64, error) {
	result := db.Model(&entity.Booking{}).
		Where("id = ? AND status = ?", booking.ID, from).
		Updates(map[string]interface{}{
			"status":               booking.Status,
			"assigned_provider_id": booking.AssignedProviderID,
			"reservation_id":       booking.ReservationID,
			"cancel_reason":        booking.CancelReason,
			"confirmed_at":         booking.ConfirmedAt,
			"started_at":           booking.StartedAt,
			"completed_at":         booking.CompletedAt,
			"cancelled_at":         booking.CancelledAt,
		})
	return result.RowsAffected, result.Error
}

func (r *bookingRepository) CountHeldByProviderAndDate(db *gorm.DB, providerID uuid.UUID, date time.Time) (int64, error) {
	var count int64
	err := db.Model(&entity.Booking{}).
		Where("assigned_provider_id = ? AND requested_date = ? AND status IN ?",
			providerID, entity.NormalizeDate(date), entity.CapacityHoldingStatuses).
		Count(&count).Error
	return count, err
}

// MaxHeldPerDate returns the busiest day's held count for a provider from the given date on
func (r *bookingRepository) MaxHeldPerDate(db *gorm.DB, providerID uuid.UUID, from time.Time) (int64, error) {
	perDay := db.Model(&entity.Booking{}).
		Select("requested_date, COUNT(*) AS held").
		Where("assigned_provider_id = ? AND requested_date >= ? AND status IN ?",
			providerID, entity.NormalizeDate(from), entity.CapacityHoldingStatuses).
		Group("requested_date")

	var max int64
	err := db.Table("(?) AS per_day", perDay).
		Select("COALESCE(MAX(held), 0)").
		Scan(&max).Error
	return max, err
}

// FindHeldSlotsFrom pages through capacity-holding bookings, grouped by capacity cell
func (r *bookingRepository) FindHeldSlotsFrom(db *gorm.DB, from time.Time, offset, limit int) ([]domainRepo.HeldSlot, error) {
	var rows []domainRepo.HeldSlot
	err := db.Model(&entity.Booking{}).
		Select("assigned_provider_id AS provider_id, requested_date, slot_start, slot_end").
		Where("assigned_provider_id IS NOT NULL AND requested_date >= ? AND status IN ?",
			entity.NormalizeDate(from), entity.CapacityHoldingStatuses).
		Order("assigned_provider_id, requested_date, id").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
