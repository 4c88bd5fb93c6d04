package repository

import (
	"testing"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.NewSQLiteConnection(":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedProvider(t *testing.T, db *gorm.DB, name string, windows ...string) *entity.Provider {
	t.Helper()

	provider := &entity.Provider{
		DisplayName:        name,
		WeeklyAvailability: datatypes.JSONSlice[string](windows),
		ServiceAreas:       datatypes.JSONSlice[string]{"00100"},
		MaxDailyBookings:   2,
		IsActive:           true,
	}
	require.NoError(t, NewProviderRepository().Create(db, provider))
	return provider
}

func seedBooking(t *testing.T, db *gorm.DB, date time.Time, slot string, status entity.BookingStatus, provider *entity.Provider) *entity.Booking {
	t.Helper()

	s, err := entity.ParseSlot(slot)
	require.NoError(t, err)

	booking := &entity.Booking{
		BookingCode:   "BK-TEST-" + uuid.NewString(),
		CustomerRef:   "cust-1",
		ServiceType:   "standard_clean",
		RequestedDate: date,
		DurationHours: decimal.NewFromFloat(2),
		Status:        status,
	}
	booking.SetSlot(s)
	if provider != nil {
		id := provider.ID
		booking.AssignedProviderID = &id
	}
	require.NoError(t, NewBookingRepository().Create(db, booking))
	return booking
}
