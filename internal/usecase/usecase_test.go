package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"go-cleaning-booking/internal/delivery/http/middleware"
	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/infrastructure/database"
	"go-cleaning-booking/internal/repository"
	"go-cleaning-booking/internal/service"

	"github.com/juju/clock/testclock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

const bookingDate = "2026-10-21"

type fixture struct {
	db        *gorm.DB
	clock     *testclock.Clock
	bookings  BookingUsecase
	providers ProviderUsecase
	audits    AuditLogUsecase
	allocator *service.ProviderAllocator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewSQLiteConnection(":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := logrus.New()
	log.SetOutput(io.Discard)

	clk := testclock.NewClock(testNow)
	rule := entity.DefaultBookingRule()

	providerRepo := repository.NewProviderRepository()
	bookingRepo := repository.NewBookingRepository()
	auditRepo := repository.NewAuditLogRepository()
	auditService := service.NewAuditService(log, auditRepo)

	store := service.NewAvailabilityStore(db, log, providerRepo, repository.NewMemoryCapacityLedger())
	matcher := service.NewAvailabilityMatcher(store, clk, log, nil, 4)
	allocator := service.NewProviderAllocator(store, clk, log, nil, service.AllocatorOptions{LockCleanupInterval: 24 * time.Hour})
	t.Cleanup(allocator.Stop)

	lifecycle := service.NewBookingLifecycle(db, log, clk, rule, bookingRepo, matcher, allocator,
		auditService, service.NewLogEventPublisher(log), nil)

	return &fixture{
		db:        db,
		clock:     clk,
		bookings:  NewBookingUsecase(db, log, clk, rule, bookingRepo, matcher, lifecycle, service.NewPostalCodeResolver()),
		providers: NewProviderUsecase(db, log, clk, rule, providerRepo, bookingRepo, store, allocator, auditService),
		audits:    NewAuditLogUsecase(db, log, auditRepo),
		allocator: allocator,
	}
}

func (f *fixture) seedProvider(t *testing.T, name string, max int, windows []string, areas ...string) *entity.Provider {
	t.Helper()

	provider := &entity.Provider{
		DisplayName:        name,
		WeeklyAvailability: datatypes.JSONSlice[string](windows),
		ServiceAreas:       datatypes.JSONSlice[string](areas),
		MaxDailyBookings:   max,
		IsActive:           true,
	}
	require.NoError(t, repository.NewProviderRepository().Create(f.db, provider))
	return provider
}

func asActor(subject string) context.Context {
	return context.WithValue(context.Background(), middleware.SubjectKey, subject)
}
