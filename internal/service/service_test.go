package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	domainRepo "go-cleaning-booking/internal/domain/repository"
	"go-cleaning-booking/internal/infrastructure/database"
	"go-cleaning-booking/internal/repository"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testNow     = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	bookingDate = time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)
)

// Weekly windows of the three reference providers
var (
	windowsP1 = []string{"08:00-10:00", "10:30-12:30", "14:00-16:00", "16:30-18:30"}
	windowsP2 = []string{"09:00-11:00", "11:30-13:30", "15:00-17:00", "17:30-19:30"}
	windowsP3 = []string{"08:30-10:30", "11:00-13:00", "14:30-16:30", "17:00-19:00"}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event entity.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []entity.BookingEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entity.BookingEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	db          *gorm.DB
	log         *logrus.Logger
	clock       *testclock.Clock
	rule        entity.BookingRule
	ledger      domainRepo.CapacityLedger
	bookingRepo domainRepo.BookingRepository
	auditRepo   domainRepo.AuditLogRepository
	store       *AvailabilityStore
	matcher     *AvailabilityMatcher
	allocator   *ProviderAllocator
	publisher   *recordingPublisher
	lifecycle   *BookingLifecycle
}

func newTestEnv(t *testing.T) *testEnv {
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

	env := &testEnv{
		db:          db,
		log:         log,
		clock:       testclock.NewClock(testNow),
		rule:        entity.DefaultBookingRule(),
		ledger:      repository.NewMemoryCapacityLedger(),
		bookingRepo: repository.NewBookingRepository(),
		auditRepo:   repository.NewAuditLogRepository(),
		publisher:   &recordingPublisher{},
	}

	env.store = NewAvailabilityStore(db, log, repository.NewProviderRepository(), env.ledger)
	env.matcher = NewAvailabilityMatcher(env.store, env.clock, log, nil, 4)
	env.allocator = NewProviderAllocator(env.store, env.clock, log, nil, AllocatorOptions{LockCleanupInterval: 24 * time.Hour})
	t.Cleanup(env.allocator.Stop)

	env.lifecycle = NewBookingLifecycle(db, log, env.clock, env.rule, env.bookingRepo, env.matcher, env.allocator,
		NewAuditService(log, env.auditRepo), env.publisher, nil)
	return env
}

func (e *testEnv) seedProvider(t *testing.T, name string, max int, windows []string, areas ...string) *entity.Provider {
	t.Helper()

	provider := &entity.Provider{
		DisplayName:        name,
		WeeklyAvailability: datatypes.JSONSlice[string](windows),
		ServiceAreas:       datatypes.JSONSlice[string](areas),
		MaxDailyBookings:   max,
		IsActive:           true,
	}
	require.NoError(t, repository.NewProviderRepository().Create(e.db, provider))
	return provider
}

func (e *testEnv) seedReferenceProviders(t *testing.T) (*entity.Provider, *entity.Provider, *entity.Provider) {
	t.Helper()
	return e.seedProvider(t, "Provider 1", 3, windowsP1, "00100"),
		e.seedProvider(t, "Provider 2", 3, windowsP2, "00100"),
		e.seedProvider(t, "Provider 3", 3, windowsP3, "00200")
}

func (e *testEnv) createPending(t *testing.T, slot string) *entity.Booking {
	t.Helper()

	s := mustSlot(t, slot)
	booking := &entity.Booking{
		BookingCode:   "BK-TEST-" + uuid.NewString(),
		CustomerRef:   "cust-1",
		ServiceType:   "standard_clean",
		RequestedDate: bookingDate,
		DurationHours: decimal.NewFromInt(2),
		PostalCode:    "00100",
	}
	booking.SetSlot(s)
	require.NoError(t, e.lifecycle.Create(context.Background(), "tester", booking))
	return booking
}

func mustSlot(t *testing.T, label string) entity.Slot {
	t.Helper()
	s, err := entity.ParseSlot(label)
	require.NoError(t, err)
	return s
}
