package usecase

import (
	"context"
	"fmt"
	"time"

	"go-cleaning-booking/internal/converter"
	"go-cleaning-booking/internal/delivery/dto"
	"go-cleaning-booking/internal/delivery/http/middleware"
	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/domain/repository"
	"go-cleaning-booking/internal/service"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrCapacityBelowBookings = service.ErrCapacityBelowBookings

type ProviderUsecase interface {
	CreateProvider(ctx context.Context, req *dto.CreateProviderRequest) (*dto.ProviderResponse, error)
	GetProvider(ctx context.Context, providerID uuid.UUID) (*dto.ProviderResponse, error)
	GetAllProviders(ctx context.Context) (*dto.ProviderListResponse, error)
	UpdateProvider(ctx context.Context, providerID uuid.UUID, req *dto.UpdateProviderRequest) (*dto.ProviderResponse, error)
	BlockDate(ctx context.Context, providerID uuid.UUID, req *dto.BlockDateRequest) (*dto.ProviderResponse, error)
	UnblockDate(ctx context.Context, providerID uuid.UUID, date string) (*dto.ProviderResponse, error)
	GetCapacity(ctx context.Context, providerID uuid.UUID, date string) (*dto.ProviderCapacityResponse, error)
}

type providerUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	clock        clock.Clock
	rule         entity.BookingRule
	providerRepo repository.ProviderRepository
	bookingRepo  repository.BookingRepository
	store        *service.AvailabilityStore
	allocator    *service.ProviderAllocator
	auditService service.AuditService
}

func NewProviderUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	clk clock.Clock,
	rule entity.BookingRule,
	providerRepo repository.ProviderRepository,
	bookingRepo repository.BookingRepository,
	store *service.AvailabilityStore,
	allocator *service.ProviderAllocator,
	auditService service.AuditService,
) ProviderUsecase {
	return &providerUsecase{
		db:           db,
		log:          log,
		clock:        clk,
		rule:         rule,
		providerRepo: providerRepo,
		bookingRepo:  bookingRepo,
		store:        store,
		allocator:    allocator,
		auditService: auditService,
	}
}

func (u *providerUsecase) CreateProvider(ctx context.Context, req *dto.CreateProviderRequest) (*dto.ProviderResponse, error) {
	provider := &entity.Provider{
		DisplayName:        req.DisplayName,
		WeeklyAvailability: datatypes.JSONSlice[string](req.WeeklyAvailability),
		ServiceAreas:       normalizeAreas(req.ServiceAreas),
		MaxDailyBookings:   req.MaxDailyBookings,
		IsActive:           true,
	}
	if req.IsActive != nil {
		provider.IsActive = *req.IsActive
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.providerRepo.Create(tx, provider); err != nil {
		u.log.Warnf("Failed to create provider: %+v", err)
		return nil, err
	}

	newValue := converter.ProviderToResponse(provider)
	if err := u.auditService.LogCreate(ctx, tx, middleware.ActorFromContext(ctx), entity.AuditActionProviderCreate, entity.AuditEntityProvider, provider.ID.String(), newValue); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed to commit provider creation: %+v", err)
		return nil, err
	}

	u.log.Infof("Provider created: id=%s, name=%s", provider.ID, provider.DisplayName)
	return newValue, nil
}

func (u *providerUsecase) GetProvider(ctx context.Context, providerID uuid.UUID) (*dto.ProviderResponse, error) {
	provider, err := u.store.FindByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return converter.ProviderToResponse(provider), nil
}

func (u *providerUsecase) GetAllProviders(ctx context.Context) (*dto.ProviderListResponse, error) {
	providers, err := u.providerRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find all providers: %+v", err)
		return nil, err
	}

	return &dto.ProviderListResponse{
		Providers: converter.ProvidersToResponses(providers),
		Total:     len(providers),
	}, nil
}

// UpdateProvider applies the given fields. Lowering MaxDailyBookings below
// what any bookable day already holds is refused; existing reservations are
// never revoked by an update.
func (u *providerUsecase) UpdateProvider(ctx context.Context, providerID uuid.UUID, req *dto.UpdateProviderRequest) (*dto.ProviderResponse, error) {
	if req.MaxDailyBookings == nil {
		return u.updateProvider(ctx, providerID, req)
	}

	current, err := u.providerRepo.FindByID(u.db.WithContext(ctx), providerID)
	if err != nil {
		u.log.Warnf("Failed to find provider %s: %+v", providerID, err)
		return nil, err
	}
	if current == nil {
		return nil, service.ErrProviderNotFound
	}
	if *req.MaxDailyBookings >= current.MaxDailyBookings {
		return u.updateProvider(ctx, providerID, req)
	}

	// Lowering: hold every bookable day's key so no reservation slips in
	// between the check and the commit
	var updated *dto.ProviderResponse
	err = u.allocator.ChangeCapacity(ctx, providerID, u.bookableDates(), *req.MaxDailyBookings, func() error {
		var err error
		updated, err = u.updateProvider(ctx, providerID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (u *providerUsecase) updateProvider(ctx context.Context, providerID uuid.UUID, req *dto.UpdateProviderRequest) (*dto.ProviderResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	provider, err := u.providerRepo.FindByID(tx, providerID)
	if err != nil {
		u.log.Warnf("Failed to find provider %s: %+v", providerID, err)
		return nil, err
	}
	if provider == nil {
		return nil, service.ErrProviderNotFound
	}
	oldValue := converter.ProviderToResponse(provider)

	if req.DisplayName != nil {
		provider.DisplayName = *req.DisplayName
	}
	if req.WeeklyAvailability != nil {
		provider.WeeklyAvailability = datatypes.JSONSlice[string](req.WeeklyAvailability)
	}
	if req.ServiceAreas != nil {
		provider.ServiceAreas = normalizeAreas(req.ServiceAreas)
	}
	if req.IsActive != nil {
		provider.IsActive = *req.IsActive
	}
	if req.MaxDailyBookings != nil && *req.MaxDailyBookings < provider.MaxDailyBookings {
		// the ledger may lag committed bookings after a restart without sync
		busiest, err := u.bookingRepo.MaxHeldPerDate(tx, providerID, u.rule.Today(u.clock.Now()))
		if err != nil {
			u.log.Warnf("Failed to count held bookings for provider %s: %+v", providerID, err)
			return nil, err
		}
		if busiest > int64(*req.MaxDailyBookings) {
			return nil, fmt.Errorf("%w: %d held on the busiest day", ErrCapacityBelowBookings, busiest)
		}
	}
	if req.MaxDailyBookings != nil {
		provider.MaxDailyBookings = *req.MaxDailyBookings
	}

	if err := u.providerRepo.Update(tx, provider); err != nil {
		u.log.Warnf("Failed to update provider %s: %+v", providerID, err)
		return nil, err
	}

	newValue := converter.ProviderToResponse(provider)
	if err := u.auditService.LogUpdate(ctx, tx, middleware.ActorFromContext(ctx), entity.AuditActionProviderUpdate, entity.AuditEntityProvider, providerID.String(), oldValue, newValue); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed to commit provider update: %+v", err)
		return nil, err
	}

	return newValue, nil
}

// bookableDates lists today through the last day the advance window reaches
func (u *providerUsecase) bookableDates() []time.Time {
	today := u.rule.Today(u.clock.Now())
	dates := make([]time.Time, 0, u.rule.MaxAdvanceDays+1)
	for i := 0; i <= u.rule.MaxAdvanceDays; i++ {
		dates = append(dates, today.AddDate(0, 0, i))
	}
	return dates
}

func (u *providerUsecase) BlockDate(ctx context.Context, providerID uuid.UUID, req *dto.BlockDateRequest) (*dto.ProviderResponse, error) {
	date, err := entity.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	if _, err := u.allocator.BlockDate(ctx, providerID, date, req.Reason); err != nil {
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, u.db, middleware.ActorFromContext(ctx), entity.AuditActionProviderBlockDate, entity.AuditEntityProvider, providerID.String(), map[string]interface{}{
		"date":   entity.FormatDate(date),
		"reason": req.Reason,
	}); err != nil {
		u.log.Warnf("Failed to audit blocked date for provider %s (non-fatal): %+v", providerID, err)
	}

	return u.GetProvider(ctx, providerID)
}

func (u *providerUsecase) UnblockDate(ctx context.Context, providerID uuid.UUID, date string) (*dto.ProviderResponse, error) {
	day, err := entity.ParseDate(date)
	if err != nil {
		return nil, err
	}

	if err := u.allocator.UnblockDate(ctx, providerID, day); err != nil {
		return nil, err
	}

	if err := u.auditService.LogDelete(ctx, u.db, middleware.ActorFromContext(ctx), entity.AuditActionProviderUnblockDate, entity.AuditEntityProvider, providerID.String(), map[string]interface{}{
		"date": entity.FormatDate(day),
	}); err != nil {
		u.log.Warnf("Failed to audit unblocked date for provider %s (non-fatal): %+v", providerID, err)
	}

	return u.GetProvider(ctx, providerID)
}

func (u *providerUsecase) GetCapacity(ctx context.Context, providerID uuid.UUID, date string) (*dto.ProviderCapacityResponse, error) {
	day, err := entity.ParseDate(date)
	if err != nil {
		return nil, err
	}

	provider, err := u.store.FindByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	booked, err := u.store.CurrentBookingCount(ctx, providerID, day)
	if err != nil {
		return nil, err
	}

	remaining := provider.MaxDailyBookings - booked
	if remaining < 0 {
		remaining = 0
	}

	return &dto.ProviderCapacityResponse{
		ProviderID:       providerID,
		Date:             entity.FormatDate(day),
		MaxDailyBookings: provider.MaxDailyBookings,
		Booked:           booked,
		Remaining:        remaining,
		Blocked:          provider.IsBlockedOn(day),
	}, nil
}

func normalizeAreas(areas []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(areas))
	for _, area := range areas {
		if code := entity.NormalizePostalCode(area); code != "" {
			out = append(out, code)
		}
	}
	return out
}
