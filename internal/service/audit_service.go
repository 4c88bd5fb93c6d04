package service

import (
	"context"

	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditService interface {
	LogCreate(ctx context.Context, tx *gorm.DB, actor string, action string, entityType string, entityID string, newValue interface{}) error
	LogUpdate(ctx context.Context, tx *gorm.DB, actor string, action string, entityType string, entityID string, oldValue, newValue interface{}) error
	LogDelete(ctx context.Context, tx *gorm.DB, actor string, action string, entityType string, entityID string, oldValue interface{}) error
	// LogTransition records a booking status change inside the same transaction
	LogTransition(ctx context.Context, tx *gorm.DB, actor string, action string, booking *entity.Booking, from entity.BookingStatus) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogCreate logs a create action
func (s *auditService) LogCreate(ctx context.Context, tx *gorm.DB, actor string, action string, entityType string, entityID string, newValue interface{}) error {
	return s.write(ctx, tx, actor, action, entityType, entityID, nil, newValue)
}

// LogUpdate logs an update action with old and new values
func (s *auditService) LogUpdate(ctx context.Context, tx *gorm.DB, actor string, action string, entityType string, entityID string, oldValue, newValue interface{}) error {
	return s.write(ctx, tx, actor, action, entityType, entityID, oldValue, newValue)
}

// LogDelete logs a delete action with old value
func (s *auditService) LogDelete(ctx context.Context, tx *gorm.DB, actor string, action string, entityType string, entityID string, oldValue interface{}) error {
	return s.write(ctx, tx, actor, action, entityType, entityID, oldValue, nil)
}

func (s *auditService) LogTransition(ctx context.Context, tx *gorm.DB, actor string, action string, booking *entity.Booking, from entity.BookingStatus) error {
	newValue := map[string]interface{}{
		"status": booking.Status,
	}
	if booking.AssignedProviderID != nil {
		newValue["provider_id"] = booking.AssignedProviderID.String()
	}
	if booking.CancelReason != "" {
		newValue["cancel_reason"] = booking.CancelReason
	}

	return s.write(ctx, tx, actor, action, entity.AuditEntityBooking, booking.ID.String(),
		map[string]interface{}{"status": from}, newValue)
}

func (s *auditService) write(ctx context.Context, tx *gorm.DB, actor, action, entityType, entityID string, oldValue, newValue interface{}) error {
	if actor == "" {
		actor = entity.SystemActor
	}

	auditLog := &entity.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata: datatypes.JSONMap{
			"old_value": oldValue,
			"new_value": newValue,
		},
	}

	if err := s.auditRepo.Create(tx.WithContext(ctx), auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}
