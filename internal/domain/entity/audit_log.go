package entity

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog represents a system audit trail entry
type AuditLog struct {
	ID         int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	Actor      string            `gorm:"type:varchar(255);index" json:"actor,omitempty"`
	Action     string            `gorm:"type:varchar(100);not null;index" json:"action"`
	EntityType string            `gorm:"type:varchar(50);not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   string            `gorm:"type:varchar(64);not null;index:idx_audit_entity" json:"entity_id"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audited entity types
const (
	AuditEntityBooking  = "booking"
	AuditEntityProvider = "provider"
)

// Common audit actions
const (
	AuditActionBookingCreate       = "booking.create"
	AuditActionBookingConfirm      = "booking.confirm"
	AuditActionBookingStart        = "booking.start"
	AuditActionBookingComplete     = "booking.complete"
	AuditActionBookingCancel       = "booking.cancel"
	AuditActionProviderCreate      = "provider.create"
	AuditActionProviderUpdate      = "provider.update"
	AuditActionProviderBlockDate   = "provider.block_date"
	AuditActionProviderUnblockDate = "provider.unblock_date"
)

// SystemActor is recorded when no authenticated caller is attached to the request
const SystemActor = "system"
