package repository

import (
	"context"
	"time"

	"go-cleaning-booking/internal/domain/entity"
)

// ClaimOutcome is the result of a conditional capacity claim
type ClaimOutcome int

const (
	ClaimGranted ClaimOutcome = iota
	ClaimCapacityFull
	ClaimSlotTaken
)

func (o ClaimOutcome) String() string {
	switch o {
	case ClaimGranted:
		return "granted"
	case ClaimCapacityFull:
		return "capacity_full"
	case ClaimSlotTaken:
		return "slot_taken"
	}
	return "unknown"
}

// CapacityLedger holds, per (provider, date), the number of capacity units
// in use and the slot labels they were taken for. Claim and Release are
// atomic per key.
type CapacityLedger interface {
	Count(ctx context.Context, key entity.CapacityKey) (int, error)
	Holds(ctx context.Context, key entity.CapacityKey, slotLabel string) (bool, error)
	// Claim adds slotLabel to key when the count is below ceiling and the
	// label is not already held.
	Claim(ctx context.Context, key entity.CapacityKey, slotLabel string, ceiling int) (ClaimOutcome, int, error)
	// Release removes slotLabel from key. It reports false when the label was not held.
	Release(ctx context.Context, key entity.CapacityKey, slotLabel string) (bool, error)
	// Load overwrites the cell for key with the given held labels.
	Load(ctx context.Context, key entity.CapacityKey, slotLabels []string, ttl time.Duration) error
}
