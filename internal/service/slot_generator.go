package service

import (
	"fmt"
	"time"

	"go-cleaning-booking/internal/domain/entity"
)

// GenerateSlots returns the ordered slots of rule for date. A cursor starts
// at the opening time, each step emits [cursor, cursor+slot) and advances by
// slot+break; a slot that would end after closing is dropped, never
// shortened. The result depends only on its inputs.
func GenerateSlots(date time.Time, rule entity.BookingRule) []entity.Slot {
	if rule.SlotDurationMinutes <= 0 || rule.BreakDurationMinutes < 0 {
		return []entity.Slot{}
	}

	step := rule.SlotDurationMinutes + rule.BreakDurationMinutes
	span := int(rule.WorkingHoursEnd - rule.WorkingHoursStart)
	if span < rule.SlotDurationMinutes {
		return []entity.Slot{}
	}

	slots := make([]entity.Slot, 0, span/step+1)
	for cursor := rule.WorkingHoursStart; cursor.Add(rule.SlotDurationMinutes) <= rule.WorkingHoursEnd; cursor = cursor.Add(step) {
		slots = append(slots, entity.NewSlot(cursor, rule.SlotDurationMinutes))
	}
	return slots
}

// ValidateSlot returns ErrInvalidSlot unless slot is generated for date under rule
func ValidateSlot(date time.Time, rule entity.BookingRule, slot entity.Slot) error {
	for _, s := range GenerateSlots(date, rule) {
		if s == slot {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidSlot, slot.Label())
}
