package service

import (
	"testing"
	"time"

	"go-cleaning-booking/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)

func labels(slots []entity.Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Label()
	}
	return out
}

func TestGenerateSlots_DefaultRule(t *testing.T) {
	slots := GenerateSlots(testDate, entity.DefaultBookingRule())

	assert.Equal(t, []string{
		"08:00-10:00",
		"10:30-12:30",
		"13:00-15:00",
		"15:30-17:30",
		"18:00-20:00",
	}, labels(slots))
}

func TestGenerateSlots_DropsTrailingPartialSlot(t *testing.T) {
	rule := entity.DefaultBookingRule()
	rule.WorkingHoursEnd = entity.NewTimeOfDay(19, 0)

	slots := GenerateSlots(testDate, rule)
	require.Len(t, slots, 4)
	assert.Equal(t, "15:30-17:30", slots[3].Label())
}

func TestGenerateSlots_EmptyWhenSlotLongerThanDay(t *testing.T) {
	rule := entity.DefaultBookingRule()
	rule.WorkingHoursStart = entity.NewTimeOfDay(9, 0)
	rule.WorkingHoursEnd = entity.NewTimeOfDay(10, 0)

	slots := GenerateSlots(testDate, rule)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestGenerateSlots_Properties(t *testing.T) {
	for start := 0; start <= 12*60; start += 45 {
		for span := 30; span <= 14*60; span += 55 {
			for _, slotLen := range []int{15, 30, 60, 90, 120, 240} {
				for _, breakLen := range []int{0, 10, 30} {
					rule := entity.DefaultBookingRule()
					rule.WorkingHoursStart = entity.TimeOfDay(start)
					rule.WorkingHoursEnd = entity.TimeOfDay(start + span)
					rule.SlotDurationMinutes = slotLen
					rule.BreakDurationMinutes = breakLen

					first := GenerateSlots(testDate, rule)
					second := GenerateSlots(testDate, rule)
					require.Equal(t, first, second, "generation is repeatable")

					want := 0
					if span >= slotLen {
						want = (span-slotLen)/(slotLen+breakLen) + 1
					}
					require.Len(t, first, want, "rule %+v", rule)

					for i, s := range first {
						require.True(t, s.Within(rule.WorkingHoursStart, rule.WorkingHoursEnd))
						require.Equal(t, slotLen, s.DurationMinutes())
						if i > 0 {
							require.Equal(t, slotLen+breakLen, int(s.Start-first[i-1].Start))
						}
					}
				}
			}
		}
	}
}

func TestValidateSlot(t *testing.T) {
	rule := entity.DefaultBookingRule()

	ok, err := entity.ParseSlot("13:00-15:00")
	require.NoError(t, err)
	assert.NoError(t, ValidateSlot(testDate, rule, ok))

	for _, label := range []string{"14:00-16:00", "08:00-09:00", "19:00-21:00"} {
		s, err := entity.ParseSlot(label)
		require.NoError(t, err)
		assert.ErrorIs(t, ValidateSlot(testDate, rule, s), ErrInvalidSlot, label)
	}
}
