package repository

import (
	"context"
	"sync"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	domainRepo "go-cleaning-booking/internal/domain/repository"
)

// memoryCapacityLedger keeps capacity cells in process memory. Each cell has
// its own mutex so unrelated keys never contend.
type memoryCapacityLedger struct {
	cells sync.Map // map[string]*ledgerCell
}

type ledgerCell struct {
	mu    sync.Mutex
	slots map[string]struct{}
	// set once the cell is emptied and dropped from the map; holders retry
	removed bool
}

func NewMemoryCapacityLedger() domainRepo.CapacityLedger {
	return &memoryCapacityLedger{}
}

// lockedCell returns the live cell for key, creating it if needed, with its mutex held
func (l *memoryCapacityLedger) lockedCell(key entity.CapacityKey) *ledgerCell {
	for {
		c, _ := l.cells.LoadOrStore(key.String(), &ledgerCell{slots: make(map[string]struct{})})
		cell := c.(*ledgerCell)
		cell.mu.Lock()
		if !cell.removed {
			return cell
		}
		cell.mu.Unlock()
	}
}

// existingCell returns the cell for key without creating one
func (l *memoryCapacityLedger) existingCell(key entity.CapacityKey) (*ledgerCell, bool) {
	c, ok := l.cells.Load(key.String())
	if !ok {
		return nil, false
	}
	return c.(*ledgerCell), true
}

// dropIfEmpty removes an empty cell; c.mu must be held
func (l *memoryCapacityLedger) dropIfEmpty(key entity.CapacityKey, c *ledgerCell) {
	if len(c.slots) > 0 {
		return
	}
	c.removed = true
	l.cells.CompareAndDelete(key.String(), c)
}

func (l *memoryCapacityLedger) Count(ctx context.Context, key entity.CapacityKey) (int, error) {
	c, ok := l.existingCell(key)
	if !ok {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots), nil
}

func (l *memoryCapacityLedger) Holds(ctx context.Context, key entity.CapacityKey, slotLabel string) (bool, error) {
	c, ok := l.existingCell(key)
	if !ok {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, held := c.slots[slotLabel]
	return held, nil
}

func (l *memoryCapacityLedger) Claim(ctx context.Context, key entity.CapacityKey, slotLabel string, ceiling int) (domainRepo.ClaimOutcome, int, error) {
	c := l.lockedCell(key)
	defer c.mu.Unlock()

	if _, ok := c.slots[slotLabel]; ok {
		return domainRepo.ClaimSlotTaken, len(c.slots), nil
	}
	if len(c.slots) >= ceiling {
		l.dropIfEmpty(key, c)
		return domainRepo.ClaimCapacityFull, len(c.slots), nil
	}

	c.slots[slotLabel] = struct{}{}
	return domainRepo.ClaimGranted, len(c.slots), nil
}

func (l *memoryCapacityLedger) Release(ctx context.Context, key entity.CapacityKey, slotLabel string) (bool, error) {
	c, ok := l.existingCell(key)
	if !ok {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.slots[slotLabel]; !ok {
		return false, nil
	}
	delete(c.slots, slotLabel)
	l.dropIfEmpty(key, c)
	return true, nil
}

func (l *memoryCapacityLedger) Load(ctx context.Context, key entity.CapacityKey, slotLabels []string, ttl time.Duration) error {
	c := l.lockedCell(key)
	defer c.mu.Unlock()

	c.slots = make(map[string]struct{}, len(slotLabels))
	for _, label := range slotLabels {
		c.slots[label] = struct{}{}
	}
	l.dropIfEmpty(key, c)
	return nil
}

// size reports how many cells are kept
func (l *memoryCapacityLedger) size() int {
	n := 0
	l.cells.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
