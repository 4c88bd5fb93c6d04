package service

import (
	"context"
	"fmt"

	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/domain/repository"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Batch size for startup sync - process 500 records at a time
const syncBatchSize = 500

// CapacitySyncService rebuilds the capacity ledger from the bookings table.
// The database is the source of truth; the ledger is a fast, shared copy.
type CapacitySyncService struct {
	db          *gorm.DB
	log         *logrus.Logger
	clock       clock.Clock
	rule        entity.BookingRule
	bookingRepo repository.BookingRepository
	ledger      repository.CapacityLedger
}

func NewCapacitySyncService(db *gorm.DB, log *logrus.Logger, clk clock.Clock, rule entity.BookingRule, bookingRepo repository.BookingRepository, ledger repository.CapacityLedger) *CapacitySyncService {
	return &CapacitySyncService{
		db:          db,
		log:         log,
		clock:       clk,
		rule:        rule,
		bookingRepo: bookingRepo,
		ledger:      ledger,
	}
}

// SyncOnStartup overwrites the ledger cell of every (provider, date) that
// has capacity-holding bookings from today on. Rows are read in batches and
// a cell is written once all of its rows have been seen.
//
// Should be called BEFORE accepting traffic.
func (s *CapacitySyncService) SyncOnStartup(ctx context.Context) (int, error) {
	s.log.Info("Starting capacity re-sync from database...")
	started := s.clock.Now()

	today := s.rule.Today(started)
	offset := 0
	synced := 0

	var current *entity.CapacityKey
	var labels []string

	flush := func() error {
		if current == nil {
			return nil
		}
		if err := s.ledger.Load(ctx, *current, labels, 0); err != nil {
			s.log.Errorf("Failed to load capacity for %s: %+v", current, err)
			return err
		}
		synced++
		return nil
	}

	for {
		rows, err := s.bookingRepo.FindHeldSlotsFrom(s.db.WithContext(ctx), today, offset, syncBatchSize)
		if err != nil {
			s.log.Errorf("Failed to query held slots at offset %d: %+v", offset, err)
			return synced, fmt.Errorf("query held slots at offset %d: %w", offset, err)
		}

		if len(rows) == 0 {
			if offset == 0 {
				s.log.Info("No held capacity found for sync")
			}
			break
		}

		s.log.Infof("Processing batch: offset=%d, count=%d", offset, len(rows))

		for _, row := range rows {
			key := entity.NewCapacityKey(row.ProviderID, row.RequestedDate)
			if current == nil || *current != key {
				if err := flush(); err != nil {
					return synced, err
				}
				current = &key
				labels = labels[:0]
			}

			start, err := entity.ParseTimeOfDay(row.SlotStart)
			if err != nil {
				s.log.Warnf("Skipping held slot with bad start %q for %s: %+v", row.SlotStart, key, err)
				continue
			}
			end, err := entity.ParseTimeOfDay(row.SlotEnd)
			if err != nil {
				s.log.Warnf("Skipping held slot with bad end %q for %s: %+v", row.SlotEnd, key, err)
				continue
			}
			labels = append(labels, entity.Slot{Start: start, End: end}.Label())
		}

		if len(rows) < syncBatchSize {
			break
		}
		offset += syncBatchSize

		select {
		case <-ctx.Done():
			return synced, ctx.Err()
		default:
		}
	}

	if err := flush(); err != nil {
		return synced, err
	}

	s.log.Infof("Capacity re-sync completed: %d provider-days synced in %v", synced, s.clock.Now().Sub(started))
	return synced, nil
}
