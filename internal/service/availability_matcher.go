package service

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/infrastructure/metrics"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

const defaultMatchConcurrency = 8

// ServiceAreaFilter narrows matching to providers serving a location.
// A nil filter admits everyone.
type ServiceAreaFilter func(provider *entity.Provider) bool

// ServiceAreaResolver turns a customer location into a ServiceAreaFilter
type ServiceAreaResolver interface {
	FilterFor(postalCode string) ServiceAreaFilter
}

type postalCodeResolver struct{}

// NewPostalCodeResolver matches a postal code against each provider's
// service areas. An empty code yields no filter.
func NewPostalCodeResolver() ServiceAreaResolver {
	return postalCodeResolver{}
}

func (postalCodeResolver) FilterFor(postalCode string) ServiceAreaFilter {
	if strings.TrimSpace(postalCode) == "" {
		return nil
	}
	return func(provider *entity.Provider) bool {
		return provider.CoversArea(postalCode)
	}
}

// AvailabilityMatcher computes which providers could take a slot on a date.
// The answer is advisory: the allocator re-checks before committing.
type AvailabilityMatcher struct {
	store       *AvailabilityStore
	clock       clock.Clock
	log         *logrus.Logger
	metrics     *metrics.Recorder
	concurrency int
}

func NewAvailabilityMatcher(store *AvailabilityStore, clk clock.Clock, log *logrus.Logger, recorder *metrics.Recorder, concurrency int) *AvailabilityMatcher {
	if concurrency <= 0 {
		concurrency = defaultMatchConcurrency
	}
	return &AvailabilityMatcher{
		store:       store,
		clock:       clk,
		log:         log,
		metrics:     recorder,
		concurrency: concurrency,
	}
}

// FindEligibleProviders returns, ordered by id, the active providers that
// have the slot in their weekly availability, are not blocked on date, are
// below their daily ceiling, do not already hold the slot and pass filter.
// An empty result is not an error.
func (m *AvailabilityMatcher) FindEligibleProviders(ctx context.Context, date time.Time, slot entity.Slot, filter ServiceAreaFilter) ([]entity.Provider, error) {
	started := m.clock.Now()

	providers, err := m.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	label := slot.Label()
	candidates := make([]*entity.Provider, 0, len(providers))
	for i := range providers {
		provider := &providers[i]
		if !provider.HasWindow(label) || provider.IsBlockedOn(date) {
			continue
		}
		if filter != nil && !filter(provider) {
			continue
		}
		candidates = append(candidates, provider)
	}

	// Capacity lookups may hit Redis, so they fan out with a bound.
	p := pool.NewWithResults[*entity.Provider]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(m.concurrency)
	for _, provider := range candidates {
		p.Go(func(ctx context.Context) (*entity.Provider, error) {
			count, err := m.store.CurrentBookingCount(ctx, provider.ID, date)
			if err != nil {
				return nil, err
			}
			if count >= provider.MaxDailyBookings {
				return nil, nil
			}
			held, err := m.store.HoldsSlot(ctx, provider.ID, date, slot)
			if err != nil {
				return nil, err
			}
			if held {
				return nil, nil
			}
			return provider, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		m.log.Warnf("Failed to match providers for %s %s: %+v", entity.FormatDate(date), label, err)
		return nil, err
	}

	eligible := make([]entity.Provider, 0, len(results))
	for _, provider := range results {
		if provider != nil {
			eligible = append(eligible, *provider)
		}
	}
	slices.SortFunc(eligible, func(a, b entity.Provider) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	m.metrics.ObserveMatch(m.clock.Now().Sub(started), len(eligible))
	m.log.Debugf("Matched %d/%d providers for %s %s", len(eligible), len(providers), entity.FormatDate(date), label)
	return eligible, nil
}
