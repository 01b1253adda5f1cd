// README: Ledger books trips: fare, promotion, commission tier and persistence in one step.
package trip

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"maliride/internal/events"
	"maliride/internal/modules/commission"
	"maliride/internal/modules/driver"
	"maliride/internal/modules/pricing"
	"maliride/internal/modules/promotion"
	"maliride/internal/types"
)

type DriverLookup interface {
	Get(ctx context.Context, username string) (*driver.Driver, error)
}

// ActivityRecorder mirrors bookings into a secondary index (Redis in production).
type ActivityRecorder interface {
	Record(ctx context.Context, username, tripID string, createdAt time.Time) error
}

type Ledger struct {
	store     Store
	drivers   DriverLookup
	pricing   *pricing.Service
	promos    *promotion.Resolver
	tiers     *commission.Selector
	activity  ActivityRecorder
	publisher events.Publisher
	cities    map[string]bool
	now       func() time.Time
}

type LedgerOption func(*Ledger)

func WithActivity(a ActivityRecorder) LedgerOption {
	return func(l *Ledger) { l.activity = a }
}

func WithPublisher(p events.Publisher) LedgerOption {
	return func(l *Ledger) { l.publisher = p }
}

// WithCities restricts pickup and dropoff cities to the given list. Empty
// city fields are still accepted.
func WithCities(cities []string) LedgerOption {
	return func(l *Ledger) {
		l.cities = make(map[string]bool, len(cities))
		for _, c := range cities {
			l.cities[c] = true
		}
	}
}

func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(store Store, drivers DriverLookup, p *pricing.Service, promos *promotion.Resolver, tiers *commission.Selector, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:   store,
		drivers: drivers,
		pricing: p,
		promos:  promos,
		tiers:   tiers,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type BookCommand struct {
	DriverID            string
	Pickup              types.Point
	Dropoff             types.Point
	PromoCode           string
	ReferralCode        string
	City                string
	PickupNeighborhood  string
	DropoffCity         string
	DropoffNeighborhood string
	ScheduledFor        *time.Time
	ClientApp           string
	// UnparsedCoordinates prices the trip at zero distance; Pickup and Dropoff are ignored for pricing.
	UnparsedCoordinates bool
}

// Book prices the ride and stores it. The commission tier is picked from the
// driver's trips in the trailing CommissionWindow, counting this one.
func (l *Ledger) Book(ctx context.Context, cmd BookCommand) (*Trip, error) {
	driverID := strings.TrimSpace(cmd.DriverID)
	if driverID == "" {
		return nil, ErrNoDriver
	}
	if !l.knownCity(cmd.City) || !l.knownCity(cmd.DropoffCity) {
		return nil, ErrBadRequest
	}
	if _, err := l.drivers.Get(ctx, driverID); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	quote := pricing.Quote{Fare: types.XOF(l.pricing.Fare(0))}
	cell := ""
	if !cmd.UnparsedCoordinates {
		quote = l.pricing.Quote(cmd.Pickup, cmd.Dropoff)
		cell = pricing.Cell(cmd.Pickup)
	}
	base := quote.Fare.Amount
	final, discount := l.promos.Apply(cmd.PromoCode, base)

	count, err := l.store.CountByDriverBetween(ctx, driverID, now.Add(-CommissionWindow), now)
	if err != nil {
		return nil, fmt.Errorf("count weekly trips: %w", err)
	}
	pct := l.tiers.Pct(count + 1)
	platform := types.RoundXOF(float64(final) * float64(pct) / 100)

	t := &Trip{
		ID:                  types.NewID(),
		DriverID:            driverID,
		Pickup:              cmd.Pickup,
		Dropoff:             cmd.Dropoff,
		DistanceMiles:       quote.DistanceMiles,
		PriceBeforeDiscount: base,
		Discount:            discount,
		FinalPrice:          final,
		PromoCode:           promotion.Normalize(cmd.PromoCode),
		ReferralCode:        promotion.Normalize(cmd.ReferralCode),
		PlatformCommission:  platform,
		DriverEarnings:      final - platform,
		PlatformPct:         pct,
		DriverPct:           100 - pct,
		City:                cmd.City,
		PickupCell:          cell,
		RoutingProvider:     pricing.RoutingProvider,
		RouteSummary:        routeSummary(cmd),
		ClientApp:           cmd.ClientApp,
		Status:              StatusRequested,
		CreatedAt:           now,
	}
	if t.ClientApp == "" {
		t.ClientApp = DefaultClientApp
	}
	if cmd.ScheduledFor != nil && cmd.ScheduledFor.After(now) {
		at := cmd.ScheduledFor.UTC()
		t.ScheduledFor = &at
		t.Status = StatusScheduled
	}

	if err := l.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}
	if l.activity != nil {
		if err := l.activity.Record(ctx, driverID, string(t.ID), t.CreatedAt); err != nil {
			log.Printf("record activity for %s: %v", driverID, err)
		}
	}
	events.Emit(ctx, l.publisher, events.TripBooked, t, now)
	return t, nil
}

func routeSummary(cmd BookCommand) string {
	dropCity := cmd.DropoffCity
	if dropCity == "" {
		dropCity = cmd.City
	}
	return fmt.Sprintf("%s %s → %s %s", cmd.City, cmd.PickupNeighborhood, dropCity, cmd.DropoffNeighborhood)
}

func (l *Ledger) knownCity(c string) bool {
	return c == "" || len(l.cities) == 0 || l.cities[c]
}
