// README: Driver weekly summary: trips, earnings and the commission tier currently applicable.
package stats

import (
	"context"
	"fmt"
	"log"
	"time"

	"maliride/internal/modules/commission"
	"maliride/internal/modules/driver"
	"maliride/internal/modules/trip"
)

const (
	SourceTrips    = "trips"
	SourceActivity = "activity"
)

type TripHistory interface {
	ListByDriverBetween(ctx context.Context, driverID string, from, to time.Time) ([]*trip.Trip, error)
}

type DriverLookup interface {
	Get(ctx context.Context, username string) (*driver.Driver, error)
}

type ActivityCounter interface {
	CountBetween(ctx context.Context, username string, from, to time.Time) (int, error)
}

type WeeklySummary struct {
	Username           string    `json:"username"`
	From               time.Time `json:"from"`
	To                 time.Time `json:"to"`
	Trips              int       `json:"trips"`
	DriverEarnings     int64     `json:"driver_earnings"`
	PlatformCommission int64     `json:"platform_commission"`
	CommissionPct      int       `json:"commission_pct"`
	// CountSource says where Trips came from: the trip store or the activity index.
	CountSource string `json:"count_source"`
}

type Service struct {
	trips    TripHistory
	drivers  DriverLookup
	tiers    *commission.Selector
	activity ActivityCounter
	now      func() time.Time
}

// NewService builds the summary service. activity may be nil.
func NewService(trips TripHistory, drivers DriverLookup, tiers *commission.Selector, activity ActivityCounter) *Service {
	return &Service{trips: trips, drivers: drivers, tiers: tiers, activity: activity, now: time.Now}
}

// DriverWeekly summarizes [now-7d, now]. This is display data; billing always
// counts from the trip store at booking time.
func (s *Service) DriverWeekly(ctx context.Context, username string) (WeeklySummary, error) {
	if _, err := s.drivers.Get(ctx, username); err != nil {
		return WeeklySummary{}, err
	}
	to := s.now().UTC()
	from := to.Add(-trip.CommissionWindow)

	trips, err := s.trips.ListByDriverBetween(ctx, username, from, to)
	if err != nil {
		return WeeklySummary{}, fmt.Errorf("list weekly trips: %w", err)
	}
	sum := WeeklySummary{Username: username, From: from, To: to, Trips: len(trips), CountSource: SourceTrips}
	for _, t := range trips {
		sum.DriverEarnings += t.DriverEarnings
		sum.PlatformCommission += t.PlatformCommission
	}

	if s.activity != nil {
		n, err := s.activity.CountBetween(ctx, username, from, to)
		if err != nil {
			log.Printf("activity count for %s: %v", username, err)
		} else {
			sum.Trips = n
			sum.CountSource = SourceActivity
		}
	}
	sum.CommissionPct = s.tiers.Pct(sum.Trips)
	return sum, nil
}
