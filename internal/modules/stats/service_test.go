package stats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"maliride/internal/modules/commission"
	"maliride/internal/modules/driver"
	"maliride/internal/modules/trip"
	"maliride/internal/types"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type stubActivity struct {
	n   int
	err error
}

func (s stubActivity) CountBetween(context.Context, string, time.Time, time.Time) (int, error) {
	return s.n, s.err
}

func newTestService(t *testing.T, activity ActivityCounter) (*Service, *trip.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	trips := trip.NewMemoryStore()
	drivers := driver.NewMemoryStore()
	if err := drivers.Create(ctx, &driver.Driver{Username: "moussa", Rating: driver.DefaultRating, CreatedAt: testNow}); err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	tiers, err := commission.NewSelector(commission.DefaultTiers())
	if err != nil {
		t.Fatalf("selector: %v", err)
	}
	svc := NewService(trips, drivers, tiers, activity)
	svc.now = func() time.Time { return testNow }
	return svc, trips
}

func seed(t *testing.T, s *trip.MemoryStore, n int, age time.Duration, earnings, platform int64) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := s.Create(context.Background(), &trip.Trip{
			ID:                 types.ID(fmt.Sprintf("%s-%d", age, i)),
			DriverID:           "moussa",
			DriverEarnings:     earnings,
			PlatformCommission: platform,
			Status:             trip.StatusCompleted,
			CreatedAt:          testNow.Add(-age),
		})
		if err != nil {
			t.Fatalf("seed trip: %v", err)
		}
	}
}

func TestDriverWeeklyFromTrips(t *testing.T) {
	svc, trips := newTestService(t, nil)
	seed(t, trips, 20, 2*24*time.Hour, 430, 70)
	seed(t, trips, 5, 10*24*time.Hour, 1000, 1000)

	sum, err := svc.DriverWeekly(context.Background(), "moussa")
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if sum.Trips != 20 || sum.DriverEarnings != 8600 || sum.PlatformCommission != 1400 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.CommissionPct != 12 || sum.CountSource != SourceTrips {
		t.Fatalf("pct=%d source=%s, want 12/trips", sum.CommissionPct, sum.CountSource)
	}
	if !sum.To.Equal(testNow) || !sum.From.Equal(testNow.Add(-trip.CommissionWindow)) {
		t.Fatalf("unexpected window %v..%v", sum.From, sum.To)
	}
}

func TestDriverWeeklyCountsWithoutPlusOne(t *testing.T) {
	svc, trips := newTestService(t, nil)
	seed(t, trips, 19, time.Hour, 430, 70)

	sum, err := svc.DriverWeekly(context.Background(), "moussa")
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if sum.CommissionPct != 14 {
		t.Fatalf("19 trips should still show 14%%, got %d", sum.CommissionPct)
	}
}

func TestDriverWeeklyPrefersActivityIndex(t *testing.T) {
	svc, trips := newTestService(t, stubActivity{n: 41})
	seed(t, trips, 3, time.Hour, 430, 70)

	sum, err := svc.DriverWeekly(context.Background(), "moussa")
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if sum.Trips != 41 || sum.CountSource != SourceActivity || sum.CommissionPct != 10 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.DriverEarnings != 1290 {
		t.Fatalf("earnings always come from the trip store, got %d", sum.DriverEarnings)
	}
}

func TestDriverWeeklyActivityFailureFallsBack(t *testing.T) {
	svc, trips := newTestService(t, stubActivity{err: errors.New("redis down")})
	seed(t, trips, 3, time.Hour, 430, 70)

	sum, err := svc.DriverWeekly(context.Background(), "moussa")
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if sum.Trips != 3 || sum.CountSource != SourceTrips {
		t.Fatalf("expected fallback to trip store, got %+v", sum)
	}
}

func TestDriverWeeklyUnknownDriver(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.DriverWeekly(context.Background(), "ghost"); err != driver.ErrNotFound {
		t.Fatalf("expected driver.ErrNotFound, got %v", err)
	}
}
