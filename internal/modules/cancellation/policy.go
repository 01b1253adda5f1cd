// README: Cancellation policy: free window, fee rates and the driver rating penalty.
package cancellation

import (
	"time"

	"maliride/internal/modules/driver"
	"maliride/internal/modules/trip"
	"maliride/internal/types"
)

const (
	DefaultFreeWindow    = 4 * time.Hour
	DefaultLateFeeRate   = 0.75
	DefaultDriverFeeRate = 0.35
	DefaultRatingPenalty = 0.20
)

type Policy struct {
	FreeWindow    time.Duration
	LateFeeRate   float64
	DriverFeeRate float64
	RatingPenalty float64
	MinRating     float64
}

func DefaultPolicy() Policy {
	return Policy{
		FreeWindow:    DefaultFreeWindow,
		LateFeeRate:   DefaultLateFeeRate,
		DriverFeeRate: DefaultDriverFeeRate,
		RatingPenalty: DefaultRatingPenalty,
		MinRating:     driver.MinRating,
	}
}

// PassengerCanCancel reports whether a passenger may cancel for free: the trip
// must be scheduled at least FreeWindow after now. Immediate trips never are.
func (p Policy) PassengerCanCancel(t *trip.Trip, now time.Time) bool {
	if t.ScheduledFor == nil {
		return false
	}
	return t.ScheduledFor.Sub(now) >= p.FreeWindow
}

// PassengerCancellation returns t cancelled by the passenger at now. t is not modified.
func (p Policy) PassengerCancellation(t *trip.Trip, now time.Time) *trip.Trip {
	if p.PassengerCanCancel(t, now) {
		return cancelled(t, trip.StatusCancelledByPassenger, trip.ReasonFreePassengerCancel, 0, 0, now)
	}
	fee := types.RoundXOF(float64(t.FinalPrice) * p.LateFeeRate)
	return cancelled(t, trip.StatusCancelledByPassenger, trip.ReasonLatePassenger, fee, fee, now)
}

// DriverCancellation returns t cancelled by its driver at now. The fee becomes platform revenue.
func (p Policy) DriverCancellation(t *trip.Trip, now time.Time) *trip.Trip {
	fee := types.RoundXOF(float64(t.FinalPrice) * p.DriverFeeRate)
	return cancelled(t, trip.StatusCancelledByDriver, trip.ReasonDriverCancel, fee, fee, now)
}

func (p Policy) Penalty() driver.Penalty {
	return driver.Penalty{RatingDelta: p.RatingPenalty, MinRating: p.MinRating}
}

func cancelled(t *trip.Trip, status trip.Status, reason trip.CancelReason, fee, commission int64, now time.Time) *trip.Trip {
	out := t.Clone()
	at := now.UTC()
	out.Status = status
	out.CancellationReason = reason
	out.CancellationFee = &fee
	out.PlatformCommission = commission
	out.DriverEarnings = 0
	out.CancelledAt = &at
	return out
}
