// README: Trip aggregate, status state machine and cancellation reasons.
package trip

import (
	"errors"
	"time"

	"maliride/internal/types"
)

type Status string

const (
	StatusRequested            Status = "requested"
	StatusScheduled            Status = "scheduled"
	StatusCompleted            Status = "completed"
	StatusCancelledByPassenger Status = "cancelled_by_passenger"
	StatusCancelledByDriver    Status = "cancelled_by_driver"
)

type CancelReason string

const (
	ReasonFreePassengerCancel CancelReason = "free_passenger_cancel"
	ReasonLatePassenger       CancelReason = "late_passenger"
	ReasonDriverCancel        CancelReason = "driver_cancel"
)

const (
	DefaultClientApp = "passenger_mobile_demo"
	// CommissionWindow is the trailing period whose trip count selects the commission tier.
	CommissionWindow = 7 * 24 * time.Hour
)

var (
	ErrNoDriver     = errors.New("no driver selected")
	ErrNotFound     = errors.New("trip not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("trip state conflict")
	ErrBadRequest   = errors.New("bad request")
)

type Trip struct {
	ID                  types.ID     `json:"id"`
	DriverID            string       `json:"driver_id"`
	Pickup              types.Point  `json:"pickup"`
	Dropoff             types.Point  `json:"dropoff"`
	DistanceMiles       float64      `json:"distance_miles"`
	PriceBeforeDiscount int64        `json:"price_before_discount"`
	Discount            int64        `json:"discount"`
	FinalPrice          int64        `json:"final_price"`
	PromoCode           string       `json:"promo_code"`
	ReferralCode        string       `json:"referral_code"`
	PlatformCommission  int64        `json:"platform_commission"`
	DriverEarnings      int64        `json:"driver_earnings"`
	PlatformPct         int          `json:"platform_pct"`
	DriverPct           int          `json:"driver_pct"`
	City                string       `json:"city"`
	PickupCell          string       `json:"pickup_cell"`
	RoutingProvider     string       `json:"routing_provider"`
	RouteSummary        string       `json:"route_summary"`
	ClientApp           string       `json:"client_app"`
	Status              Status       `json:"status"`
	StatusVersion       int          `json:"status_version"`
	CreatedAt           time.Time    `json:"created_at"`
	ScheduledFor        *time.Time   `json:"scheduled_for,omitempty"`
	CompletedAt         *time.Time   `json:"completed_at,omitempty"`
	CancelledAt         *time.Time   `json:"cancelled_at,omitempty"`
	CancellationReason  CancelReason `json:"cancellation_reason,omitempty"`
	CancellationFee     *int64       `json:"cancellation_fee,omitempty"`
}

// AllowedTransitions is the trip state flow. Statuses without an entry are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusRequested: {StatusCompleted, StatusCancelledByPassenger, StatusCancelledByDriver},
	StatusScheduled: {StatusCompleted, StatusCancelledByPassenger, StatusCancelledByDriver},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	_, ok := AllowedTransitions[s]
	return !ok
}

// Clone returns a deep copy, so callers can mutate it before Store.Replace.
func (t *Trip) Clone() *Trip {
	cp := *t
	cp.ScheduledFor = copyTime(t.ScheduledFor)
	cp.CompletedAt = copyTime(t.CompletedAt)
	cp.CancelledAt = copyTime(t.CancelledAt)
	if t.CancellationFee != nil {
		fee := *t.CancellationFee
		cp.CancellationFee = &fee
	}
	return &cp
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
