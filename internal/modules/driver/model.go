// README: Driver aggregate, status values and rating rules.
package driver

import (
	"errors"
	"math"
	"time"
)

type Status string

const (
	StatusAvailable Status = "Available"
	StatusOnTrip    Status = "On trip"
	StatusOffline   Status = "Offline"
)

const (
	DefaultRating = 5.0
	MinRating     = 1.0
	MinAge        = 18
	MaxAge        = 80
)

var TransportTypes = []string{"Moto", "Car", "Taxi", "Tricycle"}

var (
	ErrNotFound   = errors.New("driver not found")
	ErrDuplicate  = errors.New("driver already registered")
	ErrBadRequest = errors.New("bad request")
)

type Driver struct {
	Username      string    `json:"username"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Age           int       `json:"age"`
	City          string    `json:"city"`
	TransportType string    `json:"transport_type"`
	Status        Status    `json:"status"`
	Rating        float64   `json:"rating"`
	CancelCount   int       `json:"cancel_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Update is a partial merge; nil fields are left untouched.
type Update struct {
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	Age           *int    `json:"age,omitempty"`
	City          *string `json:"city,omitempty"`
	TransportType *string `json:"transport_type,omitempty"`
	Status        *Status `json:"status,omitempty"`
}

func (u Update) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Age == nil &&
		u.City == nil && u.TransportType == nil && u.Status == nil
}

func (u Update) apply(d *Driver) {
	if u.FirstName != nil {
		d.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		d.LastName = *u.LastName
	}
	if u.Age != nil {
		d.Age = *u.Age
	}
	if u.City != nil {
		d.City = *u.City
	}
	if u.TransportType != nil {
		d.TransportType = *u.TransportType
	}
	if u.Status != nil {
		d.Status = *u.Status
	}
}

// Penalty is applied by the cancellation engine when a driver cancels a trip.
type Penalty struct {
	RatingDelta float64
	MinRating   float64
}

// PenalizedRating subtracts delta, rounds to two decimals and floors at min.
func PenalizedRating(rating, delta, min float64) float64 {
	r := math.Round((rating-delta)*100) / 100
	if r < min {
		return min
	}
	return r
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusOnTrip, StatusOffline:
		return true
	}
	return false
}

func ValidTransportType(t string) bool {
	for _, v := range TransportTypes {
		if v == t {
			return true
		}
	}
	return false
}

func clone(d *Driver) *Driver {
	cp := *d
	return &cp
}
