// README: Trip handlers for booking, lookup, completion and cancellation.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"maliride/internal/modules/cancellation"
	"maliride/internal/modules/pricing"
	"maliride/internal/modules/trip"
	"maliride/internal/types"
)

type TripHandler struct {
	ledger *trip.Ledger
	trips  *trip.Service
	cancel *cancellation.Engine
}

func NewTripHandler(ledger *trip.Ledger, trips *trip.Service, cancel *cancellation.Engine) *TripHandler {
	return &TripHandler{ledger: ledger, trips: trips, cancel: cancel}
}

type bookTripReq struct {
	DriverID            string     `json:"driver_id"`
	Pickup              coordReq   `json:"pickup"`
	Dropoff             coordReq   `json:"dropoff"`
	PromoCode           string     `json:"promo_code"`
	ReferralCode        string     `json:"referral_code"`
	City                string     `json:"city"`
	PickupNeighborhood  string     `json:"pickup_neighborhood"`
	DropoffCity         string     `json:"dropoff_city"`
	DropoffNeighborhood string     `json:"dropoff_neighborhood"`
	ScheduledFor        *time.Time `json:"scheduled_for"`
	ClientApp           string     `json:"client_app"`
}

// coordReq keeps lat/lng raw so that strings and garbage reach ParsePoint
// instead of failing the whole body.
type coordReq struct {
	Lat json.RawMessage `json:"lat"`
	Lng json.RawMessage `json:"lng"`
}

func (r coordReq) point() (types.Point, bool) {
	return pricing.ParsePoint(rawText(r.Lat), rawText(r.Lng))
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type driverCancelReq struct {
	DriverID string `json:"driver_id"`
}

func (h *TripHandler) Book(c *gin.Context) {
	var req bookTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	// Unparsable coordinates are priced as zero distance, like quotes.
	pickup, okPickup := req.Pickup.point()
	dropoff, okDropoff := req.Dropoff.point()
	if !okPickup || !okDropoff {
		pickup, dropoff = types.Point{}, types.Point{}
	}
	t, err := h.ledger.Book(c.Request.Context(), trip.BookCommand{
		DriverID:            req.DriverID,
		Pickup:              pickup,
		Dropoff:             dropoff,
		PromoCode:           req.PromoCode,
		ReferralCode:        req.ReferralCode,
		City:                req.City,
		PickupNeighborhood:  req.PickupNeighborhood,
		DropoffCity:         req.DropoffCity,
		DropoffNeighborhood: req.DropoffNeighborhood,
		ScheduledFor:        req.ScheduledFor,
		ClientApp:           req.ClientApp,
		UnparsedCoordinates: !okPickup || !okDropoff,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

func (h *TripHandler) List(c *gin.Context) {
	list, err := h.trips.List(c.Request.Context(), trip.ListFilter{
		DriverID: c.Query("driver_id"),
		Status:   trip.Status(c.Query("status")),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if list == nil {
		list = []*trip.Trip{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"trips": list})
}

func (h *TripHandler) Get(c *gin.Context) {
	t, err := h.trips.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TripHandler) Complete(c *gin.Context) {
	t, err := h.trips.Complete(c.Request.Context(), trip.CompleteCommand{TripID: types.ID(c.Param("id"))})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TripHandler) CancelByPassenger(c *gin.Context) {
	t, err := h.cancel.CancelByPassenger(c.Request.Context(), cancellation.CancelCommand{TripID: types.ID(c.Param("id"))})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

// CancelByDriver accepts an optional {"driver_id"} body; when present it must match the trip's driver.
func (h *TripHandler) CancelByDriver(c *gin.Context) {
	var req driverCancelReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	res, err := h.cancel.CancelByDriver(c.Request.Context(), cancellation.CancelCommand{
		TripID:   types.ID(c.Param("id")),
		DriverID: req.DriverID,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}
