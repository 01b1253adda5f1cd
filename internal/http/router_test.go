package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"maliride/internal/events"
	"maliride/internal/modules/cancellation"
	"maliride/internal/modules/commission"
	"maliride/internal/modules/driver"
	"maliride/internal/modules/pricing"
	"maliride/internal/modules/promotion"
	"maliride/internal/modules/stats"
	"maliride/internal/modules/trip"
	"maliride/internal/types"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tiers, err := commission.NewSelector(commission.DefaultTiers())
	if err != nil {
		t.Fatalf("selector: %v", err)
	}
	driverStore := driver.NewMemoryStore()
	tripStore := trip.NewMemoryStore()
	pricingSvc := pricing.NewService(pricing.Rates{BaseFare: pricing.DefaultBaseFare, PerMile: pricing.DefaultPerMile})
	promos := promotion.NewResolver(map[string]float64{"WELCOME50": 0.50, "MALI10": 0.10})
	publisher := events.LogPublisher{}

	srv := NewServer(ServerDeps{
		Pricing:      pricingSvc,
		Promotions:   promos,
		Drivers:      driver.NewService(driverStore, []string{"Bamako", "Ségou"}),
		Ledger:       trip.NewLedger(tripStore, driverStore, pricingSvc, promos, tiers,
			trip.WithPublisher(publisher), trip.WithCities([]string{"Bamako", "Ségou"})),
		Trips:        trip.NewService(tripStore, publisher),
		Cancellation: cancellation.NewEngine(tripStore, driverStore, cancellation.DefaultPolicy(), publisher),
		Stats:        stats.NewService(tripStore, driverStore, tiers, nil),
	})
	return srv.Routes()
}

func doRequest(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func registerDriver(t *testing.T, h http.Handler, username string) {
	t.Helper()
	w := doRequest(h, http.MethodPost, "/api/drivers", map[string]any{
		"username": username, "first_name": "Moussa", "last_name": "Traoré",
		"age": 34, "city": "Bamako", "transport_type": "Moto",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, w.Code, w.Body.String())
	}
}

func bookTrip(t *testing.T, h http.Handler, body map[string]any) trip.Trip {
	t.Helper()
	w := doRequest(h, http.MethodPost, "/api/trips", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("book: status %d body %s", w.Code, w.Body.String())
	}
	var tr trip.Trip
	decode(t, w, &tr)
	return tr
}

var bamako = map[string]float64{"lat": 12.6392, "lng": -8.0029}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	w := doRequest(h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("health: %d %q", w.Code, w.Body.String())
	}
}

func TestQuote(t *testing.T) {
	h := newTestHandler(t)
	cases := []struct {
		name      string
		query     string
		wantBase  int64
		wantFinal int64
	}{
		{"same point", "pickup_lat=12.6392&pickup_lng=-8.0029&dropoff_lat=12.6392&dropoff_lng=-8.0029", 500, 500},
		{"promo", "pickup_lat=12.6392&pickup_lng=-8.0029&dropoff_lat=12.6392&dropoff_lng=-8.0029&promo_code=welcome50", 500, 250},
		{"malformed coordinates", "pickup_lat=abc&pickup_lng=-8.0029&dropoff_lat=12.64&dropoff_lng=-8.01", 500, 500},
		{"unknown promo", "pickup_lat=1&pickup_lng=1&dropoff_lat=1&dropoff_lng=1&promo_code=NOPE", 500, 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(h, http.MethodGet, "/api/quote?"+tc.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status %d", w.Code)
			}
			var resp struct {
				PriceBeforeDiscount int64    `json:"price_before_discount"`
				FinalPrice          int64    `json:"final_price"`
				Currency            string   `json:"currency"`
				AvailablePromos     []string `json:"available_promos"`
			}
			decode(t, w, &resp)
			if resp.PriceBeforeDiscount != tc.wantBase || resp.FinalPrice != tc.wantFinal {
				t.Fatalf("got %d/%d, want %d/%d", resp.PriceBeforeDiscount, resp.FinalPrice, tc.wantBase, tc.wantFinal)
			}
			if resp.Currency != types.CurrencyXOF || len(resp.AvailablePromos) != 2 {
				t.Fatalf("unexpected quote metadata: %+v", resp)
			}
		})
	}
}

func TestDriverEndpoints(t *testing.T) {
	h := newTestHandler(t)
	registerDriver(t, h, "moussa")

	if w := doRequest(h, http.MethodPost, "/api/drivers", map[string]any{
		"username": "moussa", "age": 30, "city": "Bamako", "transport_type": "Car",
	}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodPost, "/api/drivers", map[string]any{
		"username": "kid", "age": 16, "city": "Bamako", "transport_type": "Car",
	}); w.Code != http.StatusBadRequest {
		t.Fatalf("underage: expected 400, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/drivers/ghost", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown driver: expected 404, got %d", w.Code)
	}

	w := doRequest(h, http.MethodPatch, "/api/drivers/moussa", map[string]any{"status": "Offline"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", w.Code, w.Body.String())
	}
	var d driver.Driver
	decode(t, w, &d)
	if d.Status != driver.StatusOffline || d.Rating != driver.DefaultRating {
		t.Fatalf("unexpected driver after patch: %+v", d)
	}
	if w := doRequest(h, http.MethodPatch, "/api/drivers/moussa", map[string]any{"rating": 1.0}); w.Code != http.StatusBadRequest {
		t.Fatalf("rating is not patchable: expected 400, got %d", w.Code)
	}

	w = doRequest(h, http.MethodGet, "/api/drivers", nil)
	var list struct {
		Drivers []driver.Driver `json:"drivers"`
	}
	decode(t, w, &list)
	if len(list.Drivers) != 1 {
		t.Fatalf("expected 1 driver, got %d", len(list.Drivers))
	}
}

func TestBookAndCompleteTrip(t *testing.T) {
	h := newTestHandler(t)
	registerDriver(t, h, "moussa")

	if w := doRequest(h, http.MethodPost, "/api/trips", map[string]any{"pickup": bamako, "dropoff": bamako}); w.Code != http.StatusBadRequest {
		t.Fatalf("no driver: expected 400, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodPost, "/api/trips", map[string]any{"driver_id": "ghost", "pickup": bamako, "dropoff": bamako}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown driver: expected 404, got %d", w.Code)
	}

	tr := bookTrip(t, h, map[string]any{"driver_id": "moussa", "pickup": bamako, "dropoff": bamako, "city": "Bamako"})
	if tr.FinalPrice != 500 || tr.PlatformCommission != 70 || tr.DriverEarnings != 430 || tr.Status != trip.StatusRequested {
		t.Fatalf("unexpected booking: %+v", tr)
	}

	w := doRequest(h, http.MethodGet, "/api/trips/"+string(tr.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}

	w = doRequest(h, http.MethodPost, "/api/trips/"+string(tr.ID)+"/complete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete: status %d body %s", w.Code, w.Body.String())
	}
	if w := doRequest(h, http.MethodPost, "/api/trips/"+string(tr.ID)+"/cancel/passenger", nil); w.Code != http.StatusConflict {
		t.Fatalf("cancel completed trip: expected 409, got %d", w.Code)
	}

	w = doRequest(h, http.MethodGet, "/api/trips?driver_id=moussa&status=completed", nil)
	var list struct {
		Trips []trip.Trip `json:"trips"`
	}
	decode(t, w, &list)
	if len(list.Trips) != 1 || list.Trips[0].ID != tr.ID {
		t.Fatalf("unexpected trip list: %+v", list.Trips)
	}
}

func TestPassengerCancellation(t *testing.T) {
	h := newTestHandler(t)
	registerDriver(t, h, "moussa")

	future := time.Now().UTC().Add(5 * time.Hour).Format(time.RFC3339)
	scheduled := bookTrip(t, h, map[string]any{"driver_id": "moussa", "pickup": bamako, "dropoff": bamako, "scheduled_for": future})
	if scheduled.Status != trip.StatusScheduled {
		t.Fatalf("expected scheduled trip, got %s", scheduled.Status)
	}
	w := doRequest(h, http.MethodPost, "/api/trips/"+string(scheduled.ID)+"/cancel/passenger", nil)
	var free trip.Trip
	decode(t, w, &free)
	if free.CancellationReason != trip.ReasonFreePassengerCancel || free.CancellationFee == nil || *free.CancellationFee != 0 {
		t.Fatalf("expected free cancellation, got %+v", free)
	}

	immediate := bookTrip(t, h, map[string]any{"driver_id": "moussa", "pickup": bamako, "dropoff": bamako})
	w = doRequest(h, http.MethodPost, "/api/trips/"+string(immediate.ID)+"/cancel/passenger", nil)
	var late trip.Trip
	decode(t, w, &late)
	if late.CancellationReason != trip.ReasonLatePassenger || *late.CancellationFee != 375 || late.PlatformCommission != 375 || late.DriverEarnings != 0 {
		t.Fatalf("expected late fee 375, got %+v", late)
	}
}

func TestDriverCancellation(t *testing.T) {
	h := newTestHandler(t)
	registerDriver(t, h, "moussa")
	tr := bookTrip(t, h, map[string]any{"driver_id": "moussa", "pickup": bamako, "dropoff": bamako})

	if w := doRequest(h, http.MethodPost, "/api/trips/"+string(tr.ID)+"/cancel/driver", map[string]any{"driver_id": "awa"}); w.Code != http.StatusForbidden {
		t.Fatalf("other driver: expected 403, got %d", w.Code)
	}

	w := doRequest(h, http.MethodPost, "/api/trips/"+string(tr.ID)+"/cancel/driver", map[string]any{"driver_id": "moussa"})
	if w.Code != http.StatusOK {
		t.Fatalf("driver cancel: status %d body %s", w.Code, w.Body.String())
	}
	var res cancellation.Result
	decode(t, w, &res)
	if *res.Trip.CancellationFee != 175 || res.Driver.Rating != 4.8 || res.Driver.CancelCount != 1 {
		t.Fatalf("unexpected result: trip=%+v driver=%+v", res.Trip, res.Driver)
	}

	if w := doRequest(h, http.MethodPost, "/api/trips/"+string(tr.ID)+"/cancel/driver", nil); w.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodPost, "/api/trips/missing/cancel/driver", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown trip: expected 404, got %d", w.Code)
	}
}

func TestDriverWeekly(t *testing.T) {
	h := newTestHandler(t)
	registerDriver(t, h, "moussa")
	for i := 0; i < 3; i++ {
		bookTrip(t, h, map[string]any{"driver_id": "moussa", "pickup": bamako, "dropoff": bamako})
	}

	w := doRequest(h, http.MethodGet, "/api/drivers/moussa/weekly", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("weekly: status %d", w.Code)
	}
	var sum stats.WeeklySummary
	decode(t, w, &sum)
	if sum.Trips != 3 || sum.DriverEarnings != 3*430 || sum.CommissionPct != 14 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestCORSHeaders(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://dashboard.example.ml")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected CORS header, got %v", w.Header())
	}
}

func TestBookTripCoordinates(t *testing.T) {
	h := newTestHandler(t)
	registerDriver(t, h, "moussa")

	cases := []struct {
		name     string
		pickup   any
		dropoff  any
		wantFare int64
		wantCell bool
	}{
		{name: "non-numeric latitude", pickup: map[string]any{"lat": "abc", "lng": -8.0029}, dropoff: bamako, wantFare: 500},
		{name: "missing dropoff", pickup: bamako, dropoff: nil, wantFare: 500},
		{name: "numeric strings", pickup: map[string]any{"lat": "12.6392", "lng": "-8.0029"}, dropoff: bamako, wantFare: 500, wantCell: true},
		{name: "priced distance", pickup: bamako, dropoff: map[string]float64{"lat": 12.6500, "lng": -8.0029}, wantFare: 724, wantCell: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := bookTrip(t, h, map[string]any{"driver_id": "moussa", "pickup": tc.pickup, "dropoff": tc.dropoff})
			if tr.PriceBeforeDiscount != tc.wantFare || tr.FinalPrice != tc.wantFare {
				t.Fatalf("fare = %d/%d, want %d", tr.PriceBeforeDiscount, tr.FinalPrice, tc.wantFare)
			}
			if tc.wantFare == 500 && tr.DistanceMiles != 0 {
				t.Fatalf("distance = %v, want 0", tr.DistanceMiles)
			}
			if (tr.PickupCell != "") != tc.wantCell {
				t.Fatalf("pickup cell = %q", tr.PickupCell)
			}
		})
	}
}

func TestBookTripUnknownCity(t *testing.T) {
	h := newTestHandler(t)
	registerDriver(t, h, "moussa")

	for _, body := range []map[string]any{
		{"driver_id": "moussa", "pickup": bamako, "dropoff": bamako, "city": "Atlantis"},
		{"driver_id": "moussa", "pickup": bamako, "dropoff": bamako, "city": "Bamako", "dropoff_city": "Atlantis"},
	} {
		if w := doRequest(h, http.MethodPost, "/api/trips", body); w.Code != http.StatusBadRequest {
			t.Fatalf("book %v: expected 400, got %d", body, w.Code)
		}
	}
	bookTrip(t, h, map[string]any{"driver_id": "moussa", "pickup": bamako, "dropoff": bamako, "city": "Ségou", "dropoff_city": "Bamako"})
}
