// README: Pure geographic helpers (haversine distance, coordinate parsing, geohash cells).
package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/mmcloughlin/geohash"

	"maliride/internal/types"
)

const (
	earthRadiusKm = 6371.0
	milesPerKm    = 0.621371
	cellPrecision = 6
)

// HaversineMiles returns the great-circle distance in miles. Non-finite
// coordinates yield 0.
func HaversineMiles(a, b types.Point) float64 {
	for _, v := range []float64{a.Lat, a.Lng, b.Lat, b.Lng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}
	return haversineKm(a.Lat, a.Lng, b.Lat, b.Lng) * milesPerKm
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// ParsePoint parses decimal-degree strings. ok is false when either value is
// not a finite number.
func ParsePoint(lat, lng string) (p types.Point, ok bool) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || math.IsNaN(la) || math.IsInf(la, 0) {
		return types.Point{}, false
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil || math.IsNaN(lo) || math.IsInf(lo, 0) {
		return types.Point{}, false
	}
	return types.Point{Lat: la, Lng: lo}, true
}

// Cell returns the geohash cell containing p, or "" for out-of-range or NaN input.
func Cell(p types.Point) string {
	if !(math.Abs(p.Lat) <= 90 && math.Abs(p.Lng) <= 180) {
		return ""
	}
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, cellPrecision)
}
