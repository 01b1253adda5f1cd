// README: Fare rates and quote result for a pickup/dropoff pair.
package pricing

import "maliride/internal/types"

const (
	DefaultBaseFare = 500
	DefaultPerMile  = 300

	// RoutingProvider labels distances computed by straight-line approximation.
	RoutingProvider = "demo_haversine"
)

type Rates struct {
	BaseFare int64
	PerMile  int64
}

type Quote struct {
	DistanceMiles float64     `json:"distance_miles"`
	Fare          types.Money `json:"fare"`
}
