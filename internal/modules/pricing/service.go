// README: Pricing service turns a distance into a base fare.
package pricing

import (
	"math"

	"maliride/internal/types"
)

type Service struct {
	rates Rates
}

func NewService(rates Rates) *Service {
	return &Service{rates: rates}
}

// Fare is round(BaseFare + PerMile*max(distance, 0)).
func (s *Service) Fare(distanceMiles float64) int64 {
	if math.IsNaN(distanceMiles) {
		distanceMiles = 0
	}
	d := math.Max(distanceMiles, 0)
	return types.RoundXOF(float64(s.rates.BaseFare) + float64(s.rates.PerMile)*d)
}

func (s *Service) Quote(pickup, dropoff types.Point) Quote {
	d := HaversineMiles(pickup, dropoff)
	return Quote{DistanceMiles: d, Fare: types.XOF(s.Fare(d))}
}
