// README: Fare quote handler; prices a pickup/dropoff pair with an optional promo code.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maliride/internal/modules/pricing"
	"maliride/internal/modules/promotion"
	"maliride/internal/types"
)

type QuoteHandler struct {
	pricing *pricing.Service
	promos  *promotion.Resolver
}

func NewQuoteHandler(p *pricing.Service, promos *promotion.Resolver) *QuoteHandler {
	return &QuoteHandler{pricing: p, promos: promos}
}

type quoteResp struct {
	DistanceMiles       float64  `json:"distance_miles"`
	PriceBeforeDiscount int64    `json:"price_before_discount"`
	Discount            int64    `json:"discount"`
	FinalPrice          int64    `json:"final_price"`
	Currency            string   `json:"currency"`
	PromoCode           string   `json:"promo_code"`
	PromoApplied        bool     `json:"promo_applied"`
	AvailablePromos     []string `json:"available_promos"`
}

// Get never fails on bad coordinates: unparsable input is priced as zero distance.
func (h *QuoteHandler) Get(c *gin.Context) {
	pickup, okPickup := pricing.ParsePoint(c.Query("pickup_lat"), c.Query("pickup_lng"))
	dropoff, okDropoff := pricing.ParsePoint(c.Query("dropoff_lat"), c.Query("dropoff_lng"))

	var q pricing.Quote
	if okPickup && okDropoff {
		q = h.pricing.Quote(pickup, dropoff)
	} else {
		q = pricing.Quote{Fare: types.XOF(h.pricing.Fare(0))}
	}

	code := promotion.Normalize(c.Query("promo_code"))
	final, discount := h.promos.Apply(code, q.Fare.Amount)
	_, applied := h.promos.Lookup(code)

	writeJSON(c, http.StatusOK, quoteResp{
		DistanceMiles:       q.DistanceMiles,
		PriceBeforeDiscount: q.Fare.Amount,
		Discount:            discount,
		FinalPrice:          final,
		Currency:            types.CurrencyXOF,
		PromoCode:           code,
		PromoApplied:        applied,
		AvailablePromos:     h.promos.Codes(),
	})
}
