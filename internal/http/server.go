// README: API gateway; wires module services into the router and applies CORS.
package http

import (
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"

	"maliride/internal/modules/cancellation"
	"maliride/internal/modules/driver"
	"maliride/internal/modules/pricing"
	"maliride/internal/modules/promotion"
	"maliride/internal/modules/stats"
	"maliride/internal/modules/trip"
)

type ServerDeps struct {
	Pricing      *pricing.Service
	Promotions   *promotion.Resolver
	Drivers      *driver.Service
	Ledger       *trip.Ledger
	Trips        *trip.Service
	Cancellation *cancellation.Engine
	Stats        *stats.Service
	CORSOrigins  []string
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	origins := s.deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return cors(NewRouter(s.deps))
}
