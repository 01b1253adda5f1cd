// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maliride/internal/http/handlers"
	"maliride/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")

	quoteHandler := handlers.NewQuoteHandler(deps.Pricing, deps.Promotions)
	api.GET("/quote", quoteHandler.Get)

	driverHandler := handlers.NewDriverHandler(deps.Drivers, deps.Stats)
	api.POST("/drivers", driverHandler.Register)
	api.GET("/drivers", driverHandler.List)
	api.GET("/drivers/:username", driverHandler.Get)
	api.PATCH("/drivers/:username", driverHandler.Update)
	api.GET("/drivers/:username/weekly", driverHandler.Weekly)

	tripHandler := handlers.NewTripHandler(deps.Ledger, deps.Trips, deps.Cancellation)
	api.POST("/trips", tripHandler.Book)
	api.GET("/trips", tripHandler.List)
	api.GET("/trips/:id", tripHandler.Get)
	api.POST("/trips/:id/complete", tripHandler.Complete)
	api.POST("/trips/:id/cancel/passenger", tripHandler.CancelByPassenger)
	api.POST("/trips/:id/cancel/driver", tripHandler.CancelByDriver)

	return r
}
