// README: Driver handlers for registration, lookup, profile updates and weekly summary.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maliride/internal/modules/driver"
	"maliride/internal/modules/stats"
)

type DriverHandler struct {
	drivers *driver.Service
	stats   *stats.Service
}

func NewDriverHandler(drivers *driver.Service, statsSvc *stats.Service) *DriverHandler {
	return &DriverHandler{drivers: drivers, stats: statsSvc}
}

type registerDriverReq struct {
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Age           int    `json:"age"`
	City          string `json:"city"`
	TransportType string `json:"transport_type"`
}

func (h *DriverHandler) Register(c *gin.Context) {
	var req registerDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.drivers.Register(c.Request.Context(), driver.RegisterCommand{
		Username:      req.Username,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Age:           req.Age,
		City:          req.City,
		TransportType: req.TransportType,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, d)
}

func (h *DriverHandler) List(c *gin.Context) {
	list, err := h.drivers.List(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if list == nil {
		list = []*driver.Driver{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"drivers": list})
}

func (h *DriverHandler) Get(c *gin.Context) {
	d, err := h.drivers.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DriverHandler) Update(c *gin.Context) {
	var u driver.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.drivers.Update(c.Request.Context(), c.Param("username"), u)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DriverHandler) Weekly(c *gin.Context) {
	sum, err := h.stats.DriverWeekly(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sum)
}
