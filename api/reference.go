package api

import (
	"net/http"

	"github.com/Domenick1991/skybooking/internal/service/reference"
	"github.com/gin-gonic/gin"
)

// ReferenceHandler serves the read-only lookup tables.
type ReferenceHandler struct {
	service reference.ReferenceUseCase
}

func NewReferenceHandler(service reference.ReferenceUseCase) *ReferenceHandler {
	return &ReferenceHandler{service: service}
}

func (h *ReferenceHandler) Register(router *gin.RouterGroup) {
	router.GET("/countries", h.countries)
	router.GET("/airports", h.airports)
	router.GET("/airlines", h.airlines)
}

func (h *ReferenceHandler) countries(c *gin.Context) {
	out, err := h.service.Countries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReferenceHandler) airports(c *gin.Context) {
	out, err := h.service.Airports(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReferenceHandler) airlines(c *gin.Context) {
	out, err := h.service.Airlines(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
