package api

import (
	"net/http"

	"github.com/Domenick1991/skybooking/internal/service/checkout"
	"github.com/Domenick1991/skybooking/internal/service/orders"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders   orders.OrderUseCase
	checkout checkout.CheckoutUseCase
}

type createOrderRequest struct {
	Tickets []orders.TicketRequest `json:"tickets"`
}

type checkoutResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

func NewOrderHandler(orders orders.OrderUseCase, checkout checkout.CheckoutUseCase) *OrderHandler {
	return &OrderHandler{orders: orders, checkout: checkout}
}

// Register expects a group already guarded by RequireUser.
func (h *OrderHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("/:id/checkout-session", h.createCheckoutSession)
}

func (h *OrderHandler) create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), actorFrom(c), req.Tickets)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) list(c *gin.Context) {
	out, err := h.orders.ListOrders(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) createCheckoutSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	session, err := h.checkout.CreateCheckoutSession(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkoutResponse{SessionID: session.SessionID, RedirectURL: session.RedirectURL})
}
