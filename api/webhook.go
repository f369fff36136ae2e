package api

import (
	"net/http"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/service/webhook"
	"github.com/gin-gonic/gin"
)

const HeaderStripeSignature = "Stripe-Signature"

// maxWebhookBody caps provider payloads.
const maxWebhookBody = 64 << 10

// WebhookHandler receives payment provider notifications. Responses are plain
// text; the provider only looks at the status code.
type WebhookHandler struct {
	reconciler webhook.ReconcilerUseCase
}

func NewWebhookHandler(reconciler webhook.ReconcilerUseCase) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

func (h *WebhookHandler) Register(router *gin.RouterGroup) {
	router.POST("/webhook", h.handle)
}

func (h *WebhookHandler) handle(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "unreadable body")
		return
	}

	res, err := h.reconciler.HandleEvent(c.Request.Context(), payload, c.GetHeader(HeaderStripeSignature))
	if err != nil {
		status := statusFor(domain.KindOf(err))
		if status >= http.StatusInternalServerError {
			c.String(status, "internal error")
			return
		}
		c.String(status, message(err))
		return
	}

	switch res.Outcome {
	case webhook.OutcomeApplied:
		c.String(http.StatusOK, "processed")
	case webhook.OutcomeDuplicate:
		c.String(http.StatusOK, "already processed")
	default:
		c.String(http.StatusOK, "ignored")
	}
}
