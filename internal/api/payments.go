package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/dto"
	"storefront/internal/payment"
)

func (h *handler) createPaymentIntent(c *gin.Context) {
	b, err := h.Payments.CreateOrUpdateIntent(c.Request.Context(), identityName(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.MapBasket(b))
}

func (h *handler) stripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		_ = c.Error(bindError{err})
		return
	}
	if err := h.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader(payment.SignatureHeader)); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}
