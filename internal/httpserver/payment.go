package httpserver

import (
	"net/http"

	"storefront/internal/notify"
	"storefront/internal/service/checkout"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type paymentHandlers struct {
	checkout CheckoutService
	logger   *logrus.Logger
}

func (h *paymentHandlers) createOrder(c *gin.Context) {
	var req checkout.IntentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	raw, err := h.checkout.CreateIntent(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// verify finalizes a captured payment. Notification outcomes never alter
// the response.
func (h *paymentHandlers) verify(c *gin.Context) {
	var req checkout.FinalizeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	res, err := h.checkout.Finalize(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_id":      res.OrderID,
		"duplicate":     res.Duplicate,
		"notify_failed": len(notify.Failures(res.Notifications)),
	}).Debug("payment verified")
	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": res.OrderID})
}
