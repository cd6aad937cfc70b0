package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type verifyRequest struct {
	Token string `json:"token"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type adminHandlers struct {
	gate     AdminAuthorizer
	orders   OrderService
	shipping ShippingService
	opts     Options
	logger   *logrus.Logger
}

// verify is the authoritative admin check used by the console on load.
func (h *adminHandlers) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"isValid": false})
		return
	}
	id, err := h.gate.Authorize(req.Token)
	if err != nil {
		status, _ := statusFor(err)
		h.logger.WithError(err).Debug("admin verify rejected")
		c.JSON(status, gin.H{"isValid": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isValid": true, "email": id.Email, "uid": id.UID})
}

func (h *adminHandlers) listOrders(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.orders.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *adminHandlers) getOrder(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *adminHandlers) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("status required"))
		return
	}
	o, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.WithFields(logrus.Fields{
		"order_id": o.ID,
		"status":   o.Status,
		"admin":    identityFrom(c).Email,
	}).Info("order status changed")
	c.JSON(http.StatusOK, o)
}

func (h *adminHandlers) deleteOrder(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	h.logger.WithFields(logrus.Fields{
		"order_id": c.Param("id"),
		"admin":    identityFrom(c).Email,
	}).Info("order deleted")
	c.Status(http.StatusNoContent)
}

func (h *adminHandlers) createShipment(c *gin.Context) {
	var req domain.Shipment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body"})
		return
	}
	res, err := h.shipping.Handoff(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		status := http.StatusInternalServerError
		if domain.IsValidation(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "shiprocket": res.Raw})
}

// console serves the admin single-page app. Unknown paths fall back to
// index.html so client-side routes survive a reload.
func (h *adminHandlers) console(c *gin.Context) {
	if h.opts.StaticDir == "" {
		c.JSON(http.StatusNotFound, errorBody("admin console not configured"))
		return
	}
	rel := path.Clean("/" + c.Param("path"))
	if _, err := os.Stat(filepath.Join(h.opts.StaticDir, filepath.FromSlash(rel))); err != nil {
		rel = "/"
	}
	c.FileFromFS(rel, http.Dir(h.opts.StaticDir))
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Invalid(key, "must be an integer")
	}
	if n < 0 {
		return 0, domain.Invalid(key, "must not be negative")
	}
	return n, nil
}
