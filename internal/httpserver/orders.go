package httpserver

import (
	"net/http"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

type orderHandlers struct {
	orders OrderService
}

func (h *orderHandlers) list(c *gin.Context) {
	orders, err := h.orders.ListForUser(c.Request.Context(), identityFrom(c).UID)
	if err != nil {
		respondError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *orderHandlers) get(c *gin.Context) {
	o, err := h.orders.GetForUser(c.Request.Context(), identityFrom(c).UID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
