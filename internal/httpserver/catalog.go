package httpserver

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/service/cart"

	"github.com/gin-gonic/gin"
)

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type catalogHandlers struct {
	products  ProductService
	carts     CartService
	wishlists WishlistService
}

func (h *catalogHandlers) listProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

func (h *catalogHandlers) getProduct(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *catalogHandlers) getCart(c *gin.Context) {
	h.writeCart(c, func(uid string) (*domain.Cart, error) {
		return h.carts.Get(c.Request.Context(), uid)
	})
}

func (h *catalogHandlers) addCartItem(c *gin.Context) {
	var req cart.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	h.writeCart(c, func(uid string) (*domain.Cart, error) {
		return h.carts.AddItem(c.Request.Context(), uid, req)
	})
}

func (h *catalogHandlers) setCartItem(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	h.writeCart(c, func(uid string) (*domain.Cart, error) {
		return h.carts.SetQuantity(c.Request.Context(), uid, c.Param("productId"), req.Quantity)
	})
}

func (h *catalogHandlers) removeCartItem(c *gin.Context) {
	h.writeCart(c, func(uid string) (*domain.Cart, error) {
		return h.carts.RemoveItem(c.Request.Context(), uid, c.Param("productId"))
	})
}

func (h *catalogHandlers) clearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), identityFrom(c).UID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *catalogHandlers) writeCart(c *gin.Context, fn func(uid string) (*domain.Cart, error)) {
	ct, err := fn(identityFrom(c).UID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *catalogHandlers) listWishlist(c *gin.Context) {
	items, err := h.wishlists.List(c.Request.Context(), identityFrom(c).UID)
	h.writeWishlist(c, items, err)
}

func (h *catalogHandlers) addWishlist(c *gin.Context) {
	var req wishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("productId required"))
		return
	}
	items, err := h.wishlists.Add(c.Request.Context(), identityFrom(c).UID, req.ProductID)
	h.writeWishlist(c, items, err)
}

func (h *catalogHandlers) removeWishlist(c *gin.Context) {
	items, err := h.wishlists.Remove(c.Request.Context(), identityFrom(c).UID, c.Param("productId"))
	h.writeWishlist(c, items, err)
}

func (h *catalogHandlers) writeWishlist(c *gin.Context, items []domain.WishlistItem, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []domain.WishlistItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
