package httpserver

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string           `json:"token"`
	ExpiresIn int              `json:"expiresIn"`
	Customer  *domain.Customer `json:"customer"`
}

type authHandlers struct {
	customers CustomerService
	opts      Options
	logger    *logrus.Logger
}

func (h *authHandlers) signup(c *gin.Context) {
	var req customer.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	created, err := h.customers.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *authHandlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("email and password required"))
		return
	}
	cust, token, err := h.customers.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	maxAge := int(h.opts.TokenTTL.Seconds())
	h.setCookie(c, token, maxAge)
	c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresIn: maxAge, Customer: cust})
}

func (h *authHandlers) logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (h *authHandlers) me(c *gin.Context) {
	cust, err := h.customers.LookupByToken(c.Request.Context(), tokenFrom(c, h.opts.CookieName))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *authHandlers) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, value, maxAge, "/", "", h.opts.CookieSecure, true)
}
