package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/service/cart"
	"storefront/internal/service/checkout"
	"storefront/internal/service/customer"
	"storefront/internal/service/order"
	"storefront/internal/shipping/shiprocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type CustomerService interface {
	Signup(ctx context.Context, in customer.SignupInput) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (*domain.Customer, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.Customer, error)
}

// TokenVerifier resolves a bearer or cookie token to an identity.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// AdminAuthorizer is the authoritative admin check.
type AdminAuthorizer interface {
	Authorize(raw string) (auth.Identity, error)
}

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type CartService interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, in cart.ItemInput) (*domain.Cart, error)
	SetQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type WishlistService interface {
	List(ctx context.Context, userID string) ([]domain.WishlistItem, error)
	Add(ctx context.Context, userID, productID string) ([]domain.WishlistItem, error)
	Remove(ctx context.Context, userID, productID string) ([]domain.WishlistItem, error)
}

type CheckoutService interface {
	CreateIntent(ctx context.Context, in checkout.IntentInput) (json.RawMessage, error)
	Finalize(ctx context.Context, in checkout.FinalizeInput) (*checkout.FinalizeResult, error)
}

type OrderService interface {
	ListForUser(ctx context.Context, userID string) ([]domain.Order, error)
	GetForUser(ctx context.Context, userID, id string) (*domain.Order, error)
	List(ctx context.Context, status string, limit, offset int) (*order.Page, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error)
	Delete(ctx context.Context, id string) error
}

type ShippingService interface {
	Handoff(ctx context.Context, shipment domain.Shipment) (*shiprocket.Result, error)
}

// Deps bundles the services the router exposes. Readiness entries may be nil.
type Deps struct {
	Customers CustomerService
	Tokens    TokenVerifier
	Admin     AdminAuthorizer
	Products  ProductService
	Carts     CartService
	Wishlists WishlistService
	Checkout  CheckoutService
	Orders    OrderService
	Shipping  ShippingService
	Readiness map[string]Pinger
}

// Options are the transport settings taken from configuration.
type Options struct {
	CookieName   string
	CookieSecure bool
	TokenTTL     time.Duration
	CORSOrigins  []string
	StaticDir    string
}

func (d Deps) validate() error {
	switch {
	case d.Customers == nil:
		return errors.New("customer service required")
	case d.Tokens == nil:
		return errors.New("token verifier required")
	case d.Admin == nil:
		return errors.New("admin authorizer required")
	case d.Products == nil:
		return errors.New("product service required")
	case d.Carts == nil:
		return errors.New("cart service required")
	case d.Wishlists == nil:
		return errors.New("wishlist service required")
	case d.Checkout == nil:
		return errors.New("checkout service required")
	case d.Orders == nil:
		return errors.New("order service required")
	case d.Shipping == nil:
		return errors.New("shipping service required")
	}
	return nil
}

func buildRouter(logger *logrus.Logger, deps Deps, opts Options) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if opts.CookieName == "" {
		opts.CookieName = "token"
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), metricsMiddleware())
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposeHeaders:    []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", healthHandler)
	r.GET("/readyz", readyHandler(deps.Readiness))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	authH := &authHandlers{customers: deps.Customers, opts: opts, logger: logger}
	api.POST("/auth/signup", authH.signup)
	api.POST("/auth/login", authH.login)
	api.POST("/auth/logout", authH.logout)

	catalog := &catalogHandlers{products: deps.Products, carts: deps.Carts, wishlists: deps.Wishlists}
	api.GET("/products", catalog.listProducts)
	api.GET("/products/:id", catalog.getProduct)

	pay := &paymentHandlers{checkout: deps.Checkout, logger: logger}
	api.POST("/payment/create-order", pay.createOrder)
	api.POST("/payment/verify", pay.verify)

	admin := &adminHandlers{gate: deps.Admin, orders: deps.Orders, shipping: deps.Shipping, opts: opts, logger: logger}
	api.POST("/admin/verify", admin.verify)

	user := api.Group("", requireUser(deps.Tokens, opts.CookieName))
	user.GET("/auth/me", authH.me)
	user.GET("/cart", catalog.getCart)
	user.DELETE("/cart", catalog.clearCart)
	user.POST("/cart/items", catalog.addCartItem)
	user.PUT("/cart/items/:productId", catalog.setCartItem)
	user.DELETE("/cart/items/:productId", catalog.removeCartItem)
	user.GET("/wishlist", catalog.listWishlist)
	user.POST("/wishlist", catalog.addWishlist)
	user.DELETE("/wishlist/:productId", catalog.removeWishlist)

	ordersH := &orderHandlers{orders: deps.Orders}
	user.GET("/orders", ordersH.list)
	user.GET("/orders/:id", ordersH.get)

	adminAPI := api.Group("/admin", requireAdmin(deps.Admin, opts.CookieName))
	adminAPI.GET("/orders", admin.listOrders)
	adminAPI.GET("/orders/:id", admin.getOrder)
	adminAPI.PATCH("/orders/:id/status", admin.updateStatus)
	adminAPI.DELETE("/orders/:id", admin.deleteOrder)
	adminAPI.POST("/shipping/orders", admin.createShipment)

	console := r.Group("/admin", requireCookie(opts.CookieName))
	console.GET("", admin.console)
	console.GET("/*path", admin.console)

	return r, nil
}
