package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/gateway/razorpay"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/notify"
	cartrepo "storefront/internal/repository/cart"
	customerrepo "storefront/internal/repository/customer"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	wishlistrepo "storefront/internal/repository/wishlist"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	customersvc "storefront/internal/service/customer"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	shippingsvc "storefront/internal/service/shipping"
	wishlistsvc "storefront/internal/service/wishlist"
	"storefront/internal/shipping/shiprocket"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger := logging.New("api", cfg.App.LogLevel, cfg.App.LogFile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DB.DSN, logger)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	readiness := map[string]httpserver.Pinger{"db": dbpool}

	var locks checkoutsvc.Locks
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		store := cache.NewIdempotencyStore(rdb, cfg.Idempotency.TTL)
		if err := store.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup; payment idempotency falls back to the database")
		}
		locks = store
		readiness["redis"] = store
	} else {
		logger.Warn("redis not configured; payment idempotency relies on the database constraint only")
	}

	var events notify.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.WithError(err).Warn("kafka publisher disabled")
		} else {
			defer pub.Close()
			events = pub
		}
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	admins := auth.NewAllowList(cfg.Auth.AdminEmails)
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret not set; login and admin verification will fail")
	}
	if admins.Len() == 0 {
		logger.Warn("auth.admin_emails empty; no identity can reach the admin API")
	}

	customerRepo := customerrepo.NewPostgres(dbpool, logger)
	productRepo := productrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool)
	wishlistRepo := wishlistrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	cartService := cartsvc.New(cartRepo)
	orderService := ordersvc.New(orderRepo, logger)

	mailer := notify.NewSMTPSender(notify.SMTPConfig{
		Host:      cfg.Mail.SMTPHost,
		Port:      cfg.Mail.SMTPPort,
		Username:  cfg.Mail.Username,
		Password:  cfg.Mail.Password,
		From:      cfg.Mail.From,
		StoreName: cfg.Mail.StoreName,
	})
	dispatcher := notify.NewDispatcher(mailer, events, notify.Options{
		StoreName:  cfg.Mail.StoreName,
		AdminEmail: cfg.Mail.AdminEmail,
		Timeout:    cfg.Notify.Timeout,
	}, logger)

	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.BaseURL,
	}, logger)
	carrier := shiprocket.NewClient(shiprocket.Config{
		Email:          cfg.Shiprocket.Email,
		Password:       cfg.Shiprocket.Password,
		BaseURL:        cfg.Shiprocket.BaseURL,
		PickupLocation: cfg.Shiprocket.PickupLocation,
	}, logger)

	srv, err := httpserver.New(cfg.App.HTTPAddr, logger, httpserver.Deps{
		Customers: customersvc.New(customerRepo, issuer),
		Tokens:    issuer,
		Admin:     auth.NewGate(issuer, admins),
		Products:  productsvc.New(productRepo),
		Carts:     cartService,
		Wishlists: wishlistsvc.New(wishlistRepo),
		Checkout:  checkoutsvc.New(gateway, orderRepo, locks, dispatcher, cartService, logger),
		Orders:    orderService,
		Shipping:  shippingsvc.New(carrier, orderService, logger),
		Readiness: readiness,
	}, httpserver.Options{
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
		TokenTTL:     cfg.Auth.TokenTTL,
		CORSOrigins:  cfg.App.CORSOrigins,
		StaticDir:    cfg.App.StaticDir,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serverErr:
		logger.WithError(err).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	} else {
		logger.Info("server stopped")
	}
}
