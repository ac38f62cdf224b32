package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"florashop-be/internal/breaker"
	"florashop-be/internal/cart"
	"florashop-be/internal/config"
	"florashop-be/internal/db"
	"florashop-be/internal/httpapi"
	"florashop-be/internal/logger"
	"florashop-be/internal/metrics"
	"florashop-be/internal/middleware"
	"florashop-be/internal/order"
	"florashop-be/internal/payment"
	"florashop-be/internal/product"
	"florashop-be/internal/stock"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()
	log := logger.L()

	database := db.InitDB(cfg)
	defer database.Close()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
	} else {
		log.Warn("REDIS_ADDR not set, cart cache disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, limiter := buildHandler(cfg, database, rdb, reg)
	go limiter.Cleanup(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("🚀 storefront API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
}

// buildHandler wires repositories, services and the router. rdb may be nil.
func buildHandler(cfg *config.Config, conn *sql.DB, rdb *redis.Client, reg *prometheus.Registry) (http.Handler, *middleware.Limiter) {
	m := metrics.New(reg)

	productRepo := product.NewRepository(conn)
	catalog := product.WithBreaker(productRepo, breaker.Settings{Name: "catalog"})
	cartRepo := cart.NewRepository(conn)

	var cache cart.Cache = cart.NoopCache{}
	if rdb != nil {
		cache = cart.NewRedisCache(rdb)
	}

	reconciler := payment.NewReconciliationService(payment.NewReconciliationRepository(conn), m)

	orderSvc := order.NewService(order.Deps{
		Orders:     order.NewRepository(conn, productRepo, cartRepo),
		Carts:      cartRepo,
		Validator:  stock.NewValidator(catalog),
		Gateway:    newGateway(cfg),
		Reconciler: reconciler,
		CartCache:  cache,
		Metrics:    m,
	})

	limiter := middleware.NewLimiter(cfg.InternalSecretKey)
	handler := httpapi.NewRouter(httpapi.Deps{
		Carts:           cart.NewService(cartRepo, catalog, cache, m),
		Orders:          orderSvc,
		Products:        product.NewService(productRepo),
		Reconciliations: reconciler,
		JWTSecret:       []byte(cfg.JWTSecret),
		Limiter:         limiter,
		Metrics:         m,
		Gatherer:        reg,
		RequestTimeout:  cfg.RequestTimeout,
		Ping:            conn.PingContext,
	})
	return handler, limiter
}

// newGateway talks to the configured provider, or simulates one when
// PAYMENT_BASE_URL is empty.
func newGateway(cfg *config.Config) payment.Gateway {
	settings := breaker.Settings{Name: "payment"}
	if cfg.PaymentBaseURL == "" {
		logger.L().Warn("PAYMENT_BASE_URL not set, using simulated payment gateway")
		return payment.WithBreaker(payment.NewSimulatedGateway(cfg.PaymentSimDeclineOver), settings)
	}
	return payment.WithBreaker(
		payment.NewHTTPGateway(cfg.PaymentBaseURL, cfg.PaymentAPIKey, cfg.PaymentTimeout),
		settings,
	)
}
