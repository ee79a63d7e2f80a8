package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/luvwish-checkout/api/controllers"
	"github.com/angelmondragon/luvwish-checkout/api/middleware"
	"github.com/angelmondragon/luvwish-checkout/api/routes"
	"github.com/angelmondragon/luvwish-checkout/internal/checkout"
	"github.com/angelmondragon/luvwish-checkout/internal/gateway"
	"github.com/angelmondragon/luvwish-checkout/internal/guard"
	"github.com/angelmondragon/luvwish-checkout/internal/notifications"
	"github.com/angelmondragon/luvwish-checkout/internal/pricing"
	"github.com/angelmondragon/luvwish-checkout/pkg/auth"
	"github.com/angelmondragon/luvwish-checkout/pkg/config"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
	"github.com/angelmondragon/luvwish-checkout/pkg/metrics"
	"github.com/angelmondragon/luvwish-checkout/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "checkout-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "checkout-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "checkout api stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	gatewayMetrics := metrics.NewGatewayMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	var redisClient *redis.Client
	if cfg.Checkout.UsesRedis() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}

	gwDeps := gateway.Deps{Metrics: gatewayMetrics, Logger: logg}
	cartGateway, err := gateway.NewCartGateway(cfg.Gateway, gwDeps)
	if err != nil {
		return err
	}
	addressGateway, err := gateway.NewAddressGateway(cfg.Gateway, gwDeps)
	if err != nil {
		return err
	}
	couponGateway, err := gateway.NewCouponGateway(cfg.Gateway, gwDeps)
	if err != nil {
		return err
	}

	fees, err := pricing.ParseFees(cfg.Checkout.ExpressFee)
	if err != nil {
		return err
	}
	policy, err := guard.ParsePolicy(cfg.Checkout.GuardPolicy)
	if err != nil {
		return err
	}
	lineGuard, err := newGuard(cfg.Checkout, redisClient, policy)
	if err != nil {
		return err
	}
	store, err := newStore(cfg.Checkout, redisClient)
	if err != nil {
		return err
	}

	queue := notifications.NewQueue(0)
	noticeRepo := notifications.NewMemoryRepository()
	consumer, err := notifications.NewConsumer(queue, noticeRepo, logg, cfg.Checkout.NoticeDuration)
	if err != nil {
		return err
	}
	noticeService, err := notifications.NewService(noticeRepo)
	if err != nil {
		return err
	}

	authenticator, err := auth.NewAuthenticator(cfg.JWT)
	if err != nil {
		return err
	}

	checkoutService, err := checkout.NewService(checkout.Deps{
		Cart:       cartGateway,
		Addresses:  addressGateway,
		Coupons:    couponGateway,
		Guard:      lineGuard,
		Store:      store,
		Notices:    queue,
		Fees:       fees,
		EntryPoint: cfg.App.EntryPoint,
		Metrics:    checkoutMetrics,
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	var pinger controllers.Pinger
	if redisClient != nil {
		pinger = redisClient
	}
	var authn middleware.Authenticator = authenticator

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			Authenticator: authn,
			Checkout:      checkoutService,
			Notices:       noticeService,
			Redis:         pinger,
			Gatherer:      registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          server.Addr,
		"guard_policy":  string(policy),
		"guard_backend": cfg.Checkout.GuardBackend,
		"session_store": cfg.Checkout.SessionBackend,
	})
	logg.Info(ctx, "starting checkout api")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "checkout api shutting down gracefully")
	return nil
}

func newGuard(cfg config.CheckoutConfig, client *redis.Client, policy guard.Policy) (guard.Guard, error) {
	if strings.EqualFold(cfg.GuardBackend, config.BackendRedis) {
		return guard.NewRedis(client, policy, cfg.GuardLockTTL)
	}
	return guard.NewMemory(policy), nil
}

func newStore(cfg config.CheckoutConfig, client *redis.Client) (checkout.Store, error) {
	if strings.EqualFold(cfg.SessionBackend, config.BackendRedis) {
		return checkout.NewRedisStore(client, cfg.SessionTTL)
	}
	return checkout.NewMemoryStore(cfg.SessionTTL), nil
}
