package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/pricing"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger

	if cfg.Database.RunMigrations {
		if err := db.RunMigrations(cfg.Database.DSN, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	rate, err := cfg.TaxRate()
	if err != nil {
		return err
	}
	svc, err := cart.NewService(rate, logger)
	if err != nil {
		return err
	}

	client, err := pricing.NewClient(&http.Client{Timeout: cfg.PricingTimeout()}, cfg.Cart.Pricing.BaseURL, logger)
	if err != nil {
		return err
	}
	var prices pricing.Fetcher = client

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		prices = pricing.NewCachingFetcher(client, pricing.NewRedisCache(rdb, cfg.Cart.Pricing.CacheTTL), logger)
		logger.Info("price cache enabled", zap.Duration("ttl", cfg.Cart.Pricing.CacheTTL))
	}

	var publisher httpapi.CartEventsPublisher
	if cfg.RabbitMQ.URL != "" {
		conn, err := events.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		defer conn.Close()

		pub, err := events.NewRabbitPublisher(conn, events.NewSequenceRepository(pool), events.PublisherOptions{}, logger)
		if err != nil {
			return fmt.Errorf("create cart publisher: %w", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("publisher close error", zap.Error(err))
			}
		}()
		publisher = pub
	} else {
		logger.Warn("rabbitmq url not set, checkout events disabled")
	}

	handler := httpapi.NewHandler(cart.NewPostgresRepository(pool), svc, prices, publisher, logger)
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httpapi.NewRouter(handler),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("cart-service listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
