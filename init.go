package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/tournevent/lockerlink/internal/config"
	"github.com/tournevent/lockerlink/internal/fulfillment"
	"github.com/tournevent/lockerlink/internal/orders"
	"github.com/tournevent/lockerlink/internal/session"
	"github.com/tournevent/lockerlink/internal/telemetry"
	"github.com/tournevent/lockerlink/pkg/locker/boxnow"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, cfg.ServiceName)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
	return shutdown, err
}

// app holds the wired service components.
type app struct {
	manager *fulfillment.Manager
	courier *boxnow.Client
	store   orders.Store
	redis   *redis.Client
}

// Close releases the order store and the Redis connection.
func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}

func initApp(ctx context.Context, cfg *config.Config, logger *otelzap.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{}

	if cfg.SessionStore == config.BackendRedis || cfg.TokenCache == config.BackendRedis {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.redis.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
	}

	store, err := initOrderStore(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.store = store

	a.courier = initCourier(cfg, logger, a.redis)

	var sessions session.Store
	if cfg.SessionStore == config.BackendRedis {
		sessions = session.NewRedisStore(a.redis, cfg.ServiceName, cfg.SessionTTL)
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	a.manager = fulfillment.NewManager(fulfillment.Config{
		Warehouses:     cfg.Warehouses,
		OriginPhone:    cfg.OriginPhone,
		OriginEmail:    cfg.OriginEmail,
		VoucherMode:    cfg.VoucherMode,
		CODMethod:      cfg.CODMethod,
		ShippingMethod: cfg.ShippingMethod,
		CanceledStatus: cfg.CanceledStatus,
	}, a.store, sessions, a.courier, telemetry.NewMetrics(reg), logger)

	logger.Debug("Components initialized",
		zap.String("order_store", cfg.OrderStore),
		zap.String("session_store", cfg.SessionStore),
		zap.String("token_cache", cfg.TokenCache),
	)
	return a, nil
}

func initOrderStore(cfg *config.Config) (orders.Store, error) {
	if cfg.OrderStore == config.BackendSQLite {
		store, err := orders.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening order store: %w", err)
		}
		return store, nil
	}
	return orders.NewMemoryStore(), nil
}

func initCourier(cfg *config.Config, logger *otelzap.Logger, rdb *redis.Client) *boxnow.Client {
	tracer := otel.GetTracerProvider().Tracer(cfg.ServiceName)

	client := boxnow.New(boxnow.Config{
		BaseURL:      cfg.BoxNowBaseURL,
		ClientID:     cfg.BoxNowClientID,
		ClientSecret: cfg.BoxNowClientSecret,
		VoucherMode:  cfg.VoucherMode,
		VoucherEmail: cfg.VoucherEmail,
		AllowReturns: cfg.AllowReturns,
		CancelPath:   cfg.BoxNowCancelPath,
		LabelPath:    cfg.BoxNowLabelPath,
		Timeout:      cfg.BoxNowTimeout,
		TokenTTL:     cfg.BoxNowTokenTTL,
		UseMock:      cfg.BoxNowUseMock,
	}, logger, tracer)

	switch cfg.TokenCache {
	case config.BackendMemory:
		client = client.WithTokenCache(boxnow.NewMemoryTokenCache())
	case config.BackendRedis:
		client = client.WithTokenCache(boxnow.NewRedisTokenCache(rdb, cfg.ServiceName))
	}
	return client
}
