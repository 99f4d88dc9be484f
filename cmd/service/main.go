package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/config"
	httphandler "github.com/kjstillabower/weather-dashboard/internal/http"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/ratelimit"
	"github.com/kjstillabower/weather-dashboard/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("configuration loaded", zap.String("env", cfg.EnvName), zap.Bool("production", cfg.Production))

	clientOptions := func(provider string, rps float64) client.Options {
		opts := client.Options{Timeout: cfg.UpstreamTimeout, Logger: logger}
		if cfg.CircuitBreakerEnabled {
			opts.Breaker = circuitbreaker.New(circuitbreaker.Config{
				FailureThreshold: cfg.CircuitBreakerFailureThreshold,
				SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
				Timeout:          cfg.CircuitBreakerTimeout,
				Component:        provider,
				IsFailure:        client.IsBreakerFailure,
				OnStateChange: func(component, from, to string) {
					observability.RecordCircuitBreakerTransition(component, from, to)
					logger.Warn("circuit breaker state change",
						zap.String("component", component), zap.String("from", from), zap.String("to", to))
				},
			})
			observability.CircuitBreakerState.WithLabelValues(provider).Set(0)
		}
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			opts.Throttle = rate.NewLimiter(rate.Limit(rps), burst)
		}
		return opts
	}

	geocoder, err := client.NewGeocodeClient(cfg.GeocodeAPIKey, cfg.GeocodeAPIURL, cfg.GeocodeResultLimit,
		clientOptions(client.ProviderGeocode, cfg.GeocodeRPS))
	if err != nil {
		logger.Fatal("geocode client", zap.Error(err))
	}
	forecast, err := client.NewForecastClient(cfg.WeatherAPIURL, cfg.WeatherUnits,
		clientOptions(client.ProviderForecast, cfg.ForecastRPS))
	if err != nil {
		logger.Fatal("forecast client", zap.Error(err))
	}
	images, err := client.NewImageClient(cfg.UnsplashAccessKey, cfg.UnsplashAPIURL,
		clientOptions(client.ProviderImagery, cfg.ImageryRPS))
	if err != nil {
		logger.Fatal("imagery client", zap.Error(err))
	}
	if cfg.CircuitBreakerEnabled {
		logger.Info("circuit breakers enabled",
			zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
			zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	// One redis client serves both the cache and the rate limit store when either asks for it.
	var redisClient *redis.Client
	if cfg.CacheBackend == config.CacheBackendRedis || cfg.RateLimitStore == config.RateLimitStoreRedis {
		redisClient, err = cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
	}

	healthConfig := &httphandler.HealthConfig{StartTime: time.Now()}
	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case config.CacheBackendMemcached:
		mc := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		memcacheCloser = mc
		cacheSvc = mc
		healthConfig.CachePing = mc.Ping
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case config.CacheBackendRedis:
		rc := cache.NewRedisCache(redisClient, "")
		cacheSvc = rc
		healthConfig.CachePing = rc.Ping
		logger.Info("cache backend: redis")
	default:
		mc, err := cache.NewMemoryCache(cfg.CacheMaxEntries)
		if err != nil {
			logger.Fatal("memory cache", zap.Error(err))
		}
		cacheSvc = mc
		logger.Info("cache backend: memory", zap.Int("max_entries", cfg.CacheMaxEntries))
	}

	dashboard := service.NewDashboardService(geocoder, forecast, images, cacheSvc, service.TTLs{
		Geocode: cfg.GeocodeCacheTTL,
		Weather: cfg.WeatherCacheTTL,
		Image:   cfg.ImageCacheTTL,
	}, cfg.CoalesceTimeout)

	var limiter ratelimit.Limiter
	if cfg.RateLimitMax > 0 {
		var store ratelimit.Store
		if cfg.RateLimitStore == config.RateLimitStoreRedis {
			store = ratelimit.NewRedisStore(redisClient, "")
		}
		limiter = ratelimit.NewFixedWindowLimiter(store, cfg.RateLimitMax, cfg.RateLimitWindow)
		logger.Info("rate limiting enabled",
			zap.Int("max", cfg.RateLimitMax), zap.Duration("window", cfg.RateLimitWindow), zap.String("store", cfg.RateLimitStore))
	}
	keyFunc := ratelimit.RemoteAddrKeyFunc
	if cfg.TrustForwardedFor {
		keyFunc = ratelimit.ForwardedKeyFunc
	}

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set; POST /api/cache/clear is unauthenticated")
	}

	handler := httphandler.NewHandler(dashboard, healthConfig, logger, cfg.Production)
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		Logger:         logger,
		Production:     cfg.Production,
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		KeyFunc:        keyFunc,
		AdminToken:     cfg.AdminToken,
	})

	warmCtx, stopWarming := context.WithCancel(context.Background())
	defer stopWarming()
	if cfg.WarmCache && len(cfg.WarmLocations) > 0 {
		warmer := cache.NewCacheWarmer(dashboard, logger)
		initCtx, initCancel := context.WithTimeout(warmCtx, 30*time.Second)
		if err := warmer.Warm(initCtx, cfg.WarmLocations); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		initCancel()
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(warmCtx, cfg.WarmLocations, cfg.WarmInterval); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.Bool("https", cfg.HTTPSEnabled))
		var err error
		if cfg.HTTPSEnabled {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	stopWarming()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete", zap.Duration("drain", lifecycle.DrainingFor()))
}
