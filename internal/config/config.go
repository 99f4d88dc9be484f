package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

const (
	CacheBackendMemory    = "memory"
	CacheBackendMemcached = "memcached"
	CacheBackendRedis     = "redis"

	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Config holds service configuration loaded from YAML, .env and the environment.
type Config struct {
	EnvName string
	// Production withholds error details from 5xx and 429 responses.
	Production bool

	ServerPort   string
	HTTPSEnabled bool
	TLSCertPath  string
	TLSKeyPath   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	GeocodeAPIKey      string
	GeocodeAPIURL      string
	GeocodeResultLimit int
	WeatherAPIURL      string
	WeatherUnits       models.Units
	UnsplashAccessKey  string
	UnsplashAPIURL     string
	UpstreamTimeout    time.Duration

	RequestTimeout  time.Duration
	CoalesceTimeout time.Duration

	CacheBackend    string
	CacheMaxEntries int
	GeocodeCacheTTL time.Duration
	WeatherCacheTTL time.Duration
	ImageCacheTTL   time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	RedisURL              string

	// RateLimitMax is the per-client budget per window. Zero disables the limiter.
	RateLimitMax      int
	RateLimitWindow   time.Duration
	RateLimitStore    string
	TrustForwardedFor bool

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	// Outbound requests per second per provider. Zero disables the throttle.
	GeocodeRPS  float64
	ForecastRPS float64
	ImageryRPS  float64

	AdminToken string

	WarmCache     bool
	WarmInterval  time.Duration
	WarmLocations []models.WeatherQuery

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port         string `yaml:"port"`
		HTTPSEnabled *bool  `yaml:"https_enabled"`
		TLSCertPath  string `yaml:"tls_cert_path"`
		TLSKeyPath   string `yaml:"tls_key_path"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`

	Upstreams struct {
		Timeout string `yaml:"timeout"`
		Geocode struct {
			URL   string  `yaml:"url"`
			Limit int     `yaml:"limit"`
			RPS   float64 `yaml:"rps"`
		} `yaml:"geocode"`
		Forecast struct {
			URL   string  `yaml:"url"`
			Units string  `yaml:"units"`
			RPS   float64 `yaml:"rps"`
		} `yaml:"forecast"`
		Imagery struct {
			URL string  `yaml:"url"`
			RPS float64 `yaml:"rps"`
		} `yaml:"imagery"`
	} `yaml:"upstreams"`

	Request struct {
		Timeout         string `yaml:"timeout"`
		CoalesceTimeout string `yaml:"coalesce_timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend    string `yaml:"backend"`
		MaxEntries int    `yaml:"max_entries"`
		TTL        struct {
			Geocode string `yaml:"geocode"`
			Weather string `yaml:"weather"`
			Image   string `yaml:"image"`
		} `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			URL string `yaml:"url"`
		} `yaml:"redis"`
		Warm struct {
			Enabled   bool   `yaml:"enabled"`
			Interval  string `yaml:"interval"`
			Locations []struct {
				Latitude  float64 `yaml:"latitude"`
				Longitude float64 `yaml:"longitude"`
				Timezone  string  `yaml:"timezone"`
			} `yaml:"locations"`
		} `yaml:"warm"`
	} `yaml:"cache"`

	RateLimit struct {
		Max               *int   `yaml:"max"`
		Window            string `yaml:"window"`
		Store             string `yaml:"store"`
		TrustForwardedFor bool   `yaml:"trust_forwarded_for"`
	} `yaml:"rate_limit"`

	CircuitBreaker struct {
		Enabled          *bool  `yaml:"enabled"`
		FailureThreshold int    `yaml:"failure_threshold"`
		SuccessThreshold int    `yaml:"success_threshold"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	GeocodeAPIKey     string `yaml:"geocode_api_key"`
	UnsplashAccessKey string `yaml:"unsplash_access_key"`
	AdminToken        string `yaml:"admin_token"`
}

// Load reads configuration relative to the working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadDir(cwd)
}

// LoadDir reads dir/.env (optional), dir/config/{ENV_NAME}.yaml (optional,
// ENV_NAME defaults to dev) and dir/config/secrets.yaml (optional), then
// applies environment overrides. Values already in the environment win over .env.
func LoadDir(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := strings.TrimSpace(os.Getenv("ENV_NAME"))
	if env == "" {
		env = "dev"
	}

	var fc fileConfig
	configPath := filepath.Join(dir, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var sec secretsFile
	secretsPath := filepath.Join(dir, "config", "secrets.yaml")
	secretsData, err := os.ReadFile(secretsPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(secretsData, &sec); err != nil {
			return nil, fmt.Errorf("parse secrets file: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	cfg := &Config{EnvName: env}
	cfg.Production = isProduction(env)

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8080")
	cfg.HTTPSEnabled = fc.Server.HTTPSEnabled != nil && *fc.Server.HTTPSEnabled
	if v, ok := envBool("HTTPS_ENABLED"); ok {
		cfg.HTTPSEnabled = v
	}
	cfg.TLSCertPath = firstNonEmpty(os.Getenv("TLS_CERT_PATH"), fc.Server.TLSCertPath)
	cfg.TLSKeyPath = firstNonEmpty(os.Getenv("TLS_KEY_PATH"), fc.Server.TLSKeyPath)
	cfg.ReadTimeout = parseDuration(fc.Server.ReadTimeout, 10*time.Second)
	cfg.WriteTimeout = parseDuration(fc.Server.WriteTimeout, 20*time.Second)

	cfg.GeocodeAPIKey = firstNonEmpty(os.Getenv("GEOCODE_API_KEY"), sec.GeocodeAPIKey)
	cfg.GeocodeAPIURL = firstNonEmpty(os.Getenv("GEOCODE_API_URL"), fc.Upstreams.Geocode.URL, "https://api.opencagedata.com/geocode/v1/json")
	cfg.GeocodeResultLimit = fc.Upstreams.Geocode.Limit
	if cfg.GeocodeResultLimit <= 0 {
		cfg.GeocodeResultLimit = 10
	}
	cfg.WeatherAPIURL = firstNonEmpty(os.Getenv("WEATHER_API_URL"), fc.Upstreams.Forecast.URL, "https://api.open-meteo.com/v1/forecast")
	cfg.WeatherUnits = models.Units(strings.ToLower(firstNonEmpty(os.Getenv("WEATHER_UNITS"), fc.Upstreams.Forecast.Units, string(models.UnitsMetric))))
	cfg.UnsplashAccessKey = firstNonEmpty(os.Getenv("UNSPLASH_ACCESS_KEY"), sec.UnsplashAccessKey)
	cfg.UnsplashAPIURL = firstNonEmpty(os.Getenv("UNSPLASH_API_URL"), fc.Upstreams.Imagery.URL, "https://api.unsplash.com")
	cfg.UpstreamTimeout = parseDurationOrZero(fc.Upstreams.Timeout, 5*time.Second)
	cfg.GeocodeRPS = fc.Upstreams.Geocode.RPS
	cfg.ForecastRPS = fc.Upstreams.Forecast.RPS
	cfg.ImageryRPS = fc.Upstreams.Imagery.RPS

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)
	cfg.CoalesceTimeout = parseDuration(fc.Request.CoalesceTimeout, 15*time.Second)

	cfg.CacheBackend = strings.ToLower(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fc.Cache.Backend, CacheBackendMemory))
	cfg.CacheMaxEntries = fc.Cache.MaxEntries
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = 1000
	}
	cfg.GeocodeCacheTTL = parseDurationOrZero(fc.Cache.TTL.Geocode, 24*time.Hour)
	cfg.WeatherCacheTTL = parseDurationOrZero(fc.Cache.TTL.Weather, 10*time.Minute)
	cfg.ImageCacheTTL = parseDurationOrZero(fc.Cache.TTL.Image, time.Hour)
	cfg.MemcachedAddrs = firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.RedisURL = firstNonEmpty(os.Getenv("REDIS_URL"), fc.Cache.Redis.URL)

	cfg.WarmCache = fc.Cache.Warm.Enabled
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.Warm.Interval, 0)
	for _, l := range fc.Cache.Warm.Locations {
		cfg.WarmLocations = append(cfg.WarmLocations, models.WeatherQuery{
			Latitude:  l.Latitude,
			Longitude: l.Longitude,
			Timezone:  strings.TrimSpace(l.Timezone),
		})
	}

	cfg.RateLimitMax = 100
	if fc.RateLimit.Max != nil {
		cfg.RateLimitMax = *fc.RateLimit.Max
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_MAX must be an integer: %w", err)
		}
		cfg.RateLimitMax = n
	}
	cfg.RateLimitWindow = parseDuration(fc.RateLimit.Window, 15*time.Minute)
	cfg.RateLimitStore = strings.ToLower(firstNonEmpty(fc.RateLimit.Store, RateLimitStoreMemory))
	cfg.TrustForwardedFor = fc.RateLimit.TrustForwardedFor

	cfg.CircuitBreakerEnabled = fc.CircuitBreaker.Enabled == nil || *fc.CircuitBreaker.Enabled
	cfg.CircuitBreakerFailureThreshold = fc.CircuitBreaker.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = fc.CircuitBreaker.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 2
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.CircuitBreaker.Timeout, 30*time.Second)

	cfg.AdminToken = firstNonEmpty(os.Getenv("ADMIN_TOKEN"), sec.AdminToken)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isProduction reports whether env names a production-style deployment.
func isProduction(env string) bool {
	switch strings.ToLower(env) {
	case "production", "prod":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// envBool reads a boolean env var; ok is false when unset or unparseable.
func envBool(key string) (value, ok bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return false, false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return v, true
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (validate rejects them where they matter).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values. Every
// problem is reported. RequestTimeout is raised above UpstreamTimeout when needed.
func validate(cfg *Config) error {
	var errs []error

	if cfg.GeocodeAPIKey == "" {
		errs = append(errs, errors.New("GEOCODE_API_KEY required (set env or config/secrets.yaml geocode_api_key)"))
	}
	if cfg.UnsplashAccessKey == "" {
		errs = append(errs, errors.New("UNSPLASH_ACCESS_KEY required (set env or config/secrets.yaml unsplash_access_key)"))
	}
	if cfg.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("upstreams.timeout must be positive"))
	} else if cfg.RequestTimeout <= cfg.UpstreamTimeout {
		cfg.RequestTimeout = cfg.UpstreamTimeout + time.Second
	}
	if cfg.WeatherUnits != models.UnitsMetric && cfg.WeatherUnits != models.UnitsImperial {
		errs = append(errs, fmt.Errorf("upstreams.forecast.units must be metric or imperial, got %q", cfg.WeatherUnits))
	}

	ttls := []struct {
		name string
		ttl  time.Duration
	}{
		{"geocode", cfg.GeocodeCacheTTL},
		{"weather", cfg.WeatherCacheTTL},
		{"image", cfg.ImageCacheTTL},
	}
	for _, t := range ttls {
		if t.ttl <= 0 {
			errs = append(errs, fmt.Errorf("cache.ttl.%s must be positive", t.name))
		}
	}

	switch cfg.CacheBackend {
	case CacheBackendMemory, CacheBackendMemcached:
	case CacheBackendRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("cache.backend redis requires REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be memory, memcached or redis, got %q", cfg.CacheBackend))
	}

	if cfg.RateLimitMax < 0 {
		errs = append(errs, errors.New("rate_limit.max must not be negative"))
	}
	switch cfg.RateLimitStore {
	case RateLimitStoreMemory:
	case RateLimitStoreRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("rate_limit.store redis requires REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("rate_limit.store must be memory or redis, got %q", cfg.RateLimitStore))
	}

	if cfg.HTTPSEnabled && (cfg.TLSCertPath == "" || cfg.TLSKeyPath == "") {
		errs = append(errs, errors.New("HTTPS_ENABLED requires TLS_CERT_PATH and TLS_KEY_PATH"))
	}

	if cfg.WarmCache && cfg.WarmInterval < 0 {
		errs = append(errs, errors.New("cache.warm.interval must not be negative"))
	}
	for i, l := range cfg.WarmLocations {
		if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
			errs = append(errs, fmt.Errorf("cache.warm.locations[%d]: coordinates out of range", i))
		}
		if _, err := time.LoadLocation(l.Timezone); l.Timezone == "" || err != nil {
			errs = append(errs, fmt.Errorf("cache.warm.locations[%d]: invalid timezone %q", i, l.Timezone))
		}
	}

	return errors.Join(errs...)
}
