// Package config provides runtime configuration values for the service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
)

// Pricing modes accepted by ORDER_PRICING.
const (
	PricingClient = "client"
	PricingServer = "server"
)

// MySQL captures the connection parameters for a MySQL instance.
type MySQL struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
	Params   string
}

// DSN renders the go-sql-driver connection string.
func (m MySQL) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", m.User, m.Password, m.Host, m.Port, m.Database, m.Params)
}

// Config holds configuration knobs for the HTTP server, auth, storage and inventory workers.
type Config struct {
	HTTPAddr        string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	JWTSecret         string
	TokenTTL          time.Duration
	BcryptCost        int
	HashConcurrency   int
	AuthRateLimit     int
	AuthRateWindow    time.Duration
	TrustForwardedFor bool

	CORSAllowedOrigins []string
	CORSAllowLocalhost bool

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	MySQL         MySQL
	SeedFile      string

	OrderPricing           string
	OrderDecrementStock    bool
	OrderStrictTransitions bool

	InitialWorkerCount      int
	WorkerMin               int
	WorkerMax               int
	ScaleInterval           time.Duration
	ScaleUpBacklogPerWorker int
	ScaleDownIdleTicks      int
	QueueHighWatermark      int
}

// Development reports whether error details may be exposed to clients.
func (c Config) Development() bool { return c.Env == "development" }

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func listenv(key, def string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, def), ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	minWorkers := atoienv("WORKER_MIN", 1)
	maxWorkers := atoienv("WORKER_MAX", 4)
	initialWorkers := atoienv("WORKER_COUNT", minWorkers)
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":5000"),
		Env:             getenv("APP_ENV", "production"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),
		RequestTimeout:  durenvms("REQUEST_TIMEOUT_MS", 10000),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          time.Duration(atoienv("TOKEN_TTL_HOURS", 7*24)) * time.Hour,
		BcryptCost:        atoienv("BCRYPT_COST", 12),
		HashConcurrency:   atoienv("HASH_CONCURRENCY", 4),
		AuthRateLimit:     atoienv("AUTH_RATE_LIMIT", 5),
		AuthRateWindow:    durenvs("AUTH_RATE_WINDOW_SEC", 15*60),
		TrustForwardedFor: boolenv("TRUST_FORWARDED_FOR", false),

		CORSAllowedOrigins: listenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		CORSAllowLocalhost: boolenv("CORS_ALLOW_LOCALHOST", true),

		StoreDriver:   strings.ToLower(getenv("STORE_DRIVER", DriverMemory)),
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGO_DATABASE", "storefront"),
		MySQL: MySQL{
			User:     getenv("MYSQL_USER", "storefront"),
			Password: getenv("MYSQL_PASSWORD", "storefront"),
			Host:     getenv("MYSQL_HOST", "127.0.0.1"),
			Port:     getenv("MYSQL_PORT", "3306"),
			Database: getenv("MYSQL_DATABASE", "storefront"),
			Params:   getenv("MYSQL_PARAMS", "charset=utf8mb4&parseTime=True&loc=Local"),
		},
		SeedFile: getenv("SEED_FILE", ""),

		OrderPricing:           strings.ToLower(getenv("ORDER_PRICING", PricingClient)),
		OrderDecrementStock:    boolenv("ORDER_DECREMENT_STOCK", false),
		OrderStrictTransitions: boolenv("ORDER_STRICT_TRANSITIONS", false),

		InitialWorkerCount:      initialWorkers,
		WorkerMin:               minWorkers,
		WorkerMax:               maxWorkers,
		ScaleInterval:           durenvms("SCALE_INTERVAL_MS", 500),
		ScaleUpBacklogPerWorker: atoienv("SCALE_UP_BACKLOG_PER_WORKER", 100),
		ScaleDownIdleTicks:      atoienv("SCALE_DOWN_IDLE_TICKS", 6),
		QueueHighWatermark:      atoienv("QUEUE_HIGH_WATERMARK", 5000),
	}
}

// Validate rejects configurations the service must not start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.StoreDriver {
	case DriverMemory, DriverMongo, DriverMySQL:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.OrderPricing {
	case PricingClient, PricingServer:
	default:
		errs = append(errs, fmt.Errorf("unknown ORDER_PRICING %q", c.OrderPricing))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.HashConcurrency < 1 {
		errs = append(errs, errors.New("HASH_CONCURRENCY must be positive"))
	}
	if c.AuthRateLimit < 1 || c.AuthRateWindow <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW_SEC must be positive"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL_HOURS must be positive"))
	}
	if c.WorkerMin < 1 || c.WorkerMin > c.WorkerMax {
		errs = append(errs, errors.New("WORKER_MIN must be >= 1 and <= WORKER_MAX"))
	}
	return errors.Join(errs...)
}
